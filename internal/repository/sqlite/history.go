package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/kitbuilder587/efmnb-optimizer/internal/repository"
)

// фиксированная ширина, чтобы строки сортировались как время
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// HistoryRepo implements repository.HistoryRepository on top of SQLite.
type HistoryRepo struct {
	db *sql.DB
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) Save(ctx context.Context, entry *domain.HistoryEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	query := `INSERT INTO history_entries (id, user_id, kind, model, input, output, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Kind.String(),
		entry.Model,
		entry.Input,
		entry.Output,
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrDuplicateEntry
		}
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

func (r *HistoryRepo) ListRecent(ctx context.Context, userID int64, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		return nil, domain.ErrInvalidLimit
	}

	query := `SELECT id, user_id, kind, model, input, output, created_at
		FROM history_entries
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (r *HistoryRepo) GetByID(ctx context.Context, id string) (*domain.HistoryEntry, error) {
	query := `SELECT id, user_id, kind, model, input, output, created_at
		FROM history_entries WHERE id = ?`
	e, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return e, err
}

func (r *HistoryRepo) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM history_entries WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting history: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*domain.HistoryEntry, error) {
	var e domain.HistoryEntry
	var kind, createdAt string
	if err := s.Scan(&e.ID, &e.UserID, &kind, &e.Model, &e.Input, &e.Output, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning history entry: %w", err)
	}
	e.Kind = domain.HistoryKind(kind)

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	e.CreatedAt = t
	return &e, nil
}

var _ repository.HistoryRepository = (*HistoryRepo)(nil)
