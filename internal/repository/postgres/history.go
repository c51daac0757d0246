package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/kitbuilder587/efmnb-optimizer/internal/repository"
)

type HistoryRepo struct {
	db *DB
}

func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) Save(ctx context.Context, entry *domain.HistoryEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	query := `
        INSERT INTO history_entries (id, user_id, kind, model, input, output, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	_, err := r.db.Pool.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Kind.String(),
		entry.Model,
		entry.Input,
		entry.Output,
		entry.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateEntry
		}
		return fmt.Errorf("save history entry: %w", err)
	}

	return nil
}

func (r *HistoryRepo) ListRecent(ctx context.Context, userID int64, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		return nil, domain.ErrInvalidLimit
	}

	query := `
        SELECT id, user_id, kind, model, input, output, created_at
        FROM history_entries
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `

	rows, err := r.db.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return entries, nil
}

func (r *HistoryRepo) GetByID(ctx context.Context, id string) (*domain.HistoryEntry, error) {
	query := `
        SELECT id, user_id, kind, model, input, output, created_at
        FROM history_entries
        WHERE id = $1
    `

	e, err := scanEntry(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get history entry: %w", err)
	}
	return e, nil
}

func (r *HistoryRepo) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM history_entries WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete history: %w", err)
	}
	return result.RowsAffected(), nil
}

func scanEntry(row pgx.Row) (*domain.HistoryEntry, error) {
	var e domain.HistoryEntry
	var kind string
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&kind,
		&e.Model,
		&e.Input,
		&e.Output,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Kind = domain.HistoryKind(kind)
	return &e, nil
}

var _ repository.HistoryRepository = (*HistoryRepo)(nil)
