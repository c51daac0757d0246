package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
)

func TestMockHistoryRepository_Save(t *testing.T) {
	tests := []struct {
		name      string
		entry     domain.HistoryEntry
		setupRepo func(*MockHistoryRepository)
		wantErr   error
	}{
		{
			name:      "new entry",
			entry:     domain.HistoryEntry{ID: "1", UserID: 1, Kind: domain.KindAnalysis},
			setupRepo: func(m *MockHistoryRepository) {},
		},
		{
			name:  "duplicate id",
			entry: domain.HistoryEntry{ID: "1", UserID: 1, Kind: domain.KindAnalysis},
			setupRepo: func(m *MockHistoryRepository) {
				m.Save(context.Background(), &domain.HistoryEntry{ID: "1", UserID: 1, Kind: domain.KindRefinement})
			},
			wantErr: domain.ErrDuplicateEntry,
		},
		{
			name:      "invalid kind",
			entry:     domain.HistoryEntry{ID: "2", UserID: 1, Kind: "unknown"},
			setupRepo: func(m *MockHistoryRepository) {},
			wantErr:   domain.ErrInvalidKind,
		},
		{
			name:  "injected error",
			entry: domain.HistoryEntry{ID: "3", UserID: 1, Kind: domain.KindAnalysis},
			setupRepo: func(m *MockHistoryRepository) {
				m.SaveErr = errors.New("db down")
			},
			wantErr: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockHistoryRepository()
			tt.setupRepo(repo)

			err := repo.Save(context.Background(), &tt.entry)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Save() error = %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr.Error() {
				t.Errorf("Save() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMockHistoryRepository_ListRecent(t *testing.T) {
	repo := NewMockHistoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	repo.Save(ctx, &domain.HistoryEntry{ID: "a", UserID: 1, Kind: domain.KindAnalysis, CreatedAt: base})
	repo.Save(ctx, &domain.HistoryEntry{ID: "b", UserID: 1, Kind: domain.KindAnalysis, CreatedAt: base.Add(time.Minute)})
	repo.Save(ctx, &domain.HistoryEntry{ID: "c", UserID: 1, Kind: domain.KindAnalysis, CreatedAt: base.Add(time.Minute)})
	repo.Save(ctx, &domain.HistoryEntry{ID: "d", UserID: 2, Kind: domain.KindAnalysis, CreatedAt: base})

	got, err := repo.ListRecent(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// одинаковое время - последний вставленный первым
	if got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("order = %s,%s, want c,b", got[0].ID, got[1].ID)
	}

	if _, err := repo.ListRecent(ctx, 1, 0); err != domain.ErrInvalidLimit {
		t.Errorf("ListRecent(limit=0) error = %v, want ErrInvalidLimit", err)
	}
}

func TestMockHistoryRepository_GetAndDelete(t *testing.T) {
	repo := NewMockHistoryRepository()
	ctx := context.Background()

	repo.Save(ctx, &domain.HistoryEntry{ID: "a", UserID: 1, Kind: domain.KindAnalysis})
	repo.Save(ctx, &domain.HistoryEntry{ID: "b", UserID: 2, Kind: domain.KindRefinement})

	if _, err := repo.GetByID(ctx, "a"); err != nil {
		t.Errorf("GetByID() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, "zzz"); err != domain.ErrNotFound {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}

	n, err := repo.DeleteByUser(ctx, 1)
	if err != nil || n != 1 {
		t.Errorf("DeleteByUser() = %d, %v, want 1, nil", n, err)
	}
	if repo.Count() != 1 {
		t.Errorf("Count() = %d, want 1", repo.Count())
	}
}
