package repository

import (
	"context"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
)

// HistoryRepository - журнал анализов и улучшений по пользователям
type HistoryRepository interface {
	Save(ctx context.Context, entry *domain.HistoryEntry) error
	ListRecent(ctx context.Context, userID int64, limit int) ([]domain.HistoryEntry, error)
	GetByID(ctx context.Context, id string) (*domain.HistoryEntry, error)
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}
