package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/kitbuilder587/efmnb-optimizer/internal/repository"
)

const DefaultHistoryLimit = 10

// HistoryService пишет журнал результатов. Без репозитория работает как no-op,
// ошибки записи только логируются - пользователь свой результат уже получил.
type HistoryService struct {
	repo   repository.HistoryRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewHistoryService(repo repository.HistoryRepository, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *HistoryService) Enabled() bool {
	return s != nil && s.repo != nil
}

func (s *HistoryService) RecordAnalysis(ctx context.Context, userID int64, model, text string, res *domain.AnalysisResult) {
	if !s.Enabled() || res == nil {
		return
	}
	out, err := json.Marshal(res)
	if err != nil {
		s.logger.Warn("failed to encode analysis for history", zap.Error(err))
		return
	}
	s.save(ctx, &domain.HistoryEntry{
		UserID: userID,
		Kind:   domain.KindAnalysis,
		Model:  model,
		Input:  text,
		Output: string(out),
	})
}

func (s *HistoryService) RecordRefinement(ctx context.Context, userID int64, model, original, improved string) {
	if !s.Enabled() {
		return
	}
	s.save(ctx, &domain.HistoryEntry{
		UserID: userID,
		Kind:   domain.KindRefinement,
		Model:  model,
		Input:  original,
		Output: improved,
	})
}

// Recent returns the newest entries first.
func (s *HistoryService) Recent(ctx context.Context, userID int64, limit int) ([]domain.HistoryEntry, error) {
	if !s.Enabled() {
		return nil, domain.ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.repo.ListRecent(ctx, userID, limit)
}

func (s *HistoryService) Clear(ctx context.Context, userID int64) (int64, error) {
	if !s.Enabled() {
		return 0, domain.ErrHistoryDisabled
	}
	n, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("history cleared", zap.Int64("user_id", userID), zap.Int64("deleted", n))
	return n, nil
}

func (s *HistoryService) save(ctx context.Context, entry *domain.HistoryEntry) {
	entry.ID = uuid.NewString()
	entry.CreatedAt = s.now().UTC()

	if err := s.repo.Save(ctx, entry); err != nil {
		s.logger.Warn("failed to save history entry",
			zap.Error(err),
			zap.String("kind", entry.Kind.String()),
			zap.Int64("user_id", entry.UserID),
		)
		return
	}
	s.logger.Debug("history entry saved",
		zap.String("id", entry.ID),
		zap.String("kind", entry.Kind.String()),
	)
}
