package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/kitbuilder587/efmnb-optimizer/internal/llm"
	"github.com/kitbuilder587/efmnb-optimizer/internal/metrics"
)

// TextAnalyzer - то, что нужно батчу от анализатора
type TextAnalyzer interface {
	Analyze(ctx context.Context, apiKey, model, text string) (*domain.AnalysisResult, error)
}

type BatchAnalyzer struct {
	analyzer TextAnalyzer
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewBatchAnalyzer(analyzer TextAnalyzer, logger *zap.Logger, m *metrics.Metrics) *BatchAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchAnalyzer{
		analyzer: analyzer,
		logger:   logger,
		metrics:  m,
	}
}

// Run analyses items one by one and stops at the first failure.
// Уже посчитанные строки остаются в отчёте, ошибка кладётся в report.Failed,
// сам Run в этом случае возвращает nil.
func (b *BatchAnalyzer) Run(ctx context.Context, apiKey, model string, items []domain.BatchItem) (*domain.BatchReport, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if err := llm.RequireCredential(apiKey); err != nil {
		return nil, err
	}

	if b.metrics != nil {
		b.metrics.RecordBatch(len(items))
	}

	start := time.Now()
	b.logger.Info("starting batch analysis",
		zap.String("model", model),
		zap.Int("items", len(items)),
	)

	report := &domain.BatchReport{Rows: make([]domain.BatchRow, 0, len(items))}
	for _, item := range items {
		res, err := b.analyzer.Analyze(ctx, apiKey, model, item.Text)
		if err != nil {
			b.logger.Warn("batch stopped on failure",
				zap.String("label", item.Label),
				zap.Int("completed", len(report.Rows)),
				zap.Error(err),
			)
			report.Failed = &domain.BatchFailure{Label: item.Label, Err: err}
			return report, nil
		}
		report.Rows = append(report.Rows, domain.BatchRow{Label: item.Label, AnalysisResult: *res})
	}

	b.logger.Info("batch analysis completed",
		zap.Int("rows", len(report.Rows)),
		zap.Duration("duration", time.Since(start)),
	)

	return report, nil
}
