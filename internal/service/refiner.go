package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/kitbuilder587/efmnb-optimizer/internal/llm"
	"github.com/kitbuilder587/efmnb-optimizer/internal/metrics"
	"github.com/kitbuilder587/efmnb-optimizer/internal/prompts"
)

// ProgressFunc вызывается после каждого шага PCV
type ProgressFunc func(iteration int, step domain.Step)

// Refiner прогоняет промпт через Proposer -> Critic -> Verifier фиксированное число раз.
type Refiner struct {
	llm      llm.Client
	logger   *zap.Logger
	metrics  *metrics.Metrics
	progress ProgressFunc
}

func NewRefiner(llmClient llm.Client, logger *zap.Logger, m *metrics.Metrics) *Refiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refiner{
		llm:     llmClient,
		logger:  logger,
		metrics: m,
	}
}

// WithProgress returns a copy of the refiner that reports every finished step to fn.
func (r *Refiner) WithProgress(fn ProgressFunc) *Refiner {
	cp := *r
	cp.progress = fn
	return &cp
}

func (r *Refiner) Improve(ctx context.Context, apiKey, model, original string) (string, error) {
	trace, err := r.ImproveTrace(ctx, apiKey, model, original)
	if err != nil {
		return "", err
	}
	return trace.Final, nil
}

// ImproveTrace runs the loop and keeps every intermediate output.
// Ошибка любого шага прерывает прогон и возвращается как есть.
func (r *Refiner) ImproveTrace(ctx context.Context, apiKey, model, original string) (*domain.Refinement, error) {
	if err := llm.RequireCredential(apiKey); err != nil {
		r.record("missing_credential")
		return nil, err
	}

	current := strings.TrimSpace(original)
	trace := &domain.Refinement{
		Original:   current,
		Iterations: make([]domain.PCVIteration, 0, domain.PCVIterations),
	}

	start := time.Now()
	r.logger.Info("starting refinement",
		zap.String("model", model),
		zap.Int("prompt_length", len(current)),
		zap.Int("iterations", domain.PCVIterations),
	)

	for i := 1; i <= domain.PCVIterations; i++ {
		it := domain.PCVIteration{Index: i}

		draft, err := r.step(ctx, apiKey, model, i, domain.StepProposer, prompts.RenderProposer(current))
		if err != nil {
			return nil, r.fail(trace, err)
		}
		trace.Calls++
		it.Draft = draft

		report, err := r.step(ctx, apiKey, model, i, domain.StepCritic, prompts.RenderCritic(draft))
		if err != nil {
			return nil, r.fail(trace, err)
		}
		trace.Calls++
		it.CriticReport = report

		verified, err := r.step(ctx, apiKey, model, i, domain.StepVerifier, prompts.RenderVerifier(draft, report))
		if err != nil {
			return nil, r.fail(trace, err)
		}
		trace.Calls++
		it.Verified = verified

		trace.Iterations = append(trace.Iterations, it)
		current = verified

		r.logger.Debug("refinement iteration done",
			zap.Int("iteration", i),
			zap.Int("prompt_length", len(current)),
		)
	}

	trace.Final = current

	r.logger.Info("refinement completed",
		zap.Int("calls", trace.Calls),
		zap.Int("final_length", len(current)),
		zap.Duration("duration", time.Since(start)),
	)
	r.record("success")

	return trace, nil
}

func (r *Refiner) step(ctx context.Context, apiKey, model string, iteration int, step domain.Step, prompt string) (string, error) {
	start := time.Now()
	out, err := r.llm.Invoke(ctx, apiKey, model, prompt)
	if r.metrics != nil {
		r.metrics.RecordPCVStep(step.String(), time.Since(start))
	}
	if err != nil {
		r.logger.Error("refinement step failed",
			zap.Int("iteration", iteration),
			zap.String("step", step.String()),
			zap.Error(err),
		)
		return "", err
	}
	if r.progress != nil {
		r.progress(iteration, step)
	}
	return strings.TrimSpace(out), nil
}

func (r *Refiner) fail(trace *domain.Refinement, err error) error {
	r.logger.Warn("refinement aborted", zap.Int("calls", trace.Calls+1))
	r.record("error")
	return err
}

func (r *Refiner) record(status string) {
	if r.metrics != nil {
		r.metrics.RecordImprovement(status)
	}
}
