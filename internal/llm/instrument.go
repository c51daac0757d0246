package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Recorder is the subset of metrics the instrumented client reports to.
type Recorder interface {
	RecordLLMRequest(provider, status string, duration time.Duration)
}

type instrumented struct {
	next     Client
	provider string
	recorder Recorder
	logger   *zap.Logger
}

// Instrument оборачивает клиента метриками и debug-логом на каждый вызов.
// recorder и logger могут быть nil.
func Instrument(next Client, provider string, recorder Recorder, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &instrumented{next: next, provider: provider, recorder: recorder, logger: logger}
}

func (c *instrumented) Invoke(ctx context.Context, apiKey, model, prompt string) (string, error) {
	start := time.Now()
	text, err := c.next.Invoke(ctx, apiKey, model, prompt)
	elapsed := time.Since(start)

	status := callStatus(err)
	if c.recorder != nil {
		c.recorder.RecordLLMRequest(c.provider, status, elapsed)
	}

	c.logger.Debug("model call",
		zap.String("provider", c.provider),
		zap.String("model", model),
		zap.Int("prompt_length", len(prompt)),
		zap.Int("response_length", len(text)),
		zap.String("status", status),
		zap.Duration("duration", elapsed),
	)

	return text, err
}

func callStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrAuthFailed):
		return "auth_failed"
	case errors.Is(err, ErrRateLimit):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrTransport):
		return "transport_error"
	default:
		return "error"
	}
}
