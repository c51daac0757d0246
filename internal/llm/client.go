package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrMissingCredential = errors.New("api key is missing")
	ErrTransport         = errors.New("model api error")
	ErrEmptyResponse     = errors.New("empty response")
)

// ErrAuthFailed и ErrRateLimit - частные случаи ErrTransport
var (
	ErrAuthFailed = fmt.Errorf("%w: authentication failed", ErrTransport)
	ErrRateLimit  = fmt.Errorf("%w: rate limit exceeded", ErrTransport)
)

// Client sends one prompt to a hosted model and returns the generated text.
// Implementations make exactly one request per call: no retries, no caching.
type Client interface {
	Invoke(ctx context.Context, apiKey, model, prompt string) (string, error)
}

// ClientFunc adapts a plain function to Client.
type ClientFunc func(ctx context.Context, apiKey, model, prompt string) (string, error)

func (f ClientFunc) Invoke(ctx context.Context, apiKey, model, prompt string) (string, error) {
	return f(ctx, apiKey, model, prompt)
}

func RequireCredential(apiKey string) error {
	if apiKey == "" {
		return ErrMissingCredential
	}
	return nil
}
