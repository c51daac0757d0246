// Package genai implements llm.Client on top of the official Gemini SDK.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	sdk "google.golang.org/genai"

	"github.com/kitbuilder587/efmnb-optimizer/internal/llm"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = llm.DefaultTimeoutSec * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Invoke создаёт SDK-клиент на каждый вызов: ключ приходит от пользователя, а не из конфига
func (c *Client) Invoke(ctx context.Context, apiKey, model, prompt string) (string, error) {
	if err := llm.RequireCredential(apiKey); err != nil {
		return "", err
	}

	cc := &sdk.ClientConfig{
		APIKey:     apiKey,
		Backend:    sdk.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		cc.HTTPOptions = sdk.HTTPOptions{BaseURL: c.baseURL}
	}

	client, err := sdk.NewClient(ctx, cc)
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, model, sdk.Text(prompt), nil)
	if err != nil {
		return "", c.mapError(err)
	}

	if text, ok := firstText(resp); ok {
		return strings.TrimSpace(text), nil
	}

	c.logger.Warn("unexpected genai response format, returning raw body",
		zap.String("model", model),
	)
	raw, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("marshal raw response: %w", err)
	}
	return string(raw), nil
}

func firstText(resp *sdk.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 || cand.Content.Parts[0] == nil {
		return "", false
	}
	return cand.Content.Parts[0].Text, true
}

func (c *Client) mapError(err error) error {
	var apiErr sdk.APIError
	if errors.As(err, &apiErr) {
		return c.fromAPIError(apiErr)
	}
	var apiErrPtr *sdk.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return c.fromAPIError(*apiErrPtr)
	}
	return fmt.Errorf("%w: %w", llm.ErrTransport, err)
}

func (c *Client) fromAPIError(e sdk.APIError) error {
	body, _ := json.Marshal(map[string]any{
		"code":    e.Code,
		"message": e.Message,
		"status":  e.Status,
	})
	return llm.HandleHTTPError(e.Code, body, c.logger, "genai")
}

var _ llm.Client = (*Client)(nil)
