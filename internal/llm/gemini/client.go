package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/efmnb-optimizer/internal/llm"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the generateContent REST endpoint. The API key travels as
// the "key" query parameter; model and key are supplied per call.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = llm.DefaultTimeoutSec * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type part struct {
	Text *string `json:"text,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type candidate struct {
	Content *content `json:"content"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

func newGenerateRequest(prompt string) generateRequest {
	return generateRequest{
		Contents: []content{{Parts: []part{{Text: &prompt}}}},
	}
}

func (c *Client) endpoint(apiKey, model string) string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(model), url.QueryEscape(apiKey))
}

func (c *Client) Invoke(ctx context.Context, apiKey, model, prompt string) (string, error) {
	if err := llm.RequireCredential(apiKey); err != nil {
		return "", err
	}
	if model == "" {
		model = DefaultModel
	}

	body, err := json.Marshal(newGenerateRequest(prompt))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(apiKey, model), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, statusCode, err := llm.DoRequest(c.client, httpReq)
	if err != nil {
		// url.Error содержит ключ в query, наружу его не отдаём
		return "", redactKey(err, apiKey)
	}

	if !llm.IsSuccess(statusCode) {
		return "", llm.HandleHTTPError(statusCode, respBody, c.logger, "gemini")
	}

	if text, ok := extractText(respBody); ok {
		return strings.TrimSpace(text), nil
	}

	c.logger.Warn("unexpected gemini response format, returning raw body",
		zap.String("model", model),
		zap.Int("body_length", len(respBody)),
	)
	return rawBody(respBody), nil
}

// extractText достаёт candidates[0].content.parts[0].text
func extractText(body []byte) (string, bool) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", false
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == nil {
		return "", false
	}
	return *parts[0].Text, true
}

// rawBody - запасной вариант: лучше отдать сырой ответ, чем потерять его совсем
func rawBody(body []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err == nil {
		return buf.String()
	}
	return strings.TrimSpace(string(body))
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redactKey(err error, apiKey string) error {
	msg := err.Error()
	for _, k := range []string{apiKey, url.QueryEscape(apiKey)} {
		msg = strings.ReplaceAll(msg, k, "REDACTED")
	}
	return &redactedError{msg: msg, err: err}
}

var _ llm.Client = (*Client)(nil)
