package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/efmnb-optimizer/internal/llm"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client - OpenAI-совместимый chat/completions. Промпт уходит одним user-сообщением.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
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

type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *apiError `json:"error,omitempty"`
}

type Choice struct {
	Message Message `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func NewChatRequest(model, prompt string) ChatRequest {
	return ChatRequest{
		Model:    model,
		Messages: []Message{{Role: "user", Content: prompt}},
	}
}

func (c *Client) Invoke(ctx context.Context, apiKey, model, prompt string) (string, error) {
	if err := llm.RequireCredential(apiKey); err != nil {
		return "", err
	}

	body, err := json.Marshal(NewChatRequest(model, prompt))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/kitbuilder587/efmnb-optimizer")
	httpReq.Header.Set("X-Title", "EFMNB Prompt Optimizer")

	respBody, statusCode, err := llm.DoRequest(c.client, httpReq)
	if err != nil {
		return "", err
	}

	if !llm.IsSuccess(statusCode) {
		return "", llm.HandleHTTPError(statusCode, respBody, c.logger, "openrouter")
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil || len(chatResp.Choices) == 0 {
		if err == nil && chatResp.Error != nil {
			return "", fmt.Errorf("%w: %s", llm.ErrTransport, llm.Truncate(chatResp.Error.Message, llm.MaxErrorBody))
		}
		// как и у gemini: формат неожиданный - возвращаем тело как есть
		c.logger.Warn("unexpected openrouter response format, returning raw body",
			zap.String("model", model),
		)
		return strings.TrimSpace(string(respBody)), nil
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

var _ llm.Client = (*Client)(nil)
