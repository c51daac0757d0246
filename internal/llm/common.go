package llm

import (
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const (
	// MaxErrorBody - сколько символов тела ответа кладём в текст ошибки
	MaxErrorBody = 500
	// DefaultTimeoutSec - таймаут одного вызова, одинаковый для всех провайдеров
	DefaultTimeoutSec = 120
)

func HandleHTTPError(statusCode int, body []byte, logger *zap.Logger, provider string) error {
	snippet := Truncate(string(body), MaxErrorBody)

	logger.Error(provider+" request failed",
		zap.Int("status", statusCode),
		zap.String("body", snippet),
	)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d, response=%s", ErrAuthFailed, statusCode, snippet)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d, response=%s", ErrRateLimit, statusCode, snippet)
	default:
		return fmt.Errorf("%w: status %d, response=%s", ErrTransport, statusCode, snippet)
	}
}

func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

func DoRequest(client *http.Client, req *http.Request) ([]byte, int, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	return body, resp.StatusCode, nil
}

// Truncate режет по символам, а не байтам, чтобы не ломать UTF-8
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
