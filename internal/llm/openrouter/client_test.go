package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/efmnb-optimizer/internal/llm"
)

func TestClient_Invoke(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name       string
		response   interface{}
		statusCode int
		want       string
		wantErr    error
	}{
		{
			name: "successful completion",
			response: ChatResponse{
				Choices: []Choice{
					{Message: Message{Role: "assistant", Content: " Test response "}},
				},
			},
			statusCode: http.StatusOK,
			want:       "Test response",
		},
		{
			name:       "unauthorized",
			response:   map[string]string{"error": "unauthorized"},
			statusCode: http.StatusUnauthorized,
			wantErr:    llm.ErrAuthFailed,
		},
		{
			name:       "rate limit",
			response:   map[string]string{"error": "rate limit"},
			statusCode: http.StatusTooManyRequests,
			wantErr:    llm.ErrRateLimit,
		},
		{
			name:       "api error in body",
			response:   map[string]interface{}{"error": map[string]string{"message": "model not found"}},
			statusCode: http.StatusOK,
			wantErr:    llm.ErrTransport,
		},
		{
			name:       "no choices degrades to raw body",
			response:   map[string]interface{}{"choices": []interface{}{}},
			statusCode: http.StatusOK,
			want:       `{"choices":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer test-key" {
					t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
				}

				var req ChatRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("decode request: %v", err)
				}
				if req.Model != "deepseek/deepseek-chat" || len(req.Messages) != 1 || req.Messages[0].Content != "prompt" {
					t.Errorf("unexpected request %+v", req)
				}

				w.WriteHeader(tt.statusCode)
				json.NewEncoder(w).Encode(tt.response)
			}))
			defer server.Close()

			client := New(Config{
				BaseURL: server.URL,
				Timeout: 5 * time.Second,
			}, logger)

			result, err := client.Invoke(context.Background(), "test-key", "deepseek/deepseek-chat", "prompt")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Invoke() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("Invoke() unexpected error = %v", err)
			}
			if result != tt.want {
				t.Errorf("Invoke() = %q, want %q", result, tt.want)
			}
		})
	}
}

func TestClient_Invoke_MissingCredential(t *testing.T) {
	client := New(Config{BaseURL: "http://127.0.0.1:1"}, zap.NewNop())

	_, err := client.Invoke(context.Background(), "", "m", "prompt")
	if !errors.Is(err, llm.ErrMissingCredential) {
		t.Errorf("error = %v, want ErrMissingCredential", err)
	}
}
