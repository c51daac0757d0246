package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kitbuilder587/efmnb-optimizer/internal/llm"
)

// Client - скриптуемый клиент для тестов и офлайн-режима (LLM_PROVIDER=mock).
// Порядок выбора ответа: Respond, затем очередь Responses, затем Response.
type Client struct {
	mu sync.Mutex

	Response  string
	Responses []string
	Respond   func(call int, prompt string) (string, error)
	Error     error
	// FailOnCall - номер вызова (с 1), на котором вернуть Error
	FailOnCall int
	Delay      time.Duration

	CallCount  int
	LastPrompt string
	AllCalls   []LLMCall
}

type LLMCall struct {
	APIKey string
	Model  string
	Prompt string
}

func New() *Client {
	return &Client{
		Response: `{"E": 0.2, "F": 0.6, "M": 0.4, "N": 0.5, "B": 0.1, "summary": "Mock analysis."}`,
	}
}

func (c *Client) WithResponse(response string) *Client {
	c.Response = response
	return c
}

func (c *Client) WithResponses(responses ...string) *Client {
	c.Responses = append(c.Responses, responses...)
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

// WithErrorOnCall - упасть только на n-м вызове
func (c *Client) WithErrorOnCall(n int, err error) *Client {
	c.FailOnCall = n
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) Invoke(ctx context.Context, apiKey, model, prompt string) (string, error) {
	c.mu.Lock()
	c.CallCount++
	call := c.CallCount
	c.LastPrompt = prompt
	c.AllCalls = append(c.AllCalls, LLMCall{APIKey: apiKey, Model: model, Prompt: prompt})
	delay := c.Delay
	c.mu.Unlock()

	if err := llm.RequireCredential(apiKey); err != nil {
		return "", err
	}

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Error != nil && (c.FailOnCall == 0 || c.FailOnCall == call) {
		return "", c.Error
	}

	if c.Respond != nil {
		return c.Respond(call, prompt)
	}

	if len(c.Responses) > 0 {
		resp := c.Responses[0]
		c.Responses = c.Responses[1:]
		return resp, nil
	}

	return c.Response, nil
}

func (c *Client) Calls() []LLMCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LLMCall, len(c.AllCalls))
	copy(out, c.AllCalls)
	return out
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastPrompt = ""
	c.AllCalls = nil
}

// CountRole - сколько раз вызывалась роль PCV (по заголовку шаблона, например "PROPOSER")
func (c *Client) CountRole(role string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.AllCalls {
		if strings.Contains(call.Prompt, "You are "+role) {
			n++
		}
	}
	return n
}

var _ llm.Client = (*Client)(nil)
