package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/kitbuilder587/efmnb-optimizer/internal/llm"
)

func TestClient_ResponseOrder(t *testing.T) {
	c := New().WithResponse("fallback").WithResponses("first", "second")
	ctx := context.Background()

	for _, want := range []string{"first", "second", "fallback", "fallback"} {
		got, err := c.Invoke(ctx, "k", "m", "p")
		if err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
		if got != want {
			t.Errorf("Invoke() = %q, want %q", got, want)
		}
	}
	if c.CallCount != 4 {
		t.Errorf("CallCount = %d, want 4", c.CallCount)
	}
}

func TestClient_ErrorOnCall(t *testing.T) {
	boom := errors.New("boom")
	c := New().WithErrorOnCall(2, boom)
	ctx := context.Background()

	if _, err := c.Invoke(ctx, "k", "m", "p"); err != nil {
		t.Fatalf("first call error = %v", err)
	}
	if _, err := c.Invoke(ctx, "k", "m", "p"); !errors.Is(err, boom) {
		t.Fatalf("second call error = %v, want boom", err)
	}
	if _, err := c.Invoke(ctx, "k", "m", "p"); err != nil {
		t.Fatalf("third call error = %v", err)
	}
}

func TestClient_MissingCredential(t *testing.T) {
	c := New()
	if _, err := c.Invoke(context.Background(), "", "m", "p"); !errors.Is(err, llm.ErrMissingCredential) {
		t.Errorf("error = %v, want ErrMissingCredential", err)
	}
}

func TestClient_Respond(t *testing.T) {
	c := New()
	c.Respond = func(call int, prompt string) (string, error) {
		return prompt + "!", nil
	}

	got, _ := c.Invoke(context.Background(), "k", "m", "hi")
	if got != "hi!" {
		t.Errorf("Invoke() = %q, want hi!", got)
	}
	if calls := c.Calls(); len(calls) != 1 || calls[0].Model != "m" {
		t.Errorf("Calls() = %+v", calls)
	}
}
