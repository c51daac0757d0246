package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/kitbuilder587/efmnb-optimizer/internal/llm"
	llmMock "github.com/kitbuilder587/efmnb-optimizer/internal/llm/mock"
	"github.com/kitbuilder587/efmnb-optimizer/internal/metrics"
	"github.com/kitbuilder587/efmnb-optimizer/internal/prompts"
)

func TestAnalyzer_Analyze(t *testing.T) {
	llmClient := llmMock.New()
	llmClient.Response = `{"E": 0.1, "F": 0.9, "M": 0.3, "N": 0.7, "B": 0.2, "summary": "  Neutral and factual.  "}`

	svc := NewAnalyzer(llmClient, zap.NewNop(), nil)

	res, err := svc.Analyze(context.Background(), "key", "gemini-2.5-flash", "The sky is blue.")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	want := domain.AnalysisResult{E: 0.1, F: 0.9, M: 0.3, N: 0.7, B: 0.2, Summary: "Neutral and factual."}
	if *res != want {
		t.Errorf("Analyze() = %+v, want %+v", *res, want)
	}

	if llmClient.CallCount != 1 {
		t.Errorf("CallCount = %d, want 1", llmClient.CallCount)
	}
	calls := llmClient.Calls()
	if calls[0].APIKey != "key" || calls[0].Model != "gemini-2.5-flash" {
		t.Errorf("call = %+v, want key/model passed through", calls[0])
	}
	if calls[0].Prompt != prompts.RenderAnalyzer("The sky is blue.") {
		t.Error("prompt is not the rendered analyzer template")
	}
}

func TestAnalyzer_EmptyCredential(t *testing.T) {
	llmClient := llmMock.New()
	svc := NewAnalyzer(llmClient, zap.NewNop(), nil)

	_, err := svc.Analyze(context.Background(), "", "m", "text")
	if !errors.Is(err, llm.ErrMissingCredential) {
		t.Fatalf("error = %v, want ErrMissingCredential", err)
	}
	if llmClient.CallCount != 0 {
		t.Errorf("CallCount = %d, want 0", llmClient.CallCount)
	}
}

func TestAnalyzer_TransportErrorPassesThrough(t *testing.T) {
	llmClient := llmMock.New().WithError(llm.ErrRateLimit)
	svc := NewAnalyzer(llmClient, zap.NewNop(), nil)

	_, err := svc.Analyze(context.Background(), "key", "m", "text")
	if !errors.Is(err, llm.ErrRateLimit) || !errors.Is(err, llm.ErrTransport) {
		t.Fatalf("error = %v, want rate limit transport error", err)
	}
	if errors.Is(err, domain.ErrAnalysis) {
		t.Error("transport error must not be reported as analysis error")
	}
}

func TestAnalyzer_RecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	llmClient := llmMock.New().WithResponses(`{"E": 0.5}`, `not json`)
	svc := NewAnalyzer(llmClient, zap.NewNop(), m)

	if _, err := svc.Analyze(context.Background(), "key", "m", "a"); err != nil {
		t.Fatalf("first Analyze() error = %v", err)
	}
	if _, err := svc.Analyze(context.Background(), "key", "m", "b"); err == nil {
		t.Fatal("second Analyze() expected error")
	}

	if got := testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("parse_error")); got != 1 {
		t.Errorf("parse_error = %v, want 1", got)
	}
}

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.AnalysisResult
	}{
		{
			name: "plain json",
			raw:  `{"E":0.2,"F":0.4,"M":0.6,"N":0.8,"B":1,"summary":"ok"}`,
			want: domain.AnalysisResult{E: 0.2, F: 0.4, M: 0.6, N: 0.8, B: 1, Summary: "ok"},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"E\": 0.9, \"summary\": \"x\"}\n```",
			want: domain.AnalysisResult{E: 0.9, Summary: "x"},
		},
		{
			name: "bare fence",
			raw:  "```\n{\"F\": 0.5}\n```",
			want: domain.AnalysisResult{F: 0.5},
		},
		{
			name: "prose around object",
			raw:  "Here is the result: {\"M\": 0.3, \"summary\": \"s\"} Hope it helps.",
			want: domain.AnalysisResult{M: 0.3, Summary: "s"},
		},
		{
			name: "clamped",
			raw:  `{"E": 1.7, "F": -0.3, "M": 0, "N": 1, "B": 42}`,
			want: domain.AnalysisResult{E: 1, F: 0, M: 0, N: 1, B: 1},
		},
		{
			name: "missing keys default to zero",
			raw:  `{"E": 0.5}`,
			want: domain.AnalysisResult{E: 0.5},
		},
		{
			name: "numeric strings",
			raw:  `{"E": " 0.25 ", "F": "1e-1", "summary": "s"}`,
			want: domain.AnalysisResult{E: 0.25, F: 0.1, Summary: "s"},
		},
		{
			name: "booleans",
			raw:  `{"E": true, "F": false}`,
			want: domain.AnalysisResult{E: 1, F: 0},
		},
		{
			name: "numeric summary stringified",
			raw:  `{"summary": 42}`,
			want: domain.AnalysisResult{Summary: "42"},
		},
		{
			name: "boolean summary",
			raw:  `{"E": 0.1, "summary": true}`,
			want: domain.AnalysisResult{E: 0.1, Summary: "True"},
		},
		{
			name: "nan string clamps to one",
			raw:  `{"N": "NaN"}`,
			want: domain.AnalysisResult{N: 1},
		},
		{
			name: "bare non-finite literals",
			raw:  `{"E": NaN, "F": Infinity, "M": -Infinity, "summary": "s"}`,
			want: domain.AnalysisResult{E: 1, F: 1, M: 0, Summary: "s"},
		},
		{
			name: "bare nan inside fenced prose",
			raw:  "Result:\n```json\n{\"B\": NaN, \"N\": 0.4}\n```",
			want: domain.AnalysisResult{B: 1, N: 0.4},
		},
		{
			name: "nan inside summary untouched",
			raw:  `{"E": 0.2, "summary": "NaN and Infinity are \"NaN\" words"}`,
			want: domain.AnalysisResult{E: 0.2, Summary: `NaN and Infinity are "NaN" words`},
		},
		{
			name: "overflowing number clamps",
			raw:  `{"E": 1e400, "F": -1e400}`,
			want: domain.AnalysisResult{E: 1, F: 0},
		},
		{
			name: "null summary",
			raw:  `{"E": 0.3, "summary": null}`,
			want: domain.AnalysisResult{E: 0.3},
		},
		{
			name: "extra keys ignored",
			raw:  `{"E": 0.3, "X": "whatever", "summary": "s"}`,
			want: domain.AnalysisResult{E: 0.3, Summary: "s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnalysis(tt.raw)
			if err != nil {
				t.Fatalf("ParseAnalysis() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("ParseAnalysis() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestParseAnalysis_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no braces", "I cannot analyze this text."},
		{"empty", ""},
		{"two objects greedy span", `{"E": 0.1} and also {"F": 0.2}`},
		{"broken object", `{"E": 0.1,`},
		{"top level array", `[0.1, 0.2]`},
		{"null axis", `{"E": null}`},
		{"non numeric string", `{"E": "high"}`},
		{"nested object", `{"E": {"value": 0.1}}`},
		{"array axis", `{"B": [0.1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnalysis(tt.raw)
			if !errors.Is(err, domain.ErrAnalysis) {
				t.Errorf("ParseAnalysis(%q) error = %v, want ErrAnalysis", tt.raw, err)
			}
		})
	}
}

func TestParseAnalysis_ErrorIncludesTruncatedOutput(t *testing.T) {
	raw := strings.Repeat("a", 400)

	_, err := ParseAnalysis(raw)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, strings.Repeat("a", 300)) {
		t.Error("error should contain the first 300 characters of the output")
	}
	if strings.Contains(msg, strings.Repeat("a", 301)) {
		t.Error("error should not contain more than 300 characters of the output")
	}
}

func TestParseAnalysis_AlwaysInRange(t *testing.T) {
	inputs := []string{
		`{"E": -100, "F": 100, "M": "-5", "N": "5", "B": 0.5}`,
		`{"E": 1e308, "F": -1e308}`,
		`{"E": "Infinity", "F": "-Infinity"}`,
		`{"E": NaN, "F": Infinity, "M": -Infinity, "N": "nan"}`,
	}

	for _, raw := range inputs {
		res, err := ParseAnalysis(raw)
		if err != nil {
			t.Fatalf("ParseAnalysis(%q) error = %v", raw, err)
		}
		for i, v := range res.Scores() {
			if v < 0 || v > 1 {
				t.Errorf("ParseAnalysis(%q) axis %s = %v out of range", raw, domain.Axes[i], v)
			}
		}
	}
}
