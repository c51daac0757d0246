package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreBar(t *testing.T) {
	tests := []struct {
		v      float64
		width  int
		filled int
	}{
		{0, 10, 0},
		{0.5, 10, 5},
		{0.26, 10, 3},
		{1, 10, 10},
		{1.7, 10, 10},
		{-0.3, 10, 0},
	}

	for _, tt := range tests {
		bar := ScoreBar(tt.v, tt.width)
		assert.Equal(t, tt.width, len([]rune(bar)), "v=%v", tt.v)
		assert.Equal(t, tt.filled, strings.Count(bar, "█"), "v=%v", tt.v)
	}
}

func TestRenderer_AnalysisPretty(t *testing.T) {
	buf := new(bytes.Buffer)
	r := NewRenderer(buf, false)

	err := r.Analysis(&domain.AnalysisResult{E: 0.25, F: 0.8, M: 0.1, N: 0.5, B: 0, Summary: "Calm and factual."})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "EFMNB ANALYSIS")
	assert.Contains(t, out, "emotional intensity")
	assert.Contains(t, out, "0.80")
	assert.Contains(t, out, "Calm and factual.")
}

func TestRenderer_RefinementPretty(t *testing.T) {
	buf := new(bytes.Buffer)
	r := NewRenderer(buf, false)

	ref := &domain.Refinement{
		Original: "orig",
		Final:    "final prompt",
		Calls:    12,
		Iterations: []domain.PCVIteration{
			{Index: 1, Draft: "d1", CriticReport: "c1", Verified: "v1"},
		},
	}

	require.NoError(t, r.Refinement(ref, false))
	assert.Contains(t, buf.String(), "final prompt")
	assert.NotContains(t, buf.String(), "d1")

	buf.Reset()
	require.NoError(t, r.Refinement(ref, true))
	assert.Contains(t, buf.String(), "ITERATION 1")
	assert.Contains(t, buf.String(), "c1")
	assert.Contains(t, buf.String(), "12 model calls")
}

func TestRenderer_BatchPretty(t *testing.T) {
	buf := new(bytes.Buffer)
	r := NewRenderer(buf, false)

	report := &domain.BatchReport{
		Rows: []domain.BatchRow{
			{Label: "News", AnalysisResult: domain.AnalysisResult{F: 0.9, Summary: "Numbers."}},
		},
		Failed: &domain.BatchFailure{Label: "row_2", Err: errors.New("boom")},
	}
	require.NoError(t, r.Batch(report))

	out := buf.String()
	assert.Contains(t, out, "News")
	assert.Contains(t, out, "0.90")
	assert.NotContains(t, out, "boom")
}

func TestRenderer_BatchJSONKeepsEmptyRows(t *testing.T) {
	buf := new(bytes.Buffer)
	r := NewRenderer(buf, true)

	report := &domain.BatchReport{Failed: &domain.BatchFailure{Label: "row_1", Err: errors.New("boom")}}
	require.NoError(t, r.Batch(report))

	assert.Contains(t, buf.String(), `"rows": []`)
	assert.Contains(t, buf.String(), `"error": "error on row_1: boom"`)
}

func TestRenderer_History(t *testing.T) {
	buf := new(bytes.Buffer)
	r := NewRenderer(buf, false)

	require.NoError(t, r.History(nil))
	assert.Contains(t, buf.String(), "History is empty.")

	buf.Reset()
	entries := []domain.HistoryEntry{{
		ID:        "1",
		Kind:      domain.KindAnalysis,
		Model:     "gemini-2.5-flash",
		Input:     "some\ninput   text",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
	}}
	require.NoError(t, r.History(entries))
	assert.Contains(t, buf.String(), "analysis")
	assert.Contains(t, buf.String(), "some input text")
}
