package domain

import (
	"encoding/json"
	"time"
)

type HistoryKind string

const (
	KindAnalysis   HistoryKind = "analysis"
	KindRefinement HistoryKind = "refinement"
)

func (k HistoryKind) IsValid() bool {
	switch k {
	case KindAnalysis, KindRefinement:
		return true
	}
	return false
}

func (k HistoryKind) String() string { return string(k) }

// HistoryEntry - сохранённый результат анализа или улучшения.
// Output для анализа - JSON AnalysisResult, для улучшения - итоговый промпт.
type HistoryEntry struct {
	ID        string      `json:"id"`
	UserID    int64       `json:"user_id"`
	Kind      HistoryKind `json:"kind"`
	Model     string      `json:"model"`
	Input     string      `json:"input"`
	Output    string      `json:"output"`
	CreatedAt time.Time   `json:"created_at"`
}

func (e *HistoryEntry) Validate() error {
	if !e.Kind.IsValid() {
		return ErrInvalidKind
	}
	return nil
}

// Analysis decodes Output for analysis entries.
func (e *HistoryEntry) Analysis() (*AnalysisResult, error) {
	if e.Kind != KindAnalysis {
		return nil, ErrInvalidKind
	}
	var res AnalysisResult
	if err := json.Unmarshal([]byte(e.Output), &res); err != nil {
		return nil, err
	}
	return &res, nil
}
