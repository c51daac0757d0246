package domain

import "time"

// Session - состояние пользователя между запросами (ключ, модель, последний результат).
// Ядро (анализатор, PCV) состояния не держит, всё передаётся явно.
type Session struct {
	UserID         int64
	APIKey         string
	Model          string
	OriginalPrompt string
	Analysis       *AnalysisResult
	ImprovedPrompt string
	UpdatedAt      time.Time
}

func NewSession(userID int64) *Session {
	return &Session{UserID: userID, UpdatedAt: time.Now()}
}

// RecordAnalysis запоминает анализ и исходный промпт; старый улучшенный промпт сбрасывается
func (s *Session) RecordAnalysis(prompt string, res *AnalysisResult) {
	s.OriginalPrompt = prompt
	s.Analysis = res
	s.ImprovedPrompt = ""
	s.UpdatedAt = time.Now()
}

func (s *Session) RecordImprovement(improved string) {
	s.ImprovedPrompt = improved
	s.UpdatedAt = time.Now()
}

func (s *Session) HasAnalysis() bool {
	return s.Analysis != nil
}

// Credential returns the session key, falling back to def.
func (s *Session) Credential(def string) string {
	if s.APIKey != "" {
		return s.APIKey
	}
	return def
}

func (s *Session) ModelOr(def string) string {
	if s.Model != "" {
		return s.Model
	}
	return def
}
