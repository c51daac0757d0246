package domain

import "errors"

var (
	ErrEmptyPrompt     = errors.New("prompt is empty")
	ErrPromptTooLong   = errors.New("prompt too long")
	ErrMissingOriginal = errors.New("original prompt is missing")
)

// ErrAnalysis - ответ модели не удалось разобрать в AnalysisResult
var ErrAnalysis = errors.New("analysis failed")

var (
	ErrEmptyBatch   = errors.New("no data to analyze")
	ErrInvalidLimit = errors.New("limit must be positive")
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidKind     = errors.New("invalid history kind")
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateEntry  = errors.New("history entry already exists")
	ErrHistoryDisabled = errors.New("history is disabled")
)
