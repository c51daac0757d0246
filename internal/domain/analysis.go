package domain

import (
	"fmt"
	"math"
	"strings"
)

// Axis - одна из пяти осей EFMNB
type Axis string

const (
	AxisEmotion   Axis = "E"
	AxisFactual   Axis = "F"
	AxisMeta      Axis = "M"
	AxisNarrative Axis = "N"
	AxisBias      Axis = "B"
)

// Axes - порядок осей везде одинаковый: E, F, M, N, B
var Axes = []Axis{AxisEmotion, AxisFactual, AxisMeta, AxisNarrative, AxisBias}

const MaxPromptLength = 20000

func (a Axis) Description() string {
	switch a {
	case AxisEmotion:
		return "emotional intensity"
	case AxisFactual:
		return "factual specificity"
	case AxisMeta:
		return "meta-instruction density"
	case AxisNarrative:
		return "narrative or reasoning flow"
	case AxisBias:
		return "bias or one-sided framing"
	default:
		return "unknown"
	}
}

// AnalysisResult is one EFMNB scoring of a text. All scores are in [0,1].
type AnalysisResult struct {
	E       float64 `json:"E"`
	F       float64 `json:"F"`
	M       float64 `json:"M"`
	N       float64 `json:"N"`
	B       float64 `json:"B"`
	Summary string  `json:"summary"`
}

func (r *AnalysisResult) Score(axis Axis) float64 {
	switch axis {
	case AxisEmotion:
		return r.E
	case AxisFactual:
		return r.F
	case AxisMeta:
		return r.M
	case AxisNarrative:
		return r.N
	case AxisBias:
		return r.B
	default:
		return 0
	}
}

func (r *AnalysisResult) SetScore(axis Axis, v float64) error {
	switch axis {
	case AxisEmotion:
		r.E = v
	case AxisFactual:
		r.F = v
	case AxisMeta:
		r.M = v
	case AxisNarrative:
		r.N = v
	case AxisBias:
		r.B = v
	default:
		return fmt.Errorf("unknown axis %q", axis)
	}
	return nil
}

// Scores returns the five scores in Axes order.
func (r *AnalysisResult) Scores() []float64 {
	out := make([]float64, len(Axes))
	for i, a := range Axes {
		out[i] = r.Score(a)
	}
	return out
}

// Clamp01 ограничивает значение отрезком [0,1]. NaN становится 1.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 1
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ValidatePrompt проверяет текст, пришедший от пользователя
func ValidatePrompt(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyPrompt
	}
	if len(text) > MaxPromptLength {
		return ErrPromptTooLong
	}
	return nil
}
