package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/kitbuilder587/efmnb-optimizer/internal/llm"
	"github.com/kitbuilder587/efmnb-optimizer/internal/metrics"
	"github.com/kitbuilder587/efmnb-optimizer/internal/prompts"
)

// сколько символов сырого ответа попадает в ошибку разбора
const maxRawInError = 300

type Analyzer struct {
	llm     llm.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewAnalyzer(llmClient llm.Client, logger *zap.Logger, m *metrics.Metrics) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		llm:     llmClient,
		logger:  logger,
		metrics: m,
	}
}

// Analyze scores text on the five EFMNB axes with a single model call.
func (s *Analyzer) Analyze(ctx context.Context, apiKey, model, text string) (*domain.AnalysisResult, error) {
	if err := llm.RequireCredential(apiKey); err != nil {
		s.record("missing_credential")
		return nil, err
	}

	start := time.Now()
	s.logger.Info("analyzing text",
		zap.String("model", model),
		zap.Int("text_length", len(text)),
	)

	resp, err := s.llm.Invoke(ctx, apiKey, model, prompts.RenderAnalyzer(text))
	if err != nil {
		s.logger.Error("analysis model call failed", zap.Error(err))
		s.record("llm_error")
		return nil, err
	}

	result, err := ParseAnalysis(resp)
	if err != nil {
		s.logger.Warn("failed to parse analysis response",
			zap.Error(err),
			zap.Int("response_length", len(resp)),
		)
		s.record("parse_error")
		return nil, err
	}

	s.logger.Info("analysis completed",
		zap.Float64("E", result.E),
		zap.Float64("F", result.F),
		zap.Float64("M", result.M),
		zap.Float64("N", result.N),
		zap.Float64("B", result.B),
		zap.Duration("duration", time.Since(start)),
	)
	s.record("success")

	return result, nil
}

func (s *Analyzer) record(status string) {
	if s.metrics != nil {
		s.metrics.RecordAnalysis(status)
	}
}

// ParseAnalysis разбирает ответ модели и нормализует оценки.
// Сначала пробуем весь текст как JSON; если не вышло - выкидываем ``` и ```json
// и берём кусок от первой { до последней } (жадно, даже если там несколько объектов).
func ParseAnalysis(raw string) (*domain.AnalysisResult, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return nil, err
	}
	return normalize(obj)
}

func extractObject(raw string) (map[string]interface{}, error) {
	if v, err := decodeJSON(raw); err == nil {
		return asObject(v)
	}

	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end < start {
		return nil, fmt.Errorf("%w: no JSON in output: %s", domain.ErrAnalysis, llm.Truncate(raw, maxRawInError))
	}

	v, err := decodeJSON(cleaned[start : end+1])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JSON in output (%v): %s", domain.ErrAnalysis, err, llm.Truncate(raw, maxRawInError))
	}
	return asObject(v)
}

// decodeJSON - один JSON-документ, числа как json.Number, мусор после документа - ошибка.
// Голые NaN, Infinity и -Infinity модели иногда пишут вместо чисел, их принимаем.
func decodeJSON(s string) (interface{}, error) {
	s = quoteNonFinite(s)
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if rest := strings.TrimSpace(s[dec.InputOffset():]); rest != "" {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

var nonFiniteTokens = []string{"-Infinity", "Infinity", "NaN"}

// quoteNonFinite заключает в кавычки NaN/Infinity вне строк, toFloat их потом разберёт
func quoteNonFinite(s string) string {
	if !strings.Contains(s, "NaN") && !strings.Contains(s, "Infinity") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if tok := nonFiniteAt(s, i); tok != "" {
			b.WriteString(`"` + tok + `"`)
			i += len(tok) - 1
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func nonFiniteAt(s string, i int) string {
	if i > 0 && isIdentByte(s[i-1]) {
		return ""
	}
	for _, tok := range nonFiniteTokens {
		end := i + len(tok)
		if strings.HasPrefix(s[i:], tok) && (end == len(s) || !isIdentByte(s[end])) {
			return tok
		}
	}
	return ""
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func asObject(v interface{}) (map[string]interface{}, error) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected JSON object, got %T", domain.ErrAnalysis, v)
	}
	return obj, nil
}

func normalize(obj map[string]interface{}) (*domain.AnalysisResult, error) {
	var res domain.AnalysisResult

	for _, axis := range domain.Axes {
		raw, ok := obj[string(axis)]
		if !ok {
			continue // отсутствует - 0
		}
		f, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: axis %s: %v", domain.ErrAnalysis, axis, err)
		}
		if err := res.SetScore(axis, domain.Clamp01(f)); err != nil {
			return nil, err
		}
	}

	res.Summary = strings.TrimSpace(toString(obj["summary"]))
	return &res, nil
}

func toFloat(v interface{}) (float64, error) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		parsed, err := parseFloat(x.String())
		if err != nil {
			return 0, err
		}
		f = parsed
	case float64:
		f = x
	case bool:
		if x {
			f = 1
		}
	case string:
		parsed, err := parseFloat(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to number", x)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
	return f, nil
}

// parseFloat как ParseFloat, но 1e400 даёт ±Inf вместо ошибки
func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && errors.Is(err, strconv.ErrRange) {
		return f, nil
	}
	return f, err
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(x); err != nil {
			return fmt.Sprint(x)
		}
		return buf.String()
	}
}
