package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BatchItem - одна строка пакетного анализа
type BatchItem struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// BatchRow is an analysed BatchItem. It marshals flat:
// {"label": ..., "E": ..., ..., "summary": ...}.
type BatchRow struct {
	Label string
	AnalysisResult
}

func (r BatchRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Label string `json:"label"`
		AnalysisResult
	}{Label: r.Label, AnalysisResult: r.AnalysisResult})
}

func (r *BatchRow) UnmarshalJSON(data []byte) error {
	var raw struct {
		Label string `json:"label"`
		AnalysisResult
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Label = raw.Label
	r.AnalysisResult = raw.AnalysisResult
	return nil
}

// BatchFailure - на какой строке остановились и почему
type BatchFailure struct {
	Label string
	Err   error
}

func (f *BatchFailure) Error() string {
	return fmt.Sprintf("error on %s: %v", f.Label, f.Err)
}

func (f *BatchFailure) Unwrap() error { return f.Err }

// BatchReport collects rows up to the first failure.
type BatchReport struct {
	Rows   []BatchRow
	Failed *BatchFailure
}

func (r *BatchReport) Complete() bool {
	return r.Failed == nil
}

// ParseBatchLines режет загруженный файл на строки: одна строка - один текст.
// Пустые строки пропускаются, но номер строки в метке сохраняется.
func ParseBatchLines(content string) []BatchItem {
	content = strings.TrimPrefix(content, "\uFEFF")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	var items []BatchItem
	for i, line := range strings.Split(content, "\n") {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		items = append(items, BatchItem{
			Label: fmt.Sprintf("row_%d", i+1),
			Text:  text,
		})
	}
	return items
}

func DemoBatch() []BatchItem {
	return []BatchItem{
		{Label: "Fiction", Text: "Darkness descends upon the city, and a lone witness must choose between truth and safety."},
		{Label: "News", Text: "The agency reported a 3.2% increase in quarterly revenue compared to last year."},
		{Label: "Academic", Text: "Recent work formalizes robustness via distributional shift and proposes causal regularization."},
	}
}
