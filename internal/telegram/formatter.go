package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
)

const (
	barWidth      = 10
	maxLabelWidth = 12
)

// Bar рисует шкалу 0..1 блоками; вместо радарной диаграммы
func Bar(v float64, width int) string {
	v = domain.Clamp01(v)
	filled := int(v*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func FormatAnalysis(res *domain.AnalysisResult) string {
	var sb strings.Builder
	sb.WriteString("<b>EFMNB analysis</b>\n\n<pre>")
	for _, axis := range domain.Axes {
		v := res.Score(axis)
		sb.WriteString(fmt.Sprintf("%s %s %.2f  %s\n", axis, Bar(v, barWidth), v, axis.Description()))
	}
	sb.WriteString("</pre>")

	if res.Summary != "" {
		sb.WriteString("\n<b>Summary:</b> ")
		sb.WriteString(html.EscapeString(res.Summary))
	}

	sb.WriteString("\n\n/improve - refine this prompt, /json - download the result")
	return sb.String()
}

func FormatRefinementHeader(trace *domain.Refinement) string {
	return fmt.Sprintf("<b>Improved prompt</b> (%d iterations, %d model calls):",
		len(trace.Iterations), trace.Calls)
}

func FormatProgress(iteration int, step domain.Step) string {
	return fmt.Sprintf("Refining prompt: iteration %d/%d, %s done.", iteration, domain.PCVIterations, step)
}

func FormatBatchReport(report *domain.BatchReport) string {
	var sb strings.Builder

	if len(report.Rows) > 0 {
		sb.WriteString("<b>Batch analysis</b>\n\n<pre>")
		sb.WriteString(fmt.Sprintf("%-*s  E    F    M    N    B\n", maxLabelWidth, "label"))
		for _, row := range report.Rows {
			sb.WriteString(fmt.Sprintf("%-*s %.2f %.2f %.2f %.2f %.2f\n",
				maxLabelWidth,
				html.EscapeString(truncate(row.Label, maxLabelWidth)),
				row.E, row.F, row.M, row.N, row.B,
			))
		}
		sb.WriteString("</pre>")
	}

	if report.Failed != nil {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(html.EscapeString(FormatBatchFailure(report.Failed)))
	}

	return sb.String()
}

// FormatBatchFailure - "Error on row_3: ..."
func FormatBatchFailure(f *domain.BatchFailure) string {
	return fmt.Sprintf("Error on %s: %v", f.Label, f.Err)
}

func FormatHistory(entries []domain.HistoryEntry) string {
	var sb strings.Builder
	sb.WriteString("<b>Recent history:</b>\n\n")

	for i, e := range entries {
		sb.WriteString(fmt.Sprintf("%d. <i>%s</i> %s [%s]\n",
			i+1,
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.Kind,
			html.EscapeString(e.Model),
		))
		sb.WriteString("   " + html.EscapeString(truncate(normalizeSpaces(e.Input), 60)) + "\n")

		switch e.Kind {
		case domain.KindAnalysis:
			if res, err := e.Analysis(); err == nil {
				sb.WriteString(fmt.Sprintf("   E %.2f  F %.2f  M %.2f  N %.2f  B %.2f\n", res.E, res.F, res.M, res.N, res.B))
			}
		case domain.KindRefinement:
			sb.WriteString("   → " + html.EscapeString(truncate(normalizeSpaces(e.Output), 60)) + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Total: %d", len(entries)))
	return sb.String()
}

func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			messages = append(messages, text)
			break
		}

		splitPoint := findSafeSplitPoint(text, maxLen)
		if splitPoint <= 0 || splitPoint > len(text) {
			splitPoint = maxLen
		}
		splitPoint = runeBoundary(text, splitPoint)

		messages = append(messages, text[:splitPoint])
		text = text[splitPoint:]
	}

	return messages
}

func findSafeSplitPoint(text string, maxLen int) int {
	// ищем пробел или перевод строки, не ломая HTML-теги
	for i := maxLen - 1; i > maxLen/2; i-- {
		if i >= len(text) {
			continue
		}
		if isInsideHTMLTag(text, i) {
			continue
		}

		if text[i] == '\n' || text[i] == ' ' {
			return i + 1
		}
	}

	// внутри тега - ищем конец
	if maxLen < len(text) && isInsideHTMLTag(text, maxLen) {
		for i := maxLen; i < len(text); i++ {
			if text[i] == '>' {
				for j := i + 1; j < len(text) && j < i+50; j++ {
					if text[j] == '\n' || text[j] == ' ' {
						return j + 1
					}
				}
				return i + 1
			}
		}
	}

	for i := maxLen - 1; i > 0; i-- {
		if text[i] == ' ' || text[i] == '\n' {
			return i + 1
		}
	}

	return maxLen
}

// runeBoundary сдвигает точку разреза назад до начала UTF-8 символа
func runeBoundary(text string, pos int) int {
	p := pos
	for p > 0 && p < len(text) && text[p]&0xC0 == 0x80 {
		p--
	}
	if p == 0 {
		return pos
	}
	return p
}

func isInsideHTMLTag(text string, pos int) bool {
	if pos >= len(text) || pos < 0 {
		return false
	}
	for i := pos; i >= 0; i-- {
		if text[i] == '>' {
			return false
		}
		if text[i] == '<' {
			return true
		}
	}
	return false
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}
