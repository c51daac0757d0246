package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/kitbuilder587/efmnb-optimizer/internal/llm"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

var axisColors = map[domain.Axis]lipgloss.Color{
	domain.AxisEmotion:   ColorRed,
	domain.AxisFactual:   ColorGreen,
	domain.AxisMeta:      ColorBlue,
	domain.AxisNarrative: ColorPurple,
	domain.AxisBias:      ColorYellow,
}

const (
	barWidth       = 20
	summaryPreview = 60
	inputPreview   = 40
)

// Renderer prints command results either as indented JSON or as a styled
// terminal report.
type Renderer struct {
	out  io.Writer
	json bool
}

func NewRenderer(out io.Writer, asJSON bool) *Renderer {
	return &Renderer{out: out, json: asJSON}
}

func (r *Renderer) JSON() bool { return r.json }

func (r *Renderer) Analysis(res *domain.AnalysisResult) error {
	if r.json {
		return r.writeJSON(res)
	}

	var b strings.Builder
	for _, axis := range domain.Axes {
		v := res.Score(axis)
		style := lipgloss.NewStyle().Foreground(axisColors[axis])
		fmt.Fprintf(&b, "%s  %-26s %s %.2f\n",
			StyleBold.Render(string(axis)),
			StyleDim.Render(axis.Description()),
			style.Render(ScoreBar(v, barWidth)),
			v,
		)
	}
	if res.Summary != "" {
		b.WriteString("\n" + StyleFg.Render(res.Summary))
	}

	_, err := fmt.Fprintln(r.out, RenderBox("EFMNB analysis", strings.TrimRight(b.String(), "\n")))
	return err
}

type improveJSON struct {
	Original string `json:"original"`
	Improved string `json:"improved"`
	Calls    int    `json:"calls"`
}

func (r *Renderer) Refinement(ref *domain.Refinement, trace bool) error {
	if r.json {
		if trace {
			return r.writeJSON(ref)
		}
		return r.writeJSON(improveJSON{Original: ref.Original, Improved: ref.Final, Calls: ref.Calls})
	}

	var b strings.Builder
	if trace {
		for _, it := range ref.Iterations {
			b.WriteString(Header(fmt.Sprintf("Iteration %d", it.Index)) + "\n")
			b.WriteString(StyleBold.Render("Draft") + "\n" + it.Draft + "\n\n")
			b.WriteString(StyleBold.Render("Critique") + "\n" + it.CriticReport + "\n\n")
			b.WriteString(StyleBold.Render("Verified") + "\n" + it.Verified + "\n\n")
		}
	}
	b.WriteString(Header("Improved prompt") + "\n")
	b.WriteString(ref.Final + "\n\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("%d iterations, %d model calls", len(ref.Iterations), ref.Calls)))

	_, err := fmt.Fprintln(r.out, b.String())
	return err
}

// Progress - строка прогресса PCV для stderr
func (r *Renderer) Progress(iteration int, step domain.Step) string {
	return StyleDim.Render(fmt.Sprintf("iteration %d/%d: %s done", iteration, domain.PCVIterations, step))
}

type batchJSON struct {
	Rows  []domain.BatchRow `json:"rows"`
	Error string            `json:"error,omitempty"`
}

// Batch prints the collected rows. The failure itself is returned by the
// command, so the styled report does not repeat it.
func (r *Renderer) Batch(report *domain.BatchReport) error {
	if r.json {
		out := batchJSON{Rows: report.Rows}
		if out.Rows == nil {
			out.Rows = []domain.BatchRow{}
		}
		if report.Failed != nil {
			out.Error = report.Failed.Error()
		}
		return r.writeJSON(out)
	}

	if len(report.Rows) == 0 {
		_, err := fmt.Fprintln(r.out, StyleDim.Render("No rows analysed."))
		return err
	}

	rows := make([][]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		cells := []string{row.Label}
		for _, v := range row.Scores() {
			cells = append(cells, fmt.Sprintf("%.2f", v))
		}
		cells = append(cells, llm.Truncate(row.Summary, summaryPreview))
		rows = append(rows, cells)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("label", "E", "F", "M", "N", "B", "summary").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return StyleHeader.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	_, err := fmt.Fprintln(r.out, t.Render())
	return err
}

func (r *Renderer) History(entries []domain.HistoryEntry) error {
	if r.json {
		if entries == nil {
			entries = []domain.HistoryEntry{}
		}
		return r.writeJSON(entries)
	}

	if len(entries) == 0 {
		_, err := fmt.Fprintln(r.out, StyleDim.Render("History is empty."))
		return err
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Kind.String(),
			e.Model,
			llm.Truncate(strings.Join(strings.Fields(e.Input), " "), inputPreview),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("when", "kind", "model", "input").
		Rows(rows...)

	_, err := fmt.Fprintln(r.out, t.Render())
	return err
}

func (r *Renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// ScoreBar renders a fixed-width bar like ████████░░░░ for a value in [0,1].
func ScoreBar(v float64, width int) string {
	v = domain.Clamp01(v)
	if width < 1 {
		width = 1
	}
	filled := int(v*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func RenderBox(title string, content string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		Padding(1, 2)

	if title != "" {
		return box.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
	}
	return box.Render(content)
}
