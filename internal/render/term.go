package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"ganttline/internal/lanes"
	"ganttline/internal/layout"
	"ganttline/internal/model"
)

// TermOptions controls the terminal renderer.
type TermOptions struct {
	// CellWidth is the number of terminal cells per day.
	CellWidth int
	// NoColor renders plain text.
	NoColor bool
}

func DefaultTermOptions() TermOptions {
	return TermOptions{CellWidth: 4}
}

// Terminal writes one text row per lane. Pixel geometry is scaled down to
// CellWidth cells per day column; bars carry their names truncated to fit.
func Terminal(w io.Writer, res *layout.Result, opts TermOptions) error {
	if opts.CellWidth <= 0 {
		opts.CellWidth = DefaultTermOptions().CellWidth
	}
	cw := opts.CellWidth

	header := lipgloss.NewStyle().Foreground(lipgloss.Color("#64748b"))
	bar := lipgloss.NewStyle().
		Background(lipgloss.Color("#3b82f6")).
		Foreground(lipgloss.Color("#ffffff"))
	rule := lipgloss.NewStyle().Foreground(lipgloss.Color("#e2e8f0"))
	if opts.NoColor {
		header, bar, rule = lipgloss.NewStyle(), lipgloss.NewStyle(), lipgloss.NewStyle()
	}

	days := len(res.Columns)
	rows := []string{header.Render(axisRow(res, cw))}
	rows = append(rows, rule.Render(tickRow(res, cw)))

	for _, laneItems := range groupPlaced(res) {
		var b strings.Builder
		cursor := 0
		for _, p := range laneItems {
			startCol := p.X / res.ColumnWidth
			span := p.Width / res.ColumnWidth
			if startCol > cursor {
				b.WriteString(strings.Repeat(" ", (startCol-cursor)*cw))
			}
			cells := span * cw
			label := " " + p.Name
			label = runewidth.Truncate(label, cells, "…")
			label = runewidth.FillRight(label, cells)
			b.WriteString(bar.Render(label))
			cursor = startCol + span
		}
		if cursor < days {
			b.WriteString(strings.Repeat(" ", (days-cursor)*cw))
		}
		rows = append(rows, b.String())
	}

	rows = append(rows, header.Render(fmt.Sprintf("%s → %s  %d items, %d lanes",
		res.Extent.Start, res.Extent.End, len(res.Items), res.Lanes)))

	_, err := io.WriteString(w, lipgloss.JoinVertical(lipgloss.Left, rows...)+"\n")
	return err
}

// groupPlaced splits placed items into lanes ordered by start.
func groupPlaced(res *layout.Result) [][]layout.Placed {
	byID := make(map[string]layout.Placed, len(res.Items))
	for _, p := range res.Items {
		byID[p.ID] = p
	}
	assigned := make([]model.AssignedItem, 0, len(res.Items))
	for _, p := range res.Items {
		assigned = append(assigned, p.AssignedItem)
	}
	groups := lanes.Group(assigned)
	out := make([][]layout.Placed, len(groups))
	for i, g := range groups {
		out[i] = make([]layout.Placed, 0, len(g))
		for _, a := range g {
			out[i] = append(out[i], byID[a.ID])
		}
	}
	return out
}

// axisRow labels every major column; labels that would run into the next
// major column are cut.
func axisRow(res *layout.Result, cw int) string {
	total := len(res.Columns) * cw
	row := []rune(strings.Repeat(" ", total))
	for i, c := range res.Columns {
		if !c.Major {
			continue
		}
		label := runewidth.Truncate(c.Label, total-i*cw, "")
		col := i * cw
		for _, r := range label {
			if col >= total {
				break
			}
			row[col] = r
			col++
		}
	}
	return string(row)
}

func tickRow(res *layout.Result, cw int) string {
	var b strings.Builder
	for _, c := range res.Columns {
		if c.Major {
			b.WriteString("┬")
			b.WriteString(strings.Repeat("─", cw-1))
		} else {
			b.WriteString(strings.Repeat("─", cw))
		}
	}
	return b.String()
}
