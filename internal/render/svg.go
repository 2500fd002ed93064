// Package render draws a layout.Result. Renderers only read the snapshot;
// every position comes from the layout engine.
package render

import (
	"bufio"
	"fmt"
	"html"
	"io"

	"ganttline/internal/layout"
)

// Style holds colors and chrome sizes shared by the SVG and HTML renderers.
type Style struct {
	AxisHeight int
	// BarInset is the horizontal gap left on each side of a bar so that
	// bars in adjacent days do not touch.
	BarInset int
	FontSize int

	Background string
	AxisFill   string
	GridLine   string
	MajorLine  string
	ShadeFill  string
	BarFill    string
	BarText    string
	AxisText   string
}

func DefaultStyle() Style {
	return Style{
		AxisHeight: 40,
		BarInset:   2,
		FontSize:   12,
		Background: "#ffffff",
		AxisFill:   "#f8fafc",
		GridLine:   "#f1f5f9",
		MajorLine:  "#e2e8f0",
		ShadeFill:  "#fafbfc",
		BarFill:    "#3b82f6",
		BarText:    "#ffffff",
		AxisText:   "#64748b",
	}
}

// SVG writes a standalone SVG document: the date axis on top, the lane
// grid below it, and one rounded bar per item.
func SVG(w io.Writer, res *layout.Result, st Style) error {
	bw := bufio.NewWriter(w)
	width := res.TotalWidth
	height := st.AxisHeight + res.TotalHeight
	cw := res.ColumnWidth

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`+"\n",
		width, height, width, height)
	fmt.Fprintf(bw, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`+"\n", width, height, st.Background)

	// Axis header.
	fmt.Fprintf(bw, `<g class="axis"><rect x="0" y="0" width="%d" height="%d" fill="%s"/>`+"\n", width, st.AxisHeight, st.AxisFill)
	for _, c := range res.Columns {
		if c.Major {
			fmt.Fprintf(bw, `<line x1="%d" y1="0" x2="%d" y2="%d" stroke="%s"/>`+"\n", c.X, c.X, st.AxisHeight, st.MajorLine)
		}
		fmt.Fprintf(bw, `<text x="%d" y="%d" font-size="10" fill="%s" text-anchor="middle">%s</text>`+"\n",
			c.X+cw/2, st.AxisHeight/2+4, st.AxisText, html.EscapeString(c.Label))
	}
	fmt.Fprintf(bw, "</g>\n")

	// Content grid.
	fmt.Fprintf(bw, `<g class="grid" transform="translate(0,%d)">`+"\n", st.AxisHeight)
	for _, c := range res.Columns {
		if c.Shaded {
			fmt.Fprintf(bw, `<rect x="%d" y="0" width="%d" height="%d" fill="%s"/>`+"\n", c.X, cw, res.TotalHeight, st.ShadeFill)
		}
		fmt.Fprintf(bw, `<line x1="%d" y1="0" x2="%d" y2="%d" stroke="%s"/>`+"\n", c.X+cw, c.X+cw, res.TotalHeight, st.GridLine)
	}

	// Bars.
	for _, p := range res.Items {
		bx, bwid := barBox(p.Geometry, st.BarInset)
		fmt.Fprintf(bw, `<g class="item" data-id="%s" data-lane="%d">`, html.EscapeString(p.ID), p.Lane)
		fmt.Fprintf(bw, `<title>%s</title>`, html.EscapeString(TooltipText(p)))
		fmt.Fprintf(bw, `<rect x="%d" y="%d" width="%d" height="%d" rx="6" fill="%s"/>`, bx, p.Y, bwid, p.Height, st.BarFill)
		fmt.Fprintf(bw, `<text x="%d" y="%d" font-size="%d" fill="%s">%s</text>`,
			bx+8, p.Y+p.Height/2+st.FontSize/3, st.FontSize, st.BarText, html.EscapeString(p.Name))
		fmt.Fprintf(bw, "</g>\n")
	}
	fmt.Fprintf(bw, "</g>\n</svg>\n")

	return bw.Flush()
}

// barBox applies the horizontal inset, never shrinking a bar below 1px.
func barBox(g layout.Geometry, inset int) (x, width int) {
	width = g.Width - 2*inset
	if width < 1 {
		return g.X, max(g.Width, 1)
	}
	return g.X + inset, width
}

// TooltipText is the hover text of an item: its name and date range.
func TooltipText(p layout.Placed) string {
	return fmt.Sprintf("%s\n%s → %s", p.Name, p.Start, p.End)
}
