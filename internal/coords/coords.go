// Package coords maps calendar days onto the horizontal pixel grid shared
// by the axis header and the content area.
package coords

import (
	"ganttline/internal/datemath"
	"ganttline/internal/model"
)

// Extent is the inclusive date range covered by a set of items.
type Extent struct {
	Start datemath.Date `json:"start"`
	End   datemath.Date `json:"end"`
}

// DefaultExtent is the placeholder window used when there are no items.
var DefaultExtent = Extent{
	Start: datemath.New(2021, 1, 1),
	End:   datemath.New(2021, 12, 31),
}

// ExtentOf returns the earliest start and latest end across items, or
// DefaultExtent for an empty set.
func ExtentOf(items []model.Item) Extent {
	return ExtentOr(items, DefaultExtent)
}

// ExtentOr is ExtentOf with a caller-supplied empty-set fallback.
func ExtentOr(items []model.Item, empty Extent) Extent {
	if len(items) == 0 {
		return empty
	}
	ext := Extent{Start: items[0].Start, End: items[0].End}
	for _, it := range items[1:] {
		ext.Start = datemath.Min(ext.Start, it.Start)
		ext.End = datemath.Max(ext.End, it.End)
	}
	return ext
}

// Days returns the number of day columns in the extent.
func (e Extent) Days() int {
	return datemath.DaysBetween(e.Start, e.End) + 1
}

// Mapper converts dates inside an Extent to pixel offsets.
type Mapper struct {
	Extent      Extent
	ColumnWidth int
}

func NewMapper(ext Extent, columnWidth int) Mapper {
	return Mapper{Extent: ext, ColumnWidth: columnWidth}
}

// DateToX returns the left edge of d's column. Dates outside the extent
// produce offsets outside [0, Width).
func (m Mapper) DateToX(d datemath.Date) int {
	return datemath.DaysBetween(m.Extent.Start, d) * m.ColumnWidth
}

// SpanToWidth returns the width of the inclusive range [start, end]. A
// single-day span is exactly one column wide.
func (m Mapper) SpanToWidth(start, end datemath.Date) int {
	return (datemath.DaysBetween(start, end) + 1) * m.ColumnWidth
}

// Days returns the number of columns.
func (m Mapper) Days() int { return m.Extent.Days() }

// Width returns the total canvas width.
func (m Mapper) Width() int { return m.Days() * m.ColumnWidth }

// Columns walks the extent day by day, both ends included.
func (m Mapper) Columns() []datemath.Date {
	n := m.Days()
	if n <= 0 {
		return []datemath.Date{}
	}
	cols := make([]datemath.Date, n)
	for i := range cols {
		cols[i] = datemath.AddDays(m.Extent.Start, i)
	}
	return cols
}
