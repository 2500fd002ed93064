// Package layout composes lane assignment and date mapping into a single
// render-ready snapshot.
//
// Layout is a pure function of the item collection and the Options: it holds
// no state between calls, and calling it twice with the same input yields
// deeply equal results.
package layout

import (
	"ganttline/internal/coords"
	"ganttline/internal/datemath"
	"ganttline/internal/lanes"
	appLog "ganttline/internal/log"
	"ganttline/internal/model"
)

// Options are the fixed layout constants.
type Options struct {
	ColumnWidth    int
	LaneHeight     int
	LaneGap        int
	TopPadding     int
	BottomPadding  int
	MajorTickEvery int

	// EmptyExtent is the window laid out when there are no items.
	EmptyExtent coords.Extent
}

// DefaultOptions returns the stock geometry: 60px days, 36px lanes with a
// 6px gap and 8px insets above and below.
func DefaultOptions() Options {
	return Options{
		ColumnWidth:    60,
		LaneHeight:     36,
		LaneGap:        6,
		TopPadding:     8,
		BottomPadding:  8,
		MajorTickEvery: 7,
		EmptyExtent:    coords.DefaultExtent,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.ColumnWidth <= 0 {
		o.ColumnWidth = d.ColumnWidth
	}
	if o.LaneHeight <= 0 {
		o.LaneHeight = d.LaneHeight
	}
	if o.LaneGap < 0 {
		o.LaneGap = 0
	}
	if o.TopPadding < 0 {
		o.TopPadding = 0
	}
	if o.BottomPadding < 0 {
		o.BottomPadding = 0
	}
	if o.MajorTickEvery <= 0 {
		o.MajorTickEvery = d.MajorTickEvery
	}
	if o.EmptyExtent.Start.IsZero() || o.EmptyExtent.End.Before(o.EmptyExtent.Start) {
		o.EmptyExtent = d.EmptyExtent
	}
	return o
}

// Geometry is the rectangle of one bar in content coordinates.
type Geometry struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Placed is an assigned item together with its rectangle.
type Placed struct {
	model.AssignedItem
	Geometry
}

// Column is one day of the horizontal axis.
type Column struct {
	Date  datemath.Date `json:"date"`
	Label string        `json:"label"`
	X     int           `json:"x"`
	// Major marks weekly grid lines.
	Major bool `json:"major"`
	// Shaded marks every other column for the alternating background.
	Shaded bool `json:"shaded"`
}

// Result is the immutable snapshot consumed by renderers.
type Result struct {
	Extent      coords.Extent `json:"extent"`
	Items       []Placed      `json:"items"`
	Columns     []Column      `json:"columns"`
	Lanes       int           `json:"lanes"`
	ColumnWidth int           `json:"column_width"`
	TotalWidth  int           `json:"total_width"`
	TotalHeight int           `json:"total_height"`
}

// Engine lays out item collections with fixed Options.
type Engine struct {
	opts Options
}

func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts.normalized()}
}

func (e *Engine) Options() Options { return e.opts }

// Mapper returns the coordinate mapper for items.
func (e *Engine) Mapper(items []model.Item) coords.Mapper {
	return coords.NewMapper(coords.ExtentOr(items, e.opts.EmptyExtent), e.opts.ColumnWidth)
}

// Layout computes the full snapshot for items. It fails only when an item
// has an inverted range or an id is repeated.
func (e *Engine) Layout(items []model.Item) (*Result, error) {
	if err := model.ValidateAll(items); err != nil {
		return nil, err
	}

	o := e.opts
	m := e.Mapper(items)
	assigned := lanes.Assign(items)
	pitch := o.LaneHeight + o.LaneGap

	res := &Result{
		Extent:      m.Extent,
		Items:       make([]Placed, 0, len(assigned)),
		Lanes:       lanes.Count(assigned),
		ColumnWidth: o.ColumnWidth,
		TotalWidth:  m.Width(),
	}

	maxLane := 0
	for _, a := range assigned {
		if a.Lane > maxLane {
			maxLane = a.Lane
		}
		res.Items = append(res.Items, Placed{
			AssignedItem: a,
			Geometry: Geometry{
				X:      m.DateToX(a.Start),
				Y:      a.Lane*pitch + o.TopPadding,
				Width:  m.SpanToWidth(a.Start, a.End),
				Height: o.LaneHeight,
			},
		})
	}
	res.TotalHeight = maxLane*pitch + o.LaneHeight + o.TopPadding + o.BottomPadding

	dates := m.Columns()
	res.Columns = make([]Column, len(dates))
	for i, d := range dates {
		res.Columns[i] = Column{
			Date:   d,
			Label:  d.Label(),
			X:      m.DateToX(d),
			Major:  IsMajor(i, o.MajorTickEvery),
			Shaded: i%2 == 1,
		}
	}

	appLog.Debug("layout computed",
		"items", len(items),
		"lanes", res.Lanes,
		"days", len(dates),
		"extent_start", res.Extent.Start.String(),
		"extent_end", res.Extent.End.String(),
	)
	return res, nil
}

// IsMajor reports whether column index i carries a major tick.
func IsMajor(i, every int) bool {
	if every <= 0 {
		return false
	}
	return i%every == 0
}

// Find returns the placed item with the given id.
func (r *Result) Find(id string) (Placed, bool) {
	for _, p := range r.Items {
		if p.ID == id {
			return p, true
		}
	}
	return Placed{}, false
}
