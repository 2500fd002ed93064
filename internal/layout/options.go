package layout

import (
	"fmt"

	"ganttline/internal/config"
	"ganttline/internal/coords"
	"ganttline/internal/datemath"
)

// OptionsFromConfig converts the layout section of the config file.
func OptionsFromConfig(lc config.LayoutConfig) (Options, error) {
	o := Options{
		ColumnWidth:    lc.ColumnWidth,
		LaneHeight:     lc.LaneHeight,
		LaneGap:        lc.LaneGap,
		TopPadding:     lc.TopPadding,
		BottomPadding:  lc.BottomPadding,
		MajorTickEvery: lc.MajorTickEvery,
	}
	if lc.EmptyStart == "" && lc.EmptyEnd == "" {
		return o.normalized(), nil
	}
	start, err := datemath.Parse(lc.EmptyStart)
	if err != nil {
		return Options{}, fmt.Errorf("layout.empty_start: %w", err)
	}
	end, err := datemath.Parse(lc.EmptyEnd)
	if err != nil {
		return Options{}, fmt.Errorf("layout.empty_end: %w", err)
	}
	if end.Before(start) {
		return Options{}, fmt.Errorf("layout: empty_end %s is before empty_start %s", end, start)
	}
	o.EmptyExtent = coords.Extent{Start: start, End: end}
	return o.normalized(), nil
}
