// Package lanes partitions items into the fewest non-overlapping rows.
//
// Items are placed first-fit in start order: each item goes into the lowest
// lane whose last item ends strictly before the item starts. Two items that
// share a day (one ends on the day the other starts) overlap, because both
// would be drawn in the same day column.
//
// For interval sets this greedy order is optimal: the number of lanes equals
// the overlap depth, the largest number of items covering any single day.
package lanes

import (
	"sort"

	"ganttline/internal/datemath"
	"ganttline/internal/model"
)

// Assign tags every item with a lane index. The result holds one entry per
// input item in placement order (start ascending, ties in input order).
func Assign(items []model.Item) []model.AssignedItem {
	if len(items) == 0 {
		return []model.AssignedItem{}
	}

	sorted := make([]model.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	// ends[i] is the end date of the item most recently placed in lane i.
	ends := make([]datemath.Date, 0, 4)
	out := make([]model.AssignedItem, 0, len(sorted))

	for _, it := range sorted {
		lane := -1
		for i, end := range ends {
			if end.Before(it.Start) {
				lane = i
				break
			}
		}
		if lane < 0 {
			ends = append(ends, it.End)
			lane = len(ends) - 1
		} else {
			ends[lane] = it.End
		}
		out = append(out, model.AssignedItem{Item: it, Lane: lane})
	}
	return out
}

// Count returns the number of lanes used by an assignment.
func Count(assigned []model.AssignedItem) int {
	n := 0
	for _, a := range assigned {
		if a.Lane+1 > n {
			n = a.Lane + 1
		}
	}
	return n
}

// Group returns the lanes of an assignment in index order. Items within a
// lane are ordered by start date.
func Group(assigned []model.AssignedItem) [][]model.AssignedItem {
	groups := make([][]model.AssignedItem, Count(assigned))
	for _, a := range assigned {
		groups[a.Lane] = append(groups[a.Lane], a)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			return g[i].Start.Before(g[j].Start)
		})
	}
	return groups
}

// Depth returns the overlap depth of items: the maximum number of items
// whose ranges include the same day.
func Depth(items []model.Item) int {
	type edge struct {
		at    datemath.Date
		delta int
	}
	edges := make([]edge, 0, 2*len(items))
	for _, it := range items {
		edges = append(edges,
			edge{at: it.Start, delta: +1},
			// Ranges are inclusive, so the item stops counting the day after End.
			edge{at: datemath.AddDays(it.End, 1), delta: -1},
		)
	}
	sort.Slice(edges, func(i, j int) bool {
		if c := datemath.Compare(edges[i].at, edges[j].at); c != 0 {
			return c < 0
		}
		return edges[i].delta < edges[j].delta
	})

	cur, best := 0, 0
	for _, e := range edges {
		cur += e.delta
		if cur > best {
			best = cur
		}
	}
	return best
}
