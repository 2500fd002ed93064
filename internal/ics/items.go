package ics

import (
	"context"
	"errors"
	"strings"
	"time"

	"ganttline/internal/datemath"
	appLog "ganttline/internal/log"
	"ganttline/internal/model"
)

// ToItems turns occurrences into timeline items. Each occurrence covers the
// calendar days it touches; an end that falls exactly on midnight (the
// exclusive DTEND of all-day events) does not claim the following day.
//
// Recurring instances get the id "UID@InstanceKey". Occurrences whose id was
// already produced are dropped.
func ToItems(occs []model.Occurrence) []model.Item {
	items := make([]model.Item, 0, len(occs))
	seen := make(map[string]struct{}, len(occs))

	for _, occ := range occs {
		id := occ.UID
		if occ.Recurring {
			id = occ.UID + "@" + occ.InstanceKey
		}
		if occ.SourceID != "" {
			id = occ.SourceID + ":" + id
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		start := datemath.FromTime(occ.Start)
		end := datemath.FromTime(occ.End)
		if occ.End.After(occ.Start) && isMidnight(occ.End) {
			end = datemath.AddDays(end, -1)
		}
		if end.Before(start) {
			end = start
		}

		name := strings.TrimSpace(occ.Summary)
		if name == "" {
			name = "(untitled)"
		}

		items = append(items, model.Item{
			ID:    id,
			Name:  name,
			Start: start,
			End:   end,
		})
	}
	return items
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

// ImportConfig configures Import.
type ImportConfig struct {
	Sources  []Source
	CacheDir string
	Location *time.Location
	// Now anchors the window; zero means time.Now().
	Now          time.Time
	BackfillDays int
	HorizonDays  int
}

// Import fetches, parses and expands every source and returns the items per
// source ID. Sources that fail entirely are reported in the error slice and
// omitted from the map.
func Import(ctx context.Context, cfg ImportConfig) (map[string][]model.Item, []error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(loc)
	rangeStart := now.AddDate(0, 0, -cfg.BackfillDays)
	rangeEnd := now.AddDate(0, 0, cfg.HorizonDays)

	fetcher := NewFetcher(cfg.CacheDir)
	results, errs := fetcher.FetchAll(ctx, cfg.Sources)

	out := make(map[string][]model.Item, len(results))
	for _, res := range results {
		events, err := ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		expanded, err := ExpandOccurrences(events, ExpandConfig{
			DisplayLocation: loc,
			RangeStart:      rangeStart,
			RangeEnd:        rangeEnd,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		items := ToItems(expanded.Occurrences)
		out[res.Source.ID] = items
		appLog.Info("ics import completed",
			"id", res.Source.ID,
			"from_cache", res.FromCache,
			"items", len(items),
			"truncated", len(expanded.TruncatedEvents),
		)
	}
	return out, errs
}

// JoinErrors flattens per-source errors for logging.
func JoinErrors(errs []error) error {
	return errors.Join(errs...)
}
