package model

import (
	"errors"
	"fmt"
	"time"

	"ganttline/internal/datemath"
)

// ErrDuplicateID is returned when a collection repeats an item id.
var ErrDuplicateID = errors.New("duplicate item id")

var errMissingDate = errors.New("missing date")

// Item is a single time-bounded entry on the timeline. Start and End are
// whole days and both are inclusive.
type Item struct {
	ID    string        `yaml:"id" json:"id"`
	Name  string        `yaml:"name" json:"name"`
	Start datemath.Date `yaml:"start" json:"start"`
	End   datemath.Date `yaml:"end" json:"end"`
}

// AssignedItem is an Item tagged with the lane it was placed in. It is
// derived on every layout pass and never stored.
type AssignedItem struct {
	Item
	Lane int `json:"lane"`
}

// InvalidRangeError reports an item whose end lies before its start.
type InvalidRangeError struct {
	ID    string
	Start datemath.Date
	End   datemath.Date
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("item %q: end %s is before start %s", e.ID, e.End, e.Start)
}

// Validate rejects missing dates and inverted ranges.
func (it Item) Validate() error {
	if it.Start.IsZero() {
		return fmt.Errorf("item %q: start: %w", it.ID, &datemath.InvalidDateError{Value: "", Err: errMissingDate})
	}
	if it.End.IsZero() {
		return fmt.Errorf("item %q: end: %w", it.ID, &datemath.InvalidDateError{Value: "", Err: errMissingDate})
	}
	if it.End.Before(it.Start) {
		return &InvalidRangeError{ID: it.ID, Start: it.Start, End: it.End}
	}
	return nil
}

// ValidateAll validates every item and checks that ids are unique.
func ValidateAll(items []Item) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return err
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateID, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}

// Occurrence represents a single concrete instance of a calendar event
// (after recurrence expansion and timezone normalization). The ICS importer
// turns occurrences into Items.
type Occurrence struct {
	SourceID string // calendar source ID
	UID      string // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, typically derived from the local start time.
	InstanceKey string
	Recurring   bool

	Summary string
	AllDay  bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}
