// Package datemath implements whole-day calendar arithmetic.
//
// A Date is anchored at UTC midnight and carries no time-of-day or zone, so
// day differences are exact integer divisions and never drift across DST
// boundaries.
package datemath

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the only accepted textual form of a Date.
const Layout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// Date is a calendar day. The zero value is 0001-01-01.
type Date struct {
	t time.Time
}

// InvalidDateError reports a value that could not be parsed as YYYY-MM-DD.
type InvalidDateError struct {
	Value string
	Err   error
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", e.Value)
}

func (e *InvalidDateError) Unwrap() error { return e.Err }

// New returns the Date for the given year, month and day. Out-of-range
// components are normalized the way time.Date normalizes them.
func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Parse parses a YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return Date{}, &InvalidDateError{Value: s, Err: errors.New("empty value")}
	}
	t, err := time.ParseInLocation(Layout, v, time.UTC)
	if err != nil {
		return Date{}, &InvalidDateError{Value: s, Err: err}
	}
	return Date{t: t}, nil
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromTime returns the calendar day of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return New(y, m, d)
}

// Time returns the UTC midnight instant of d.
func (d Date) Time() time.Time { return d.t }

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) String() string { return d.t.Format(Layout) }

// Label is the short axis label, e.g. "Jan 2".
func (d Date) Label() string { return d.t.Format("Jan 2") }

// DaysBetween returns the whole-day difference b - a.
func DaysBetween(a, b Date) int {
	return int((b.t.Unix() - a.t.Unix()) / secondsPerDay)
}

// AddDays returns d shifted by n days.
func AddDays(d Date, n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// Compare returns -1, 0 or +1 depending on whether a is before, equal to or
// after b.
func Compare(a, b Date) int { return a.t.Compare(b.t) }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

func Min(a, b Date) Date {
	if b.Before(a) {
		return b
	}
	return a
}

func Max(a, b Date) Date {
	if b.After(a) {
		return b
	}
	return a
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
