package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date at midnight UTC. The zero Date means "no date";
// 0001-01-01 built through NewDate, DateOf or ParseDate is a real date.
type Date struct {
	time.Time
	set bool
}

// Sentinel bounds for an unbounded report window.
var (
	MinDate = NewDate(0, 1, 1)
	MaxDate = NewDate(9999, 12, 31)

	// AllTime is the range used when the caller supplies none.
	AllTime = DateRange{Start: MinDate, End: MaxDate}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), set: true}
}

// DateOf truncates a timestamp to its calendar date, keeping the wall clock
// date as recorded.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t, set: true}, nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	DateLayout,
}

// ParseTimestamp accepts RFC 3339, HTML datetime-local values and plain dates.
// Values without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: unsupported format", s)
}

// IsSet reports whether d holds a date rather than the zero value.
func (d Date) IsSet() bool {
	return d.set
}

// IsZero reports whether d is the zero Date. It shadows time.Time.IsZero,
// which is also true for the real date 0001-01-01.
func (d Date) IsZero() bool {
	return !d.set
}

// Validate requires a date inside [MinDate, MaxDate].
func (d Date) Validate() error {
	if !d.set {
		return errors.New("date is missing")
	}
	if d.Before(MinDate) || d.After(MaxDate) {
		return fmt.Errorf("%w: %s", ErrDateOutOfRange, d)
	}
	return nil
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.set {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is inclusive on both ends.
type DateRange struct {
	Start Date `json:"start_date"`
	End   Date `json:"end_date"`
}

// Resolve substitutes the AllTime bound for every side that was not
// supplied and rejects inverted ranges. Supplied bounds are never replaced.
func (r DateRange) Resolve() (DateRange, error) {
	if !r.Start.IsSet() {
		r.Start = AllTime.Start
	}
	if !r.End.IsSet() {
		r.End = AllTime.End
	}
	if r.Start.After(r.End) {
		return DateRange{}, fmt.Errorf("%w: %s > %s", ErrInvalidDateRange, r.Start, r.End)
	}
	return r, nil
}

// Contains reports whether d lies within the range, bounds included.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}
