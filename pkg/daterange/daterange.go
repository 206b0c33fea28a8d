// Package daterange models a stay: an inclusive start date and an exclusive
// end date, both normalised to midnight UTC.
package daterange

import (
	"errors"
	"fmt"
	"time"
)

const layout = "2006-01-02"

var ErrInvalidRange = errors.New("start date must be before end date")

type Range struct {
	start time.Time
	end   time.Time
}

func New(start, end time.Time) (Range, error) {
	s, e := Day(start), Day(end)
	if !s.Before(e) {
		return Range{}, ErrInvalidRange
	}
	return Range{start: s, end: e}, nil
}

// Parse builds a Range from two YYYY-MM-DD strings.
func Parse(start, end string) (Range, error) {
	s, err := time.Parse(layout, start)
	if err != nil {
		return Range{}, fmt.Errorf("parse start date: %w", err)
	}
	e, err := time.Parse(layout, end)
	if err != nil {
		return Range{}, fmt.Errorf("parse end date: %w", err)
	}
	return New(s, e)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r Range) Start() time.Time { return r.start }
func (r Range) End() time.Time   { return r.end }

func (r Range) IsZero() bool { return r.start.IsZero() && r.end.IsZero() }

func (r Range) Nights() int {
	return int(r.end.Sub(r.start).Hours() / 24)
}

// Dates lists every night in the range in ascending order.
func (r Range) Dates() []time.Time {
	out := make([]time.Time, 0, r.Nights())
	for d := r.start; d.Before(r.end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func (r Range) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.start) && d.Before(r.end)
}

func (r Range) ContainsRange(o Range) bool {
	return !o.start.Before(r.start) && !o.end.After(r.end)
}

func (r Range) Overlaps(o Range) bool {
	return r.start.Before(o.end) && r.end.After(o.start)
}

func (r Range) Equal(o Range) bool {
	return r.start.Equal(o.start) && r.end.Equal(o.end)
}

func (r Range) String() string {
	return fmt.Sprintf("%s to %s (%d nights)", r.start.Format(layout), r.end.Format(layout), r.Nights())
}
