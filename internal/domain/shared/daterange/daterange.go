package daterange

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const layout = "2006-01-02"

var (
	ErrInvalidDate  = errors.New("daterange: invalid calendar date")
	ErrInvalidRange = errors.New("daterange: end must not be before start")
)

// Date is a calendar day in its normalized YYYY-MM-DD form. The string form
// is the lookup key for every per-date structure, so values must only be
// built through Parse, FromTime or Normalize.
type Date string

func Parse(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidDate
	}
	if len(raw) > len(layout) {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return "", ErrInvalidDate
		}
		return FromTime(ts), nil
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return "", ErrInvalidDate
	}
	return Date(t.Format(layout)), nil
}

func MustParse(raw string) Date {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// FromTime drops the time of day; the calendar day is taken in UTC.
func FromTime(t time.Time) Date {
	return Date(t.UTC().Format(layout))
}

// Normalize turns a raw document value into a Date.
func Normalize(value any) (Date, error) {
	switch v := value.(type) {
	case Date:
		return Parse(string(v))
	case string:
		return Parse(v)
	case time.Time:
		if v.IsZero() {
			return "", ErrInvalidDate
		}
		return FromTime(v), nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return "", ErrInvalidDate
		}
		return FromTime(*v), nil
	case primitive.DateTime:
		return FromTime(v.Time()), nil
	default:
		return "", ErrInvalidDate
	}
}

func (d Date) String() string { return string(d) }

func (d Date) IsZero() bool { return d == "" }

func (d Date) Time() time.Time {
	t, _ := time.Parse(layout, string(d))
	return t
}

func (d Date) AddDays(n int) Date {
	return Date(d.Time().AddDate(0, 0, n).Format(layout))
}

func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) Before(other Date) bool { return d < other }

func (d Date) After(other Date) bool { return d > other }

// DaysBetween returns the number of nights from a to b (negative when b < a).
func DaysBetween(a, b Date) int {
	return int((b.Time().Unix() - a.Time().Unix()) / 86400)
}

// Range is an inclusive span of calendar days.
type Range struct {
	Start Date
	End   Date
}

func New(start, end Date) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrInvalidDate
	}
	if r.End.Before(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Nights counts stay nights, i.e. End minus Start.
func (r Range) Nights() int {
	return DaysBetween(r.Start, r.End)
}

func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r Range) Overlaps(other Range) bool {
	return !r.End.Before(other.Start) && !other.End.Before(r.Start)
}

// Expand lists every date of the range, both ends included.
func (r Range) Expand() []Date {
	if r.Validate() != nil {
		return nil
	}
	out := make([]Date, 0, r.Nights()+1)
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// StayNights lists the nights of a stay: Start up to but excluding End.
func (r Range) StayNights() []Date {
	if r.Validate() != nil || r.Start == r.End {
		return nil
	}
	out := make([]Date, 0, r.Nights())
	for d := r.Start; d.Before(r.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// DatesInRange parses both ends and expands the inclusive range.
func DatesInRange(start, end string) ([]Date, error) {
	s, err := Parse(start)
	if err != nil {
		return nil, err
	}
	e, err := Parse(end)
	if err != nil {
		return nil, err
	}
	r, err := New(s, e)
	if err != nil {
		return nil, err
	}
	return r.Expand(), nil
}
