// Package datetime provides the timezone-normalized Instant and Interval
// value types every ordering and overlap decision in calstate relies on.
//
// An Instant stores an absolute UTC time truncated to the minute together
// with the UTC offset it was built from. Comparisons only look at the
// absolute time; the offset is re-applied when rendering or doing calendar
// arithmetic, so "add one day" means one day on the wall clock the value
// came from.
package datetime

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the default Format layout.
const DateLayout = "2006-01-02"

var (
	ErrInvalidValue = errors.New("invalid date value")
	ErrInvalidRange = errors.New("end date must be after start date")
	ErrInvalidUnit  = errors.New("unsupported unit")
)

// parseLayouts are tried in order. Layouts carrying a zone keep it; the
// compact iCalendar UTC form ends in a literal Z and is read as UTC; the
// others resolve against the location passed to ParseIn.
var parseLayouts = []struct {
	layout string
	utc    bool
}{
	{layout: time.RFC3339Nano},
	{layout: "2006-01-02T15:04Z07:00"},
	{layout: "2006-01-02 15:04:05Z07:00"},
	{layout: "2006-01-02 15:04:05"},
	{layout: "2006-01-02T15:04:05"},
	{layout: "2006-01-02 15:04"},
	{layout: "2006-01-02T15:04"},
	{layout: "2006-01-02"},
	{layout: "20060102T150405Z", utc: true},
	{layout: "20060102T150405"},
	{layout: "20060102"},
}

// Instant is an immutable point in time at minute resolution.
type Instant struct {
	t      time.Time // UTC
	offset int       // minutes east of UTC at construction
}

// FromTime normalizes t to the start of its minute and records its offset.
func FromTime(t time.Time) Instant {
	_, off := t.Zone()
	return Instant{
		t:      t.Truncate(time.Minute).UTC(),
		offset: off / 60,
	}
}

// Now returns the current minute in the local zone.
func Now() Instant {
	return FromTime(time.Now())
}

// FromUnixMilli builds an Instant from a unix timestamp in milliseconds,
// displayed in loc (UTC when loc is nil).
func FromUnixMilli(ms int64, loc *time.Location) Instant {
	if loc == nil {
		loc = time.UTC
	}
	return FromTime(time.UnixMilli(ms).In(loc))
}

// Parse parses raw using the local zone for values without an offset.
func Parse(raw string) (Instant, error) {
	return ParseIn(raw, time.Local)
}

// ParseIn parses raw, resolving values without an explicit offset in loc.
func ParseIn(raw string, loc *time.Location) (Instant, error) {
	if loc == nil {
		loc = time.Local
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return Instant{}, fmt.Errorf("%w: empty", ErrInvalidValue)
	}
	for _, p := range parseLayouts {
		in := loc
		if p.utc {
			in = time.UTC
		}
		if t, err := time.ParseInLocation(p.layout, s, in); err == nil {
			return FromTime(t), nil
		}
	}
	return Instant{}, fmt.Errorf("%w: %q", ErrInvalidValue, raw)
}

// MustParseIn is ParseIn for literals known to be valid.
func MustParseIn(raw string, loc *time.Location) Instant {
	i, err := ParseIn(raw, loc)
	if err != nil {
		panic(err)
	}
	return i
}

// IsZero reports whether i is the zero Instant.
func (i Instant) IsZero() bool { return i.t.IsZero() }

// Time returns the absolute time in UTC.
func (i Instant) Time() time.Time { return i.t }

// Offset returns the source UTC offset in minutes.
func (i Instant) Offset() int { return i.offset }

// UnixMilli returns the unix timestamp in milliseconds.
func (i Instant) UnixMilli() int64 { return i.t.UnixMilli() }

// Local returns the absolute time shifted into the source offset.
func (i Instant) Local() time.Time { return i.view() }

func (i Instant) zone() *time.Location {
	if i.offset == 0 {
		return time.UTC
	}
	return time.FixedZone("", i.offset*60)
}

func (i Instant) view() time.Time {
	return i.t.In(i.zone())
}

// Format renders the offset view with a time.Format layout. An empty
// layout yields DateLayout.
func (i Instant) Format(layout string) string {
	if layout == "" {
		layout = DateLayout
	}
	return i.view().Format(layout)
}

func (i Instant) String() string {
	return i.Format("")
}

// Diff returns other - i expressed in unit, truncated toward zero.
// A later other gives a positive result. unit must be one of the declared
// constants; anything else panics.
func (i Instant) Diff(other Instant, unit Unit) int64 {
	if d, ok := unit.fixed(); ok {
		return int64(other.t.Sub(i.t) / d)
	}
	switch unit {
	case Months:
		return monthsBetween(i.view(), other.t.In(i.zone()))
	case Years:
		return monthsBetween(i.view(), other.t.In(i.zone())) / 12
	}
	panic(fmt.Sprintf("datetime: Diff: %v: %s", ErrInvalidUnit, unit))
}

// Add returns a new Instant advanced by value units on the source wall
// clock. Months and years clamp to the last day of the target month.
// unit must be one of the declared constants; anything else panics.
func (i Instant) Add(value int, unit Unit) Instant {
	v := i.view()
	switch unit {
	case Seconds:
		v = v.Add(time.Duration(value) * time.Second)
	case Minutes:
		v = v.Add(time.Duration(value) * time.Minute)
	case Hours:
		v = v.Add(time.Duration(value) * time.Hour)
	case Days:
		v = v.AddDate(0, 0, value)
	case Weeks:
		v = v.AddDate(0, 0, 7*value)
	case Months:
		v = addMonths(v, value)
	case Years:
		v = addMonths(v, 12*value)
	default:
		panic(fmt.Sprintf("datetime: Add: %v: %s", ErrInvalidUnit, unit))
	}
	return FromTime(v)
}

// Compare returns -1, 0 or +1 ordering i against other.
func (i Instant) Compare(other Instant) int { return i.t.Compare(other.t) }

func (i Instant) IsEqual(other Instant) bool      { return i.t.Equal(other.t) }
func (i Instant) IsBefore(other Instant) bool     { return i.t.Before(other.t) }
func (i Instant) IsAfter(other Instant) bool      { return i.t.After(other.t) }
func (i Instant) IsOnOrBefore(other Instant) bool { return !i.t.After(other.t) }
func (i Instant) IsOnOrAfter(other Instant) bool  { return !i.t.Before(other.t) }

// IsBetween reports whether i lies inside iv under the given bounds.
func (i Instant) IsBetween(iv Interval, b Bounds) bool {
	if b == Open {
		return i.IsAfter(iv.start) && i.IsBefore(iv.end)
	}
	return i.IsOnOrAfter(iv.start) && i.IsOnOrBefore(iv.end)
}

// Range returns the week, month or year containing i, from its first day
// to its last day, both at midnight. Weeks start on Sunday.
func (i Instant) Range(unit Unit) (Interval, error) {
	return i.RangeFrom(unit, time.Sunday)
}

// RangeFrom is Range with an explicit first day of the week.
func (i Instant) RangeFrom(unit Unit, weekStart time.Weekday) (Interval, error) {
	day := startOfDay(i.view())
	var first, last time.Time

	switch unit {
	case Weeks:
		back := (int(day.Weekday()) - int(weekStart) + 7) % 7
		first = day.AddDate(0, 0, -back)
		last = first.AddDate(0, 0, 6)
	case Months:
		first = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		last = first.AddDate(0, 1, -1)
	case Years:
		first = time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, day.Location())
		last = time.Date(day.Year(), time.December, 31, 0, 0, 0, 0, day.Location())
	default:
		return Interval{}, fmt.Errorf("%w: range over %s", ErrInvalidUnit, unit)
	}

	return NewInterval(FromTime(first), FromTime(last))
}

// MarshalText renders the offset view as RFC 3339.
func (i Instant) MarshalText() ([]byte, error) {
	return []byte(i.view().Format(time.RFC3339)), nil
}

// UnmarshalText parses text with Parse; values without an offset resolve
// against time.Local.
func (i *Instant) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// addMonths moves t by n calendar months, clamping the day of month
// (Jan 31 + 1 month is the last day of February).
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), first.Location()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// monthsBetween counts whole calendar months from a to b, truncated
// toward zero. Both times must share a location.
func monthsBetween(a, b time.Time) int64 {
	m := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	anchor := addMonths(a, m)
	switch {
	case m > 0 && anchor.After(b):
		m--
	case m < 0 && anchor.Before(b):
		m++
	}
	return int64(m)
}
