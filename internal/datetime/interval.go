package datetime

import (
	"fmt"
	"slices"
	"sync"
)

// Interval is an immutable span between two Instants with start never
// after end. Copies share the lazily computed day list.
type Interval struct {
	start Instant
	end   Instant
	days  *dayCache
}

type dayCache struct {
	once sync.Once
	days []Instant
}

// NewInterval fails with ErrInvalidRange when start is after end.
// Endpoints are never swapped.
func NewInterval(start, end Instant) (Interval, error) {
	if start.IsAfter(end) {
		return Interval{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04"))
	}
	return Interval{start: start, end: end, days: &dayCache{}}, nil
}

// MustInterval is NewInterval for endpoints known to be ordered.
func MustInterval(start, end Instant) Interval {
	iv, err := NewInterval(start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

func (iv Interval) Start() Instant { return iv.start }
func (iv Interval) End() Instant   { return iv.end }

// Contains reports whether i is inside iv, endpoints included.
func (iv Interval) Contains(i Instant) bool {
	return i.IsBetween(iv, Closed)
}

// Days lists one Instant per day from start up to but excluding end. The
// list has as many elements as whole days between the endpoints, so an
// empty interval yields none. It is computed once per Interval.
func (iv Interval) Days() []Instant {
	if iv.days == nil {
		return iv.computeDays()
	}
	iv.days.once.Do(func() {
		iv.days.days = iv.computeDays()
	})
	return slices.Clone(iv.days.days)
}

func (iv Interval) computeDays() []Instant {
	n := iv.start.Diff(iv.end, Days)
	out := make([]Instant, 0, n)
	for k := 0; k < int(n); k++ {
		out = append(out, iv.start.Add(k, Days))
	}
	return out
}

// IsOverlap reports whether either endpoint of iv falls inside other.
// This is endpoint containment: an iv that strictly encloses other does
// not overlap it.
func (iv Interval) IsOverlap(other Interval, b Bounds) bool {
	return iv.start.IsBetween(other, b) || iv.end.IsBetween(other, b)
}

func (iv Interval) String() string {
	return iv.start.Format("2006-01-02 15:04") + ".." + iv.end.Format("2006-01-02 15:04")
}
