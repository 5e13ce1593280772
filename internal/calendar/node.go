package calendar

import (
	"cmp"
	"slices"

	"calstate/internal/datetime"
	"calstate/internal/model"
)

// node places one dated entry in the chain. It does not own the entry; it
// only carries the dates the ordering needs and the id of its successor.
// next == "" marks the tail (entry ids are never empty).
type node struct {
	id    string
	start datetime.Instant
	end   *datetime.Instant
	next  string
}

// newNode returns nil for entries without a start date; they never enter
// the chain.
func newNode(e model.Entry) *node {
	start, ok := e.StartDate()
	if !ok {
		return nil
	}
	n := &node{id: e.ID(), start: start}
	if end, ok := e.EndDate(); ok {
		n.end = &end
	}
	return n
}

// within reports whether the node's start or end lies in iv.
func (n *node) within(iv datetime.Interval) bool {
	if n.start.IsBetween(iv, datetime.Closed) {
		return true
	}
	return n.end != nil && n.end.IsBetween(iv, datetime.Closed)
}

// sameDates reports whether e would produce a node with n's dates.
func (n *node) sameDates(e model.Entry) bool {
	start, ok := e.StartDate()
	if !ok || !start.IsEqual(n.start) {
		return false
	}
	end, ok := e.EndDate()
	if !ok || n.end == nil {
		return !ok && n.end == nil
	}
	return end.IsEqual(*n.end)
}

// SortConfigs orders configs the way New expects them: start date
// descending, then end date descending. Configs without a start date go
// last, and a missing end sorts after a present one. Ties keep their
// relative order.
func SortConfigs(configs []model.Config) {
	slices.SortStableFunc(configs, func(a, b model.Config) int {
		if c := compareDesc(a.StartDate, b.StartDate); c != 0 {
			return c
		}
		return compareDesc(a.EndDate, b.EndDate)
	})
}

func compareDesc(a, b *datetime.Instant) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(b.UnixMilli(), a.UnixMilli())
}
