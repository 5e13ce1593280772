package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	"calstate/internal/datetime"
	appLog "calstate/internal/log"
	"calstate/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 5000

	// occurrenceKeyLayout renders the start of a recurring instance in entry
	// ids: <uid>@<start>.
	occurrenceKeyLayout = "20060102T150405Z"
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone all entry dates are converted to.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive window recurring
	// components are expanded in. Non-recurring components are always
	// kept.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent is a safety cap to avoid infinite or extremely
	// large expansions. If zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the list of entry configs and optionally information
// about truncation.
type ExpandResult struct {
	Configs []model.Config
	// TruncatedEvents records UIDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedEvents []string
}

// ExpandOccurrences turns parsed components into entry configs. It handles:
//
//   - Single non-recurring components (one config, id = UID)
//   - RRULE-based recurrence (one config per instance, id = UID@start)
//   - EXDATE for exception removal
//   - RECURRENCE-ID overrides
//   - All-day semantics
//
// When several base components share a UID only the highest SEQUENCE is
// used. Configs come out in component order; callers sort them with
// calendar.SortConfigs before building an index.
func ExpandOccurrences(comps []Component, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base components and overrides by UID, keeping first-seen order.
	var order []string
	baseByUID := make(map[string]Component)
	overridesByUID := make(map[string][]Component)

	for _, c := range comps {
		if c.IsOverride && c.Recurrence != nil {
			overridesByUID[c.UID] = append(overridesByUID[c.UID], c)
			continue
		}
		prev, seen := baseByUID[c.UID]
		if !seen {
			order = append(order, c.UID)
		}
		if !seen || c.Seq > prev.Seq {
			baseByUID[c.UID] = c
		}
	}

	configs := make([]model.Config, 0, len(order))

	for _, uid := range order {
		occ, hitCap := expandComponent(baseByUID[uid], overridesByUID[uid], cfg)
		configs = append(configs, occ...)

		if hitCap {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Error("expand: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	result.Configs = configs
	return result, nil
}

// expandComponent expands a single base component with its possible
// overrides, returning configs and whether the cap was hit.
func expandComponent(c Component, overrides []Component, cfg ExpandConfig) ([]model.Config, bool) {
	if c.RawRRule == "" {
		return expandSingle(c, overrides, cfg), false
	}
	return expandRecurring(c, overrides, cfg)
}

func expandSingle(c Component, overrides []Component, cfg ExpandConfig) []model.Config {
	base := c
	if !c.Start.IsZero() {
		// Apply any override whose RECURRENCE-ID matches this start.
		if o, ok := findOverrideForStart(overrides, c.Start); ok {
			base = o
		}
	}
	return []model.Config{makeConfig(base, c.UID, base.Start, base.End, cfg.DisplayLocation)}
}

func expandRecurring(c Component, overrides []Component, cfg ExpandConfig) ([]model.Config, bool) {
	out := make([]model.Config, 0)
	hitCap := false

	r, err := rrule.StrToRRule(c.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", c.UID, "rrule", c.RawRRule)
		return out, false
	}

	// Ensure Dtstart is set to the component's DTSTART.
	r.DTStart(c.Start)

	// Build a set so we can apply EXDATE.
	var set rrule.Set
	set.RRule(r)
	for _, ex := range c.ExDates {
		set.ExDate(ex.In(c.Start.Location()))
	}

	rangeStart := cfg.RangeStart.In(c.Start.Location())
	rangeEnd := cfg.RangeEnd.In(c.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)

	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	for _, occStart := range occTimes {
		var occEnd time.Time
		switch {
		case c.End.IsZero():
		case c.AllDay:
			// Keep the span in calendar days so DST shifts do not leak in.
			date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occStart = date
			occEnd = date.AddDate(0, 0, calendarDays(c.Start, c.End))
		default:
			occEnd = occStart.Add(c.End.Sub(c.Start))
		}

		id := c.UID + "@" + occStart.UTC().Format(occurrenceKeyLayout)
		if o, ok := findOverrideForStart(overrides, occStart); ok {
			out = append(out, makeConfig(o, id, o.Start, o.End, cfg.DisplayLocation))
			continue
		}
		out = append(out, makeConfig(c, id, occStart, occEnd, cfg.DisplayLocation))
	}

	return out, hitCap
}

// findOverrideForStart finds an override whose RECURRENCE-ID matches the
// given instance start exactly.
func findOverrideForStart(overrides []Component, start time.Time) (Component, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return Component{}, false
}

// makeConfig converts a (possibly overridden) component plus concrete
// start/end into an entry config with dates in displayLoc.
func makeConfig(c Component, id string, start, end time.Time, displayLoc *time.Location) model.Config {
	cfg := model.Config{
		ID:          id,
		Title:       c.Summary,
		Description: c.Description,
		AllDay:      c.AllDay,
		Completed:   c.Completed,
		Tags:        c.Categories,
		Priority:    priorityFromICS(c.Priority),
		Type:        entryType(c),
		Status:      entryStatus(c),
	}

	if !start.IsZero() {
		cfg.StartDate = instantIn(start, displayLoc, c.AllDay)
		if !end.IsZero() {
			cfg.EndDate = instantIn(end, displayLoc, c.AllDay)
		}
	}
	if !c.Due.IsZero() {
		cfg.Deadline = instantIn(c.Due, displayLoc, c.AllDay)
	}

	return cfg
}

// instantIn converts t to displayLoc. All-day dates keep their wall clock
// date rather than the converted instant.
func instantIn(t time.Time, displayLoc *time.Location, allDay bool) *datetime.Instant {
	if allDay {
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, displayLoc)
	} else {
		t = t.In(displayLoc)
	}
	i := datetime.FromTime(t)
	return &i
}

func entryType(c Component) model.Type {
	switch c.Type {
	case model.TypeTask, model.TypeEvent, model.TypeSlot:
		return c.Type
	}
	if c.Kind == KindTodo {
		return model.TypeTask
	}
	return model.TypeEvent
}

func entryStatus(c Component) model.Status {
	switch c.List {
	case model.StatusDefault, model.StatusInbox, model.StatusSomeday, model.StatusDeleted:
		return c.List
	}
	switch {
	case c.Status == "CANCELLED":
		return model.StatusDeleted
	case c.Kind == KindTodo && c.Start.IsZero():
		return model.StatusInbox
	}
	return model.StatusDefault
}

// priorityFromICS maps iCalendar priority (1 highest .. 9 lowest, 0
// undefined) onto 0 (none) .. 5 (highest).
func priorityFromICS(p int) model.Priority {
	if p < 1 || p > 9 {
		return 0
	}
	return model.Priority(5 - (p-1)/2)
}

// priorityToICS is the inverse of priorityFromICS for 1..5; 0 maps to 0.
func priorityToICS(p model.Priority) int {
	if p < 1 || p > 5 {
		return 0
	}
	return 11 - 2*int(p)
}

func calendarDays(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
