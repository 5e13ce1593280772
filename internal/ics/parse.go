package ics

import (
	"bytes"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calstate/internal/log"
	"calstate/internal/model"
)

// Source names one ICS seed file.
type Source struct {
	// ID is the config seed id, used in logs.
	ID string
	// Path is the ICS file on disk.
	Path string
	// Name is a display label.
	Name string
}

// Kind tells which iCalendar component a Component came from.
type Kind int

const (
	KindEvent Kind = iota
	KindTodo
)

// Component is the normalized form of a VEVENT or VTODO as produced by the
// parser. Recurrence expansion operates on this type.
type Component struct {
	Source Source
	Kind   Kind

	UID string
	Seq int

	Summary     string
	Description string
	Categories  []string
	// Priority is the raw iCalendar value: 0 undefined, 1 highest, 9 lowest.
	Priority int
	Status   string

	// Start is zero when DTSTART is absent. End is zero when DTEND is
	// absent; for all-day components it is the last covered day, not the
	// exclusive iCalendar end.
	Start  time.Time
	End    time.Time
	Due    time.Time
	AllDay bool

	Completed bool

	// Type and List carry calstate's own X- properties when present.
	Type model.Type
	List model.Status

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, if present
	IsOverride bool       // true if this component overrides a recurring instance
}

const (
	propType = ical.ComponentProperty("X-CALSTATE-TYPE")
	propList = ical.ComponentProperty("X-CALSTATE-LIST")
)

// ParseICS parses a single ICS payload into a list of Component.
//
//   - VTIMEZONE/TZID handling is left to the underlying library. Times
//     without TZID and without a trailing Z are floating and are read in
//     floating (time.Local when nil).
//   - All-day components are detected from the DTSTART value format.
//   - RRULE/EXDATE/RECURRENCE-ID are recorded but not expanded; expansion
//     is done in expand.go.
//
// A component that fails to parse is logged and skipped.
func ParseICS(src Source, body []byte, floating *time.Location) ([]Component, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if floating == nil {
		floating = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "path", src.Path)
		return nil, err
	}

	out := make([]Component, 0)

	for _, ve := range cal.Events() {
		c, perr := parseComponent(src, KindEvent, &ve.ComponentBase, floating)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "uid", ve.Id())
			continue
		}
		out = append(out, c)
	}

	for _, vt := range cal.Todos() {
		c, perr := parseComponent(src, KindTodo, &vt.ComponentBase, floating)
		if perr != nil {
			appLog.Error("ics vtodo parse failed", perr, "id", src.ID, "uid", vt.Id())
			continue
		}
		if p := vt.GetProperty(ical.ComponentPropertyDue); p != nil {
			due, derr := vt.GetDueAt()
			if derr != nil {
				appLog.Error("ics vtodo due parse failed", derr, "id", src.ID, "uid", c.UID)
				continue
			}
			c.Due = refloat(due, p, floating)
		}
		if c.Status == string(ical.ObjectStatusCompleted) || vt.HasProperty(ical.ComponentPropertyCompleted) {
			c.Completed = true
		}
		out = append(out, c)
	}

	appLog.Info("ics parse completed", "id", src.ID, "path", src.Path, "component_count", len(out))
	return out, nil
}

func parseComponent(src Source, kind Kind, cb *ical.ComponentBase, floating *time.Location) (Component, error) {
	out := Component{Source: src, Kind: kind}

	// Components without UID still become entries; they just cannot be
	// matched by overrides.
	out.UID = cb.Id()
	if out.UID == "" {
		out.UID = model.NewID()
	}

	if p := cb.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Seq = n
		}
	}
	if p := cb.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := cb.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := cb.GetProperty(ical.ComponentPropertyStatus); p != nil {
		out.Status = strings.ToUpper(strings.TrimSpace(p.Value))
	}
	if p := cb.GetProperty(ical.ComponentPropertyPriority); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil && n >= 0 && n <= 9 {
			out.Priority = n
		}
	}
	for _, p := range cb.GetProperties(ical.ComponentPropertyCategories) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part != "" && !slices.Contains(out.Categories, part) {
				out.Categories = append(out.Categories, part)
			}
		}
	}
	if p := cb.GetProperty(propType); p != nil {
		out.Type = model.Type(strings.TrimSpace(p.Value))
	}
	if p := cb.GetProperty(propList); p != nil {
		out.List = model.Status(strings.TrimSpace(p.Value))
	}

	if p := cb.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		start, err := cb.GetStartAt()
		if err != nil {
			return out, err
		}
		out.Start = refloat(start, p, floating)
		out.AllDay = isDateValue(p)
	}

	if p := cb.GetProperty(ical.ComponentPropertyDtEnd); p != nil && !out.Start.IsZero() {
		end, err := cb.GetEndAt()
		if err != nil {
			return out, err
		}
		end = refloat(end, p, floating)
		if out.AllDay {
			// DTEND of a DATE component is exclusive.
			end = end.AddDate(0, 0, -1)
			if end.Before(out.Start) {
				end = out.Start
			}
		}
		out.End = end
	}

	// RRULE is kept raw; expansion happens in expand.go.
	if p := cb.GetProperty(ical.ComponentPropertyRrule); p != nil && !out.Start.IsZero() {
		out.RawRRule = p.Value
	}

	// EXDATE can appear multiple times, each with a comma separated list.
	for _, p := range cb.GetProperties(ical.ComponentPropertyExdate) {
		out.ExDates = append(out.ExDates, propTimes(p, floating)...)
	}

	if p := cb.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		if ts := propTimes(p, floating); len(ts) > 0 {
			out.Recurrence = &ts[0]
			out.IsOverride = true
		}
	}

	return out, nil
}

// isDateValue reports whether p carries VALUE=DATE or a bare YYYYMMDD value.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// refloat moves a floating time, which the library reads in time.Local,
// to the same wall clock in loc. Zoned and UTC times are returned as is.
func refloat(t time.Time, p *ical.IANAProperty, loc *time.Location) time.Time {
	if _, ok := p.ICalParameters["TZID"]; ok || strings.HasSuffix(strings.TrimSpace(p.Value), "Z") {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// propTimes parses the comma separated DATE/DATE-TIME values of p, honoring
// its TZID parameter. Unparseable parts are skipped.
func propTimes(p *ical.IANAProperty, floating *time.Location) []time.Time {
	loc := floating
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		if l, err := time.LoadLocation(tzs[0]); err == nil {
			loc = l
		}
	}

	var out []time.Time
	for _, part := range strings.Split(p.Value, ",") {
		if t, err := parseICSTime(part, loc); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// parseICSTime parses a basic ICS date or date-time string. Values without
// a trailing Z are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}

	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation("20060102", v, loc)
}
