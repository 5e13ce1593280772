package ics

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calstate/internal/log"
	"calstate/internal/model"
)

const productName = "calstate"

// Export writes entries as one VCALENDAR. TASK entries become VTODOs and
// everything else a VEVENT; entry ids are used as UIDs. stamp fills
// DTSTAMP.
//
// All-day dates are written as DATE values with an exclusive DTEND, so an
// entry ending on the 24th gets DTEND the 25th. Type and status are kept
// in X-CALSTATE-TYPE and X-CALSTATE-LIST so ParseICS restores them.
func Export(w io.Writer, entries []model.Entry, stamp time.Time) error {
	cal := ical.NewCalendarFor(productName)

	for _, e := range entries {
		var cb *ical.ComponentBase
		if e.Type() == model.TypeTask {
			todo := cal.AddTodo(e.ID())
			writeTodo(todo, e)
			cb = &todo.ComponentBase
		} else {
			ev := cal.AddEvent(e.ID())
			if p := priorityToICS(e.Priority()); p > 0 {
				ev.SetPriority(p)
			}
			if e.Status() == model.StatusDeleted {
				ev.SetStatus(ical.ObjectStatusCancelled)
			}
			cb = &ev.ComponentBase
		}
		writeCommon(cb, e, stamp)
	}

	if err := cal.SerializeTo(w); err != nil {
		appLog.Error("ics export failed", err, "entries", len(entries))
		return err
	}
	appLog.Info("ics export completed", "entries", len(entries))
	return nil
}

func writeCommon(cb *ical.ComponentBase, e model.Entry, stamp time.Time) {
	cb.SetDtStampTime(stamp)
	if e.Title() != "" {
		cb.SetSummary(e.Title())
	}
	if e.Description() != "" {
		cb.SetDescription(e.Description())
	}
	for _, tag := range e.Tags() {
		cb.AddCategory(tag)
	}
	cb.SetProperty(propType, string(e.Type()))
	cb.SetProperty(propList, string(e.Status()))

	start, ok := e.StartDate()
	if !ok {
		return
	}
	if e.AllDay() {
		cb.SetAllDayStartAt(start.Local())
	} else {
		cb.SetStartAt(start.Time())
	}

	end, ok := e.EndDate()
	if !ok {
		return
	}
	if e.AllDay() {
		cb.SetAllDayEndAt(end.Local().AddDate(0, 0, 1))
	} else {
		cb.SetEndAt(end.Time())
	}
}

func writeTodo(todo *ical.VTodo, e model.Entry) {
	if p := priorityToICS(e.Priority()); p > 0 {
		todo.SetPriority(p)
	}

	switch {
	case e.Status() == model.StatusDeleted:
		todo.SetStatus(ical.ObjectStatusCancelled)
	case e.Completed():
		todo.SetStatus(ical.ObjectStatusCompleted)
	default:
		todo.SetStatus(ical.ObjectStatusNeedsAction)
	}

	if due, ok := e.Deadline(); ok {
		if e.AllDay() {
			todo.SetAllDayDueAt(due.Local())
		} else {
			todo.SetDueAt(due.Time())
		}
	}
}
