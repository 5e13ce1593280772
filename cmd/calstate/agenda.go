package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"calstate/internal/datetime"
	"calstate/internal/model"
)

type agendaStyles struct {
	header lipgloss.Style
	day    lipgloss.Style
	when   lipgloss.Style
	faint  lipgloss.Style
	done   lipgloss.Style
}

func newAgendaStyles(r *lipgloss.Renderer) agendaStyles {
	return agendaStyles{
		header: r.NewStyle().Bold(true),
		day:    r.NewStyle().Foreground(lipgloss.Color("12")),
		when:   r.NewStyle().Width(12),
		faint:  r.NewStyle().Faint(true),
		done:   r.NewStyle().Strikethrough(true),
	}
}

// renderAgenda prints entries, earliest first, under a header naming the
// range. entries are expected in index order (latest start first).
func renderAgenda(w io.Writer, unit datetime.Unit, iv datetime.Interval, entries []model.Entry) error {
	st := newAgendaStyles(lipgloss.NewRenderer(w))

	var b strings.Builder
	title := fmt.Sprintf("%s %s - %s", rangeTitle(unit),
		iv.Start().Format("2006-01-02"), iv.End().Format("2006-01-02"))
	fmt.Fprintf(&b, "%s  %s\n", st.header.Render(title), st.faint.Render(fmt.Sprintf("(%d entries)", len(entries))))

	if len(entries) == 0 {
		b.WriteString(st.faint.Render("nothing scheduled") + "\n")
	}
	for i := len(entries) - 1; i >= 0; i-- {
		b.WriteString(agendaLine(st, entries[i]) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func agendaLine(st agendaStyles, e model.Entry) string {
	start, _ := e.StartDate()

	when := "all day"
	if !e.AllDay() {
		when = start.Format("15:04")
		if end, ok := e.EndDate(); ok {
			when += "-" + end.Format("15:04")
		}
	}

	title := e.Title()
	if title == "" {
		title = e.ID()
	}
	if e.Type() == model.TypeTask {
		if e.Completed() {
			title = "[x] " + st.done.Render(title)
		} else {
			title = "[ ] " + title
		}
	}

	line := st.day.Render(start.Format("Mon 02 Jan")) + "  " + st.when.Render(when) + title
	if tags := e.Tags(); len(tags) > 0 {
		line += " " + st.faint.Render("["+strings.Join(tags, ", ")+"]")
	}
	if due, ok := e.Deadline(); ok {
		line += " " + st.faint.Render("due "+due.Format("Mon 02 Jan 15:04"))
	}
	return line
}

func rangeTitle(unit datetime.Unit) string {
	switch unit {
	case datetime.Weeks:
		return "Week"
	case datetime.Months:
		return "Month"
	case datetime.Years:
		return "Year"
	}
	return unit.String()
}
