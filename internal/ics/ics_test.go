package ics_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calstate/internal/calendar"
	"calstate/internal/datetime"
	"calstate/internal/ics"
	"calstate/internal/model"
)

var plus2 = time.FixedZone("plus2", 2*60*60)

var instantEq = cmp.Comparer(func(a, b datetime.Instant) bool {
	return a.IsEqual(b) && a.Offset() == b.Offset()
})

func at(raw string) *datetime.Instant {
	i := datetime.MustParseIn(raw, plus2)
	return &i
}

func calendarOf(components ...string) []byte {
	return []byte("BEGIN:VCALENDAR\nVERSION:2.0\nPRODID:-//test//EN\n" +
		strings.Join(components, "") +
		"END:VCALENDAR\n")
}

func window(from, to string) ics.ExpandConfig {
	start, err := time.Parse(time.RFC3339, from)
	if err != nil {
		panic(err)
	}
	end, err := time.Parse(time.RFC3339, to)
	if err != nil {
		panic(err)
	}
	return ics.ExpandConfig{DisplayLocation: plus2, RangeStart: start, RangeEnd: end}
}

func Test_Import_Maps_Events_And_Todos(t *testing.T) {
	t.Parallel()

	body := calendarOf(
		"BEGIN:VEVENT\nUID:meet\nDTSTAMP:20241201T000000Z\nDTSTART:20241224T090000Z\nDTEND:20241224T100000Z\n"+
			"SUMMARY:Standup\\, daily\nDESCRIPTION:Notes\nCATEGORIES:work,team\nCATEGORIES:work\nPRIORITY:1\nEND:VEVENT\n",
		"BEGIN:VTODO\nUID:todo\nDTSTAMP:20241201T000000Z\nSUMMARY:File taxes\nDUE;VALUE=DATE:20241231\nSTATUS:COMPLETED\nPRIORITY:9\nEND:VTODO\n",
		"BEGIN:VTODO\nDTSTAMP:20241201T000000Z\nSUMMARY:No uid\nEND:VTODO\n",
	)

	got, err := ics.Import(ics.Source{ID: "seed"}, body, ics.ExpandConfig{DisplayLocation: plus2})
	require.NoError(t, err)
	require.Len(t, got, 3)

	_, err = uuid.Parse(got[2].ID)
	require.NoError(t, err, "missing UID gets a generated id")
	got[2].ID = "generated"

	want := []model.Config{
		{
			ID:          "meet",
			Title:       "Standup, daily",
			Description: "Notes",
			StartDate:   at("2024-12-24T11:00:00"),
			EndDate:     at("2024-12-24T12:00:00"),
			Tags:        []string{"work", "team"},
			Priority:    5,
			Type:        model.TypeEvent,
			Status:      model.StatusDefault,
		},
		{
			ID:        "todo",
			Title:     "File taxes",
			Deadline:  at("2024-12-31"),
			Completed: true,
			Priority:  1,
			Type:      model.TypeTask,
			Status:    model.StatusInbox,
		},
		{
			ID:     "generated",
			Title:  "No uid",
			Type:   model.TypeTask,
			Status: model.StatusInbox,
		},
	}
	if diff := cmp.Diff(want, got, instantEq, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("configs mismatch (-want +got):\n%s", diff)
	}
}

func Test_Parse_Floating_Times_Use_Display_Location(t *testing.T) {
	t.Parallel()

	body := calendarOf("BEGIN:VEVENT\nUID:f\nDTSTAMP:20241201T000000Z\nDTSTART:20241224T090000\nEND:VEVENT\n")

	comps, err := ics.ParseICS(ics.Source{ID: "seed"}, body, plus2)
	require.NoError(t, err)
	require.Len(t, comps, 1)
	assert.True(t, comps[0].Start.Equal(time.Date(2024, 12, 24, 7, 0, 0, 0, time.UTC)))
	assert.True(t, comps[0].End.IsZero())
	assert.False(t, comps[0].AllDay)
}

func Test_Parse_AllDay_End_Is_Inclusive(t *testing.T) {
	t.Parallel()

	body := calendarOf(
		"BEGIN:VEVENT\nUID:trip\nDTSTAMP:20241201T000000Z\nDTSTART;VALUE=DATE:20241224\nDTEND;VALUE=DATE:20241226\nEND:VEVENT\n",
		"BEGIN:VEVENT\nUID:day\nDTSTAMP:20241201T000000Z\nDTSTART;VALUE=DATE:20241224\nDTEND;VALUE=DATE:20241225\nEND:VEVENT\n",
	)

	got, err := ics.Import(ics.Source{ID: "seed"}, body, ics.ExpandConfig{DisplayLocation: plus2})
	require.NoError(t, err)
	require.Len(t, got, 2)

	for _, c := range got {
		assert.True(t, c.AllDay)
		assert.True(t, c.StartDate.IsEqual(*at("2024-12-24")), c.ID)
	}
	ends := map[string]*datetime.Instant{got[0].ID: got[0].EndDate, got[1].ID: got[1].EndDate}
	assert.True(t, ends["trip"].IsEqual(*at("2024-12-25")))
	assert.True(t, ends["day"].IsEqual(*at("2024-12-24")))
}

func Test_Expand_Recurrence_With_Exdate_And_Override(t *testing.T) {
	t.Parallel()

	body := calendarOf(
		"BEGIN:VEVENT\nUID:daily\nDTSTAMP:20241201T000000Z\nDTSTART:20241220T090000Z\nDTEND:20241220T093000Z\n"+
			"SUMMARY:Standup\nRRULE:FREQ=DAILY;COUNT=10\nEXDATE:20241222T090000Z\nEND:VEVENT\n",
		"BEGIN:VEVENT\nUID:daily\nDTSTAMP:20241201T000000Z\nRECURRENCE-ID:20241223T090000Z\n"+
			"DTSTART:20241223T150000Z\nDTEND:20241223T160000Z\nSUMMARY:Moved standup\nEND:VEVENT\n",
	)

	cfg := window("2024-12-21T00:00:00Z", "2024-12-23T23:59:59Z")
	got, err := ics.Import(ics.Source{ID: "seed"}, body, cfg)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"daily@20241223T090000Z", "daily@20241221T090000Z"}, ids)

	moved := got[0]
	assert.Equal(t, "Moved standup", moved.Title)
	assert.True(t, moved.StartDate.IsEqual(*at("2024-12-23T17:00:00")))
	assert.True(t, moved.EndDate.IsEqual(*at("2024-12-23T18:00:00")))

	plain := got[1]
	assert.Equal(t, "Standup", plain.Title)
	assert.Equal(t, 120, plain.StartDate.Offset())
	assert.True(t, plain.EndDate.IsEqual(*at("2024-12-21T11:30:00")))
}

func Test_Expand_Highest_Sequence_Wins(t *testing.T) {
	t.Parallel()

	body := calendarOf(
		"BEGIN:VEVENT\nUID:s\nDTSTAMP:20241201T000000Z\nSEQUENCE:1\nDTSTART:20241224T090000Z\nSUMMARY:old\nEND:VEVENT\n",
		"BEGIN:VEVENT\nUID:s\nDTSTAMP:20241201T000000Z\nSEQUENCE:2\nDTSTART:20241224T090000Z\nSUMMARY:new\nEND:VEVENT\n",
	)

	got, err := ics.Import(ics.Source{ID: "seed"}, body, ics.ExpandConfig{DisplayLocation: plus2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Title)
}

func Test_Expand_Caps_Occurrences(t *testing.T) {
	t.Parallel()

	body := calendarOf("BEGIN:VEVENT\nUID:d\nDTSTAMP:20241201T000000Z\nDTSTART:20241201T090000Z\nRRULE:FREQ=DAILY\nEND:VEVENT\n")
	comps, err := ics.ParseICS(ics.Source{ID: "seed"}, body, plus2)
	require.NoError(t, err)

	cfg := window("2024-12-01T00:00:00Z", "2024-12-10T00:00:00Z")
	cfg.MaxOccurrencesPerEvent = 3

	res, err := ics.ExpandOccurrences(comps, cfg)
	require.NoError(t, err)
	assert.Len(t, res.Configs, 3)
	assert.Equal(t, []string{"d"}, res.TruncatedEvents)
}

func Test_Expand_Rejects_Inverted_Range(t *testing.T) {
	t.Parallel()

	_, err := ics.ExpandOccurrences(nil, window("2024-12-10T00:00:00Z", "2024-12-01T00:00:00Z"))
	require.Error(t, err)
}

func Test_Parse_Empty_Body(t *testing.T) {
	t.Parallel()

	_, err := ics.ParseICS(ics.Source{ID: "seed"}, nil, plus2)
	require.Error(t, err)
}

func Test_Export_Round_Trips_Through_Import(t *testing.T) {
	t.Parallel()

	configs := []model.Config{
		{
			ID:          "meet",
			Title:       "Planning",
			Description: "Q1, roadmap; budget",
			StartDate:   at("2024-12-24T09:00:00"),
			EndDate:     at("2024-12-24T10:30:00"),
			Tags:        []string{"work", "q1"},
			Priority:    4,
			Type:        model.TypeEvent,
			Status:      model.StatusDefault,
		},
		{
			ID:        "hold",
			Title:     "Holiday",
			StartDate: at("2024-12-24"),
			EndDate:   at("2024-12-25"),
			AllDay:    true,
			Type:      model.TypeSlot,
			Status:    model.StatusSomeday,
		},
		{
			ID:        "done",
			Title:     "Send invoices",
			Deadline:  at("2024-12-20T17:00:00"),
			Completed: true,
			Priority:  2,
			Type:      model.TypeTask,
			Status:    model.StatusDefault,
		},
		{
			ID:     "idea",
			Title:  "Learn to juggle",
			Type:   model.TypeTask,
			Status: model.StatusInbox,
		},
	}
	entries := make([]model.Entry, 0, len(configs))
	for _, c := range configs {
		e, err := model.NewEntry(c)
		require.NoError(t, err)
		entries = append(entries, e)
	}

	var buf bytes.Buffer
	require.NoError(t, ics.Export(&buf, entries, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)))
	assert.Contains(t, buf.String(), "BEGIN:VTODO")
	assert.Contains(t, buf.String(), "DTSTART;VALUE=DATE:20241224")
	assert.Contains(t, buf.String(), "DTEND;VALUE=DATE:20241226")

	got, err := ics.Import(ics.Source{ID: "export"}, buf.Bytes(), ics.ExpandConfig{DisplayLocation: plus2})
	require.NoError(t, err)

	calendar.SortConfigs(configs)
	if diff := cmp.Diff(configs, got, instantEq, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
