package google

import (
	"strings"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"

	"calcore/internal/models"
)

func TestToCalendarEditableAndDefault(t *testing.T) {
	tests := []struct {
		name     string
		entry    *calendar.CalendarListEntry
		editable bool
		def      bool
		holiday  bool
	}{
		{
			name:     "primary owner",
			entry:    &calendar.CalendarListEntry{Id: "me@example.com", AccessRole: "owner", Primary: true},
			editable: true,
			def:      true,
		},
		{
			name:     "writer non-primary",
			entry:    &calendar.CalendarListEntry{Id: "shared", AccessRole: "writer"},
			editable: true,
		},
		{
			name:  "reader",
			entry: &calendar.CalendarListEntry{Id: "ro", AccessRole: "reader"},
		},
		{
			name:    "holiday feed",
			entry:   &calendar.CalendarListEntry{Id: "en.usa#holiday@group.v.calendar.google.com", AccessRole: "reader"},
			holiday: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toCalendar(tt.entry, "acc")
			if got.Editable != tt.editable || got.Default != tt.def || got.IsHoliday != tt.holiday {
				t.Fatalf("toCalendar = %+v", got)
			}
		})
	}
}

func TestToEventTimedAndAllDay(t *testing.T) {
	timed := &calendar.Event{
		Id:      "e1",
		Summary: "standup",
		Start:   &calendar.EventDateTime{DateTime: "2025-06-09T09:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2025-06-09T09:30:00Z"},
	}
	ev, err := toEvent(timed, "cal", "acc")
	if err != nil {
		t.Fatalf("toEvent: %v", err)
	}
	if ev.AllDay {
		t.Error("timed event marked all-day")
	}
	if !ev.Start.Before(ev.End) {
		t.Errorf("start %v not before end %v", ev.Start, ev.End)
	}

	allDay := &calendar.Event{
		Id:      "e2",
		Summary: "offsite",
		Start:   &calendar.EventDateTime{Date: "2025-06-09"},
		End:     &calendar.EventDateTime{Date: "2025-06-10"}, // exclusive
	}
	ev, err = toEvent(allDay, "cal", "acc")
	if err != nil {
		t.Fatalf("toEvent: %v", err)
	}
	if !ev.AllDay {
		t.Error("all-day event not marked")
	}
	if !ev.End.After(ev.Start) {
		t.Errorf("exclusive end %v not after start %v", ev.End, ev.Start)
	}
}

func TestParseRecurrence(t *testing.T) {
	r := parseRecurrence([]string{"RRULE:FREQ=WEEKLY;UNTIL=20251231T000000Z"})
	if r.Frequency != models.RepeatWeekly {
		t.Errorf("frequency = %q, want weekly", r.Frequency)
	}
	if r.Until == nil || r.Until.Year() != 2025 || r.Until.Month() != time.December {
		t.Errorf("until = %v", r.Until)
	}

	if r := parseRecurrence(nil); r.Frequency != models.RepeatNone {
		t.Errorf("no recurrence parsed as %q", r.Frequency)
	}
	if r := parseRecurrence([]string{"EXDATE:20250601"}); r.Frequency != models.RepeatNone {
		t.Errorf("non-RRULE line parsed as %q", r.Frequency)
	}
}

func TestTruncateRecurrence(t *testing.T) {
	got := truncateRecurrence(
		[]string{"RRULE:FREQ=DAILY;COUNT=30", "EXDATE:20250601"},
		"20250615T085959Z",
	)
	if len(got) != 2 {
		t.Fatalf("lines = %v", got)
	}
	if strings.Contains(got[0], "COUNT=") {
		t.Errorf("COUNT survived truncation: %s", got[0])
	}
	if !strings.HasSuffix(got[0], "UNTIL=20250615T085959Z") {
		t.Errorf("UNTIL missing: %s", got[0])
	}
	if got[1] != "EXDATE:20250601" {
		t.Errorf("non-RRULE line altered: %s", got[1])
	}
}

func TestFromUpdatePatchesOnlySetFields(t *testing.T) {
	title := ""
	patch, err := fromUpdate(models.EventUpdate{Title: &title})
	if err != nil {
		t.Fatalf("fromUpdate: %v", err)
	}
	if patch.Summary != "" {
		t.Errorf("summary = %q", patch.Summary)
	}
	// Clearing a field to its zero value must still be sent.
	found := false
	for _, f := range patch.ForceSendFields {
		if f == "Summary" {
			found = true
		}
	}
	if !found {
		t.Error("cleared title missing from ForceSendFields")
	}
	if patch.Start != nil || patch.End != nil || patch.Attendees != nil {
		t.Errorf("unset fields leaked into patch: %+v", patch)
	}
}

func TestFromPayloadRequestsConference(t *testing.T) {
	ev, err := fromPayload(models.EventPayload{
		Title:     "standup",
		Start:     time.Date(2026, 6, 11, 9, 0, 0, 0, time.UTC),
		End:       time.Date(2026, 6, 11, 9, 30, 0, 0, time.UTC),
		VideoCall: &models.VideoCall{Enabled: true},
	})
	if err != nil {
		t.Fatalf("fromPayload: %v", err)
	}
	req := ev.ConferenceData.CreateRequest
	if req == nil {
		t.Fatal("no conference create request")
	}
	if req.RequestId == "" {
		t.Error("empty conference request id")
	}
	if req.ConferenceSolutionKey.Type != "hangoutsMeet" {
		t.Errorf("solution key = %q", req.ConferenceSolutionKey.Type)
	}
}
