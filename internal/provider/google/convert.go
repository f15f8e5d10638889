package google

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"calcore/internal/models"
)

const dateOnly = "2006-01-02"

func toCalendar(item *calendar.CalendarListEntry, accountID string) models.Calendar {
	editable := item.AccessRole == "owner" || item.AccessRole == "writer"
	return models.Calendar{
		ID:        item.Id,
		Name:      item.Summary,
		Color:     item.BackgroundColor,
		Editable:  editable,
		Default:   item.Primary && editable,
		IsHoliday: strings.Contains(item.Id, "#holiday@"),
		Source:    "google",
		AccountID: accountID,
	}
}

func toEvent(item *calendar.Event, calendarID, accountID string) (models.CalendarEvent, error) {
	start, err := parseEventTime(item.Start)
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("bad start time: %w", err)
	}
	end, err := parseEventTime(item.End)
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("bad end time: %w", err)
	}

	ev := models.CalendarEvent{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		CalendarID:  calendarID,
		AccountID:   accountID,
		AllDay:      item.Start != nil && item.Start.Date != "",
		Start:       start,
		End:         end,
		Location:    item.Location,
		Repeat:      parseRecurrence(item.Recurrence),
		SeriesID:    item.RecurringEventId,
	}

	if item.Creator != nil {
		ev.OwnerID = item.Creator.Email
	}

	for _, a := range item.Attendees {
		ev.Participants = append(ev.Participants, models.Participant{
			ID:    a.Email,
			Name:  a.DisplayName,
			Email: a.Email,
		})
		if a.Self {
			organizer := ""
			if item.Organizer != nil {
				organizer = item.Organizer.Email
			}
			ev.Invite = &models.InviteInfo{
				IsInvite:       item.Organizer != nil && !item.Organizer.Self,
				OrganizerEmail: organizer,
				Response:       models.ResponseStatus(a.ResponseStatus),
			}
		}
	}

	if vc := toVideoCall(item.ConferenceData); vc != nil {
		ev.VideoCall = vc
	}
	return ev, nil
}

func toVideoCall(cd *calendar.ConferenceData) *models.VideoCall {
	if cd == nil {
		return nil
	}
	vc := &models.VideoCall{Enabled: true, Code: cd.ConferenceId}
	if cd.ConferenceSolution != nil && cd.ConferenceSolution.Key != nil {
		vc.Provider = cd.ConferenceSolution.Key.Type
	}
	for _, ep := range cd.EntryPoints {
		if ep.EntryPointType == "video" {
			vc.JoinURL = ep.Uri
			break
		}
	}
	if vc.JoinURL == "" {
		return nil
	}
	return vc
}

func parseEventTime(t *calendar.EventDateTime) (time.Time, error) {
	if t == nil {
		return time.Time{}, fmt.Errorf("missing event time")
	}
	if t.Date != "" {
		return time.Parse(dateOnly, t.Date)
	}
	return time.Parse(time.RFC3339, t.DateTime)
}

// parseRecurrence recovers the repeat descriptor from the first RRULE line.
// Unknown rules are treated as non-repeating; the provider still expands
// them into instances regardless.
func parseRecurrence(lines []string) models.Repeat {
	for _, line := range lines {
		rule, ok := strings.CutPrefix(line, "RRULE:")
		if !ok {
			continue
		}
		repeat := models.Repeat{Frequency: models.RepeatNone}
		for _, part := range strings.Split(rule, ";") {
			key, value, ok := strings.Cut(part, "=")
			if !ok {
				continue
			}
			switch key {
			case "FREQ":
				switch value {
				case "DAILY":
					repeat.Frequency = models.RepeatDaily
				case "WEEKLY":
					repeat.Frequency = models.RepeatWeekly
				case "MONTHLY":
					repeat.Frequency = models.RepeatMonthly
				case "YEARLY":
					repeat.Frequency = models.RepeatYearly
				}
			case "UNTIL":
				if until, err := parseUntil(value); err == nil {
					repeat.Until = &until
				}
			}
		}
		return repeat
	}
	return models.Repeat{Frequency: models.RepeatNone}
}

func parseUntil(value string) (time.Time, error) {
	if t, err := time.Parse("20060102T150405Z", value); err == nil {
		return t, nil
	}
	return time.Parse("20060102", value)
}

func fromPayload(p models.EventPayload) (*calendar.Event, error) {
	ev := &calendar.Event{
		Summary:     p.Title,
		Description: p.Description,
		Location:    p.Location,
		Start:       eventTime(p.Start, p.AllDay),
		End:         eventTime(p.End, p.AllDay),
	}

	rule, err := p.Repeat.RRuleString(p.Start)
	if err != nil {
		return nil, err
	}
	if rule != "" {
		ev.Recurrence = []string{rule}
	}

	for _, email := range p.ParticipantEmails {
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: email})
	}

	if p.VideoCall != nil && p.VideoCall.Enabled {
		ev.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             fmt.Sprintf("create-%d", time.Now().UnixNano()),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		}
	}
	return ev, nil
}

func fromUpdate(u models.EventUpdate) (*calendar.Event, error) {
	patch := &calendar.Event{}

	if u.Title != nil {
		patch.Summary = *u.Title
		patch.ForceSendFields = append(patch.ForceSendFields, "Summary")
	}
	if u.Description != nil {
		patch.Description = *u.Description
		patch.ForceSendFields = append(patch.ForceSendFields, "Description")
	}
	if u.Location != nil {
		patch.Location = *u.Location
		patch.ForceSendFields = append(patch.ForceSendFields, "Location")
	}

	allDay := u.AllDay != nil && *u.AllDay
	if u.Start != nil {
		patch.Start = eventTime(*u.Start, allDay)
	}
	if u.End != nil {
		patch.End = eventTime(*u.End, allDay)
	}

	if u.Repeat != nil {
		start := time.Now()
		if u.Start != nil {
			start = *u.Start
		}
		rule, err := u.Repeat.RRuleString(start)
		if err != nil {
			return nil, err
		}
		if rule == "" {
			patch.NullFields = append(patch.NullFields, "Recurrence")
		} else {
			patch.Recurrence = []string{rule}
		}
	}

	if u.ParticipantEmails != nil {
		patch.Attendees = patch.Attendees[:0]
		for _, email := range *u.ParticipantEmails {
			patch.Attendees = append(patch.Attendees, &calendar.EventAttendee{Email: email})
		}
		patch.ForceSendFields = append(patch.ForceSendFields, "Attendees")
	}
	return patch, nil
}

func eventTime(t time.Time, allDay bool) *calendar.EventDateTime {
	if allDay {
		return &calendar.EventDateTime{Date: t.Format(dateOnly)}
	}
	return &calendar.EventDateTime{DateTime: t.Format(time.RFC3339)}
}

// truncateRecurrence rewrites the RRULE lines with the given UNTIL value,
// dropping any COUNT so the two cannot conflict.
func truncateRecurrence(lines []string, until string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		rule, ok := strings.CutPrefix(line, "RRULE:")
		if !ok {
			out = append(out, line)
			continue
		}
		parts := strings.Split(rule, ";")
		kept := parts[:0]
		for _, part := range parts {
			if strings.HasPrefix(part, "UNTIL=") || strings.HasPrefix(part, "COUNT=") {
				continue
			}
			kept = append(kept, part)
		}
		out = append(out, "RRULE:"+strings.Join(kept, ";")+";UNTIL="+until)
	}
	return out
}
