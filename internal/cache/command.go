package cache

import "calcore/internal/models"

// editCommand is an optimistic mutation together with its own inverse. The
// forward update is applied before the network call; the inverse restores
// the exact prior field values if the call fails.
type editCommand struct {
	eventID string
	update  models.EventUpdate
	inverse models.EventUpdate
}

// newEditCommand captures the inverse of u against the event's current
// state. Only the fields u actually sets are recorded.
func newEditCommand(prev models.CalendarEvent, u models.EventUpdate) editCommand {
	var inv models.EventUpdate

	if u.Title != nil {
		title := prev.Title
		inv.Title = &title
	}
	if u.Description != nil {
		desc := prev.Description
		inv.Description = &desc
	}
	if u.AllDay != nil {
		allDay := prev.AllDay
		inv.AllDay = &allDay
	}
	if u.Start != nil {
		start := prev.Start
		inv.Start = &start
	}
	if u.End != nil {
		end := prev.End
		inv.End = &end
	}
	if u.Repeat != nil {
		repeat := prev.Repeat
		inv.Repeat = &repeat
	}
	if u.Location != nil {
		loc := prev.Location
		inv.Location = &loc
	}
	if u.ParticipantEmails != nil {
		emails := make([]string, 0, len(prev.Participants))
		for _, p := range prev.Participants {
			emails = append(emails, p.Email)
		}
		inv.ParticipantEmails = &emails
	}

	return editCommand{eventID: prev.ID, update: u, inverse: inv}
}
