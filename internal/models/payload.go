package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// Validation errors returned before any network call is made.
var (
	ErrEmptyTitle   = errors.New("event title must not be empty")
	ErrInvalidRange = errors.New("event end must be after start")
)

// EventPayload is the mutation contract for creating events: every
// CalendarEvent field except identifier, owner and provider timestamps.
type EventPayload struct {
	Title       string
	Description string
	CalendarID  string
	AccountID   string

	AllDay bool
	Start  time.Time
	End    time.Time

	Repeat   Repeat
	Location string

	VideoCall *VideoCall

	// ParticipantEmails is the flattened attendee list submitted to the
	// provider; identities are resolved back through the user directory.
	ParticipantEmails []string
}

// Validate rejects payloads that must never reach the provider.
func (p *EventPayload) Validate() error {
	if p.Title == "" {
		return ErrEmptyTitle
	}
	if !p.Start.Before(p.End) {
		return ErrInvalidRange
	}
	return nil
}

// EventUpdate is a partial-update payload. Nil fields are left untouched.
type EventUpdate struct {
	Title       *string
	Description *string
	AllDay      *bool
	Start       *time.Time
	End         *time.Time
	Repeat      *Repeat
	Location    *string

	ParticipantEmails *[]string
}

// Apply overlays the set fields onto a copy of ev and returns it.
func (u *EventUpdate) Apply(ev CalendarEvent) CalendarEvent {
	if u.Title != nil {
		ev.Title = *u.Title
	}
	if u.Description != nil {
		ev.Description = *u.Description
	}
	if u.AllDay != nil {
		ev.AllDay = *u.AllDay
	}
	if u.Start != nil {
		ev.Start = *u.Start
	}
	if u.End != nil {
		ev.End = *u.End
	}
	if u.Repeat != nil {
		ev.Repeat = *u.Repeat
	}
	if u.Location != nil {
		ev.Location = *u.Location
	}
	if u.ParticipantEmails != nil {
		// A fresh slice, never a rewrite of the prior backing array: the
		// prior value may still be referenced by cached copies.
		ev.Participants = make([]Participant, 0, len(*u.ParticipantEmails))
		for _, email := range *u.ParticipantEmails {
			ev.Participants = append(ev.Participants, Participant{Email: email})
		}
	}
	return ev
}

// Validate checks the fields the update actually sets.
func (u *EventUpdate) Validate() error {
	if u.Title != nil && *u.Title == "" {
		return ErrEmptyTitle
	}
	if u.Start != nil && u.End != nil && !u.Start.Before(*u.End) {
		return ErrInvalidRange
	}
	return nil
}

// RRuleString serializes the repeat descriptor into an RRULE line for
// provider submission, e.g. "RRULE:FREQ=WEEKLY;UNTIL=...". Returns ""
// for non-repeating descriptors.
func (r Repeat) RRuleString(start time.Time) (string, error) {
	if !r.IsRepeating() {
		return "", nil
	}

	var freq rrule.Frequency
	switch r.Frequency {
	case RepeatDaily:
		freq = rrule.DAILY
	case RepeatWeekly:
		freq = rrule.WEEKLY
	case RepeatMonthly:
		freq = rrule.MONTHLY
	case RepeatYearly:
		freq = rrule.YEARLY
	default:
		return "", fmt.Errorf("unknown repeat frequency %q", r.Frequency)
	}

	opt := rrule.ROption{Freq: freq, Dtstart: start}
	if r.Until != nil {
		opt.Until = r.Until.UTC()
	}
	if _, err := rrule.NewRRule(opt); err != nil {
		return "", fmt.Errorf("failed to build recurrence rule: %w", err)
	}
	// RRuleString omits DTSTART, which providers carry as a separate field.
	return "RRULE:" + opt.RRuleString(), nil
}
