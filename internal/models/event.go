package models

import (
	"strings"
	"time"
)

// RepeatFrequency describes how an event repeats.
type RepeatFrequency string

const (
	RepeatNone    RepeatFrequency = "none"
	RepeatDaily   RepeatFrequency = "daily"
	RepeatWeekly  RepeatFrequency = "weekly"
	RepeatMonthly RepeatFrequency = "monthly"
	RepeatYearly  RepeatFrequency = "yearly"
)

// Repeat is an event's recurrence descriptor. The provider performs the
// actual expansion; this only describes the rule submitted with a mutation.
type Repeat struct {
	Frequency RepeatFrequency
	Until     *time.Time // nil means no end date
}

// IsRepeating reports whether the descriptor names a real recurrence.
func (r Repeat) IsRepeating() bool {
	return r.Frequency != "" && r.Frequency != RepeatNone
}

// Participant is a person attached to an event.
type Participant struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string
}

// VideoCall is the conferencing descriptor optionally attached to an event.
type VideoCall struct {
	Enabled  bool
	Provider string // e.g. "meet"
	JoinURL  string
	Code     string
}

// ResponseStatus is the current user's reply to an invitation.
type ResponseStatus string

const (
	ResponseNeedsAction ResponseStatus = "needsAction"
	ResponseAccepted    ResponseStatus = "accepted"
	ResponseDeclined    ResponseStatus = "declined"
	ResponseTentative   ResponseStatus = "tentative"
)

// InviteInfo carries invitation metadata for events the user does not own.
type InviteInfo struct {
	IsInvite       bool
	OrganizerEmail string
	Response       ResponseStatus
}

// CalendarEvent is the internal representation of a single event instance,
// independent of any specific calendar provider. Recurring events arrive
// already expanded into instances by the provider.
type CalendarEvent struct {
	ID           string
	Title        string
	Description  string
	CalendarID   string
	AccountID    string
	OwnerID      string
	Participants []Participant

	AllDay bool
	// Start and End are instants for timed events. For all-day events both
	// are date-only boundaries at local midnight and End is exclusive.
	Start time.Time
	End   time.Time

	Repeat   Repeat
	Location string

	VideoCall *VideoCall
	Invite    *InviteInfo

	// SeriesID is the provider's master identifier for a recurring series,
	// when the provider exposes one. Empty for standalone events.
	SeriesID string
}

// SeriesKey returns the identifier shared by all instances of this event's
// recurring series. When the provider supplied a master series ID that is
// used directly; otherwise the key falls back to the instance-identifier
// prefix before the first underscore, which is how expanded instance IDs
// are composed.
func (e *CalendarEvent) SeriesKey() string {
	if e.SeriesID != "" {
		return e.SeriesID
	}
	if i := strings.Index(e.ID, "_"); i > 0 {
		return e.ID[:i]
	}
	return e.ID
}

// OverlapsRange reports whether the event intersects [start, end).
func (e *CalendarEvent) OverlapsRange(start, end time.Time) bool {
	return e.Start.Before(end) && e.End.After(start)
}
