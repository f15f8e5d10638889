// Package provider defines the boundary contract with external calendar
// providers. Implementations live in the subpackages; everything above this
// interface is provider-agnostic.
package provider

import (
	"context"
	"errors"

	"calcore/internal/models"
)

// DeleteScope qualifies a deletion of a recurring event.
type DeleteScope string

const (
	// ScopeThis removes only the addressed instance.
	ScopeThis DeleteScope = "this"
	// ScopeFollowing removes the addressed instance and all later ones.
	ScopeFollowing DeleteScope = "following"
	// ScopeAll removes the whole series.
	ScopeAll DeleteScope = "all"
)

var (
	// ErrNotFound indicates the addressed calendar or event does not exist
	// on the provider.
	ErrNotFound = errors.New("provider: not found")
	// ErrUnsupported indicates the provider cannot perform the operation
	// (e.g. conferencing on a CalDAV calendar).
	ErrUnsupported = errors.New("provider: operation not supported")
	// ErrCredential indicates the account's credential was rejected and a
	// refresh did not help; the account is skipped for the operation.
	ErrCredential = errors.New("provider: credential rejected")
)

// Client is one connected account's view of its provider. All calls are
// bounded by the passed context; implementations do not retry internally.
type Client interface {
	// AccountID identifies the connected account this client serves.
	AccountID() string

	ListCalendars(ctx context.Context) ([]models.Calendar, error)

	// ListEvents returns the calendar's events intersecting the range,
	// recurring events expanded into single instances, ordered by start.
	ListEvents(ctx context.Context, calendarID string, r models.DateRange) ([]models.CalendarEvent, error)

	CreateEvent(ctx context.Context, payload models.EventPayload) (models.CalendarEvent, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, update models.EventUpdate) (models.CalendarEvent, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string, scope DeleteScope) error

	AttachConference(ctx context.Context, calendarID, eventID string) (models.CalendarEvent, error)
	DetachConference(ctx context.Context, calendarID, eventID string) (models.CalendarEvent, error)

	RespondToInvite(ctx context.Context, calendarID, eventID string, status models.ResponseStatus) (models.CalendarEvent, error)
}
