// Package google implements the provider contract on top of the Google
// Calendar API.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"calcore/internal/models"
	"calcore/internal/provider"
)

// maxEventsPerPage caps one list response; windows larger than this page
// through NextPageToken.
const maxEventsPerPage = 2500

// Client talks to the Google Calendar API for one connected account.
type Client struct {
	service   *calendar.Service
	logger    *slog.Logger
	accountID string
}

// NewClient builds a client for the account, authenticating every request
// through the given token source (normally the credential coordinator).
func NewClient(ctx context.Context, logger *slog.Logger, accountID string, ts oauth2.TokenSource) (*Client, error) {
	service, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &Client{service: service, logger: logger, accountID: accountID}, nil
}

// AccountID identifies the connected account this client serves.
func (c *Client) AccountID() string {
	return c.accountID
}

// ListCalendars returns all calendars visible to the account.
func (c *Client) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	list, err := c.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("failed to list calendars", err)
	}

	calendars := make([]models.Calendar, 0, len(list.Items))
	for _, item := range list.Items {
		calendars = append(calendars, toCalendar(item, c.accountID))
	}
	return calendars, nil
}

// ListEvents fetches the calendar's events intersecting the range, with
// recurring events expanded into single instances, ordered by start.
func (c *Client) ListEvents(ctx context.Context, calendarID string, r models.DateRange) ([]models.CalendarEvent, error) {
	c.logger.Debug("listing events", "accountID", c.accountID, "calendarID", calendarID, "from", r.Start, "to", r.End)

	var events []models.CalendarEvent
	pageToken := ""
	for {
		call := c.service.Events.List(calendarID).
			ShowDeleted(false).
			SingleEvents(true).
			TimeMin(r.Start.Format(time.RFC3339)).
			TimeMax(r.End.Format(time.RFC3339)).
			OrderBy("startTime").
			MaxResults(maxEventsPerPage).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, wrapErr("failed to list events", err)
		}
		for _, item := range resp.Items {
			ev, err := toEvent(item, calendarID, c.accountID)
			if err != nil {
				c.logger.Warn("skipping unparseable event", "eventID", item.Id, "error", err)
				continue
			}
			events = append(events, ev)
		}
		if resp.NextPageToken == "" {
			return events, nil
		}
		pageToken = resp.NextPageToken
	}
}

// CreateEvent submits a new event and returns the provider's normalized
// form of it.
func (c *Client) CreateEvent(ctx context.Context, payload models.EventPayload) (models.CalendarEvent, error) {
	gev, err := fromPayload(payload)
	if err != nil {
		return models.CalendarEvent{}, err
	}

	call := c.service.Events.Insert(payload.CalendarID, gev).Context(ctx)
	if payload.VideoCall != nil && payload.VideoCall.Enabled {
		call = call.ConferenceDataVersion(1)
	}
	created, err := call.Do()
	if err != nil {
		return models.CalendarEvent{}, wrapErr("failed to create event", err)
	}
	return toEvent(created, payload.CalendarID, c.accountID)
}

// UpdateEvent patches only the fields the update sets and returns the
// provider's view of the event afterwards.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, update models.EventUpdate) (models.CalendarEvent, error) {
	patch, err := fromUpdate(update)
	if err != nil {
		return models.CalendarEvent{}, err
	}

	updated, err := c.service.Events.Patch(calendarID, eventID, patch).Context(ctx).Do()
	if err != nil {
		return models.CalendarEvent{}, wrapErr("failed to update event", err)
	}
	return toEvent(updated, calendarID, c.accountID)
}

// DeleteEvent removes an event. For recurring instances the scope widens
// the deletion to the series or its tail.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string, scope provider.DeleteScope) error {
	switch scope {
	case provider.ScopeAll:
		return c.deleteSeries(ctx, calendarID, eventID)
	case provider.ScopeFollowing:
		return c.truncateSeries(ctx, calendarID, eventID)
	default:
		if err := c.service.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
			return wrapErr("failed to delete event", err)
		}
		return nil
	}
}

// deleteSeries removes the series master, taking every instance with it.
func (c *Client) deleteSeries(ctx context.Context, calendarID, eventID string) error {
	instance, err := c.service.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return wrapErr("failed to load event for series delete", err)
	}
	masterID := instance.RecurringEventId
	if masterID == "" {
		masterID = eventID
	}
	if err := c.service.Events.Delete(calendarID, masterID).Context(ctx).Do(); err != nil {
		return wrapErr("failed to delete event series", err)
	}
	return nil
}

// truncateSeries ends the recurrence just before the addressed instance, so
// that instance and everything after it disappear.
func (c *Client) truncateSeries(ctx context.Context, calendarID, eventID string) error {
	instance, err := c.service.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return wrapErr("failed to load event for series truncation", err)
	}
	if instance.RecurringEventId == "" {
		// Standalone event: following collapses to a plain delete.
		if err := c.service.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
			return wrapErr("failed to delete event", err)
		}
		return nil
	}

	start, err := parseEventTime(instance.Start)
	if err != nil {
		return fmt.Errorf("failed to parse instance start: %w", err)
	}
	until := start.Add(-time.Second).UTC().Format("20060102T150405Z")

	master, err := c.service.Events.Get(calendarID, instance.RecurringEventId).Context(ctx).Do()
	if err != nil {
		return wrapErr("failed to load series master", err)
	}
	patch := &calendar.Event{Recurrence: truncateRecurrence(master.Recurrence, until)}
	if _, err := c.service.Events.Patch(calendarID, instance.RecurringEventId, patch).Context(ctx).Do(); err != nil {
		return wrapErr("failed to truncate series", err)
	}
	return nil
}

// AttachConference requests a conferencing link for the event.
func (c *Client) AttachConference(ctx context.Context, calendarID, eventID string) (models.CalendarEvent, error) {
	patch := &calendar.Event{
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             fmt.Sprintf("%s-%d", eventID, time.Now().UnixNano()),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}
	updated, err := c.service.Events.Patch(calendarID, eventID, patch).ConferenceDataVersion(1).Context(ctx).Do()
	if err != nil {
		return models.CalendarEvent{}, wrapErr("failed to attach conference", err)
	}
	return toEvent(updated, calendarID, c.accountID)
}

// DetachConference clears the event's conferencing descriptor.
func (c *Client) DetachConference(ctx context.Context, calendarID, eventID string) (models.CalendarEvent, error) {
	patch := &calendar.Event{NullFields: []string{"ConferenceData"}}
	updated, err := c.service.Events.Patch(calendarID, eventID, patch).ConferenceDataVersion(1).Context(ctx).Do()
	if err != nil {
		return models.CalendarEvent{}, wrapErr("failed to detach conference", err)
	}
	return toEvent(updated, calendarID, c.accountID)
}

// RespondToInvite records the account holder's reply on the event.
func (c *Client) RespondToInvite(ctx context.Context, calendarID, eventID string, status models.ResponseStatus) (models.CalendarEvent, error) {
	ev, err := c.service.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return models.CalendarEvent{}, wrapErr("failed to load event", err)
	}

	found := false
	for _, a := range ev.Attendees {
		if a.Self {
			a.ResponseStatus = string(status)
			found = true
		}
	}
	if !found {
		return models.CalendarEvent{}, fmt.Errorf("account is not an attendee of event %s: %w", eventID, provider.ErrUnsupported)
	}

	patch := &calendar.Event{Attendees: ev.Attendees}
	updated, err := c.service.Events.Patch(calendarID, eventID, patch).Context(ctx).Do()
	if err != nil {
		return models.CalendarEvent{}, wrapErr("failed to set response status", err)
	}
	return toEvent(updated, calendarID, c.accountID)
}

// wrapErr maps API failures onto the provider sentinel errors.
func wrapErr(msg string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound, http.StatusGone:
			return fmt.Errorf("%s: %w", msg, provider.ErrNotFound)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w", msg, provider.ErrCredential)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
