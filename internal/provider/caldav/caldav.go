// Package caldav implements a read/create/delete subset of the provider
// contract against any CalDAV server (iCloud, Fastmail, a self-hosted
// Radicale). CalDAV has no conferencing or invite-response surface, so
// those operations report ErrUnsupported.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"calcore/internal/models"
	"calcore/internal/provider"
)

// basicAuthTransport adds Basic Auth and a stable User-Agent to every
// request.
type basicAuthTransport struct {
	username  string
	password  string
	transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	req.Header.Set("User-Agent", "calcore/1.0")
	return t.transport.RoundTrip(req)
}

// Client serves one CalDAV account.
type Client struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	accountID    string
	homeSet      string
	loc          *time.Location
}

// NewClient connects to the endpoint with app-specific-password basic auth
// and discovers the account's calendar home set.
func NewClient(ctx context.Context, logger *slog.Logger, accountID, endpoint, username, password string, loc *time.Location) (*Client, error) {
	httpClient := &http.Client{Transport: &basicAuthTransport{
		username:  username,
		password:  password,
		transport: http.DefaultTransport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	principal, err := caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find principal path: %w", err)
	}
	homeSet, err := caldavClient.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar home set: %w", err)
	}

	return &Client{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		accountID:    accountID,
		homeSet:      homeSet,
		loc:          loc,
	}, nil
}

// AccountID identifies the connected account this client serves.
func (c *Client) AccountID() string {
	return c.accountID
}

// ListCalendars returns the account's calendar collections. CalDAV exposes
// no primary flag, so the first calendar is marked default.
func (c *Client) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	found, err := c.caldavClient.FindCalendars(ctx, c.homeSet)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendars: %w", err)
	}

	calendars := make([]models.Calendar, 0, len(found))
	for i, cal := range found {
		calendars = append(calendars, models.Calendar{
			ID:        cal.Path,
			Name:      cal.Name,
			Editable:  true,
			Default:   i == 0,
			Source:    "caldav",
			AccountID: c.accountID,
		})
	}
	return calendars, nil
}

// ListEvents runs a time-range calendar-query against the collection.
func (c *Client) ListEvents(ctx context.Context, calendarID string, r models.DateRange) ([]models.CalendarEvent, error) {
	c.logger.Debug("querying caldav calendar", "accountID", c.accountID, "calendar", calendarID, "from", r.Start, "to", r.End)

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			Comps:    []caldav.CalendarCompRequest{{Name: ical.CompEvent, AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: r.Start,
				End:   r.End,
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, calendarID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	var events []models.CalendarEvent
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, ve := range obj.Data.Events() {
			ev, err := c.toEvent(ve, calendarID)
			if err != nil {
				c.logger.Warn("skipping unparseable vevent", "path", obj.Path, "error", err)
				continue
			}
			events = append(events, ev)
		}
	}
	return events, nil
}

// CreateEvent writes a new VEVENT object into the collection.
func (c *Client) CreateEvent(ctx context.Context, payload models.EventPayload) (models.CalendarEvent, error) {
	uid := uuid.New().String()
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//calcore//EN")
	cal.Children = append(cal.Children, c.toComponent(uid, payload))

	objPath := path.Join(payload.CalendarID, uid+".ics")
	if _, err := c.caldavClient.PutCalendarObject(ctx, objPath, cal); err != nil {
		return models.CalendarEvent{}, fmt.Errorf("failed to put calendar object: %w", err)
	}

	ev := models.CalendarEvent{
		ID:          objPath,
		Title:       payload.Title,
		Description: payload.Description,
		CalendarID:  payload.CalendarID,
		AccountID:   c.accountID,
		AllDay:      payload.AllDay,
		Start:       payload.Start,
		End:         payload.End,
		Repeat:      payload.Repeat,
		Location:    payload.Location,
	}
	for _, email := range payload.ParticipantEmails {
		ev.Participants = append(ev.Participants, models.Participant{Email: email})
	}
	return ev, nil
}

// UpdateEvent rewrites the whole object; CalDAV has no partial patch.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, update models.EventUpdate) (models.CalendarEvent, error) {
	existing, err := c.getEvent(ctx, calendarID, eventID)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	merged := update.Apply(existing)

	payload := models.EventPayload{
		Title:       merged.Title,
		Description: merged.Description,
		CalendarID:  calendarID,
		AccountID:   c.accountID,
		AllDay:      merged.AllDay,
		Start:       merged.Start,
		End:         merged.End,
		Repeat:      merged.Repeat,
		Location:    merged.Location,
	}
	for _, p := range merged.Participants {
		payload.ParticipantEmails = append(payload.ParticipantEmails, p.Email)
	}

	uid := path.Base(eventID)
	uid = uid[:len(uid)-len(path.Ext(uid))]
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//calcore//EN")
	cal.Children = append(cal.Children, c.toComponent(uid, payload))

	if _, err := c.caldavClient.PutCalendarObject(ctx, eventID, cal); err != nil {
		return models.CalendarEvent{}, fmt.Errorf("failed to rewrite calendar object: %w", err)
	}
	merged.ID = eventID
	return merged, nil
}

// DeleteEvent removes the object. Recurring scopes are not supported for
// CalDAV sources in this engine.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string, scope provider.DeleteScope) error {
	if scope == provider.ScopeFollowing || scope == provider.ScopeAll {
		return fmt.Errorf("recurring delete scope %q on caldav: %w", scope, provider.ErrUnsupported)
	}
	if err := c.webdavClient.RemoveAll(ctx, eventID); err != nil {
		return fmt.Errorf("failed to remove calendar object: %w", err)
	}
	return nil
}

// AttachConference is not available on CalDAV calendars.
func (c *Client) AttachConference(ctx context.Context, calendarID, eventID string) (models.CalendarEvent, error) {
	return models.CalendarEvent{}, fmt.Errorf("conferencing on caldav: %w", provider.ErrUnsupported)
}

// DetachConference is not available on CalDAV calendars.
func (c *Client) DetachConference(ctx context.Context, calendarID, eventID string) (models.CalendarEvent, error) {
	return models.CalendarEvent{}, fmt.Errorf("conferencing on caldav: %w", provider.ErrUnsupported)
}

// RespondToInvite is not available on CalDAV calendars.
func (c *Client) RespondToInvite(ctx context.Context, calendarID, eventID string, status models.ResponseStatus) (models.CalendarEvent, error) {
	return models.CalendarEvent{}, fmt.Errorf("invite response on caldav: %w", provider.ErrUnsupported)
}

func (c *Client) getEvent(ctx context.Context, calendarID, eventID string) (models.CalendarEvent, error) {
	obj, err := c.caldavClient.GetCalendarObject(ctx, eventID)
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("failed to get calendar object: %w", err)
	}
	if obj.Data == nil || len(obj.Data.Events()) == 0 {
		return models.CalendarEvent{}, fmt.Errorf("object %s holds no events: %w", eventID, provider.ErrNotFound)
	}
	return c.toEvent(obj.Data.Events()[0], calendarID)
}

func (c *Client) toEvent(ve ical.Event, calendarID string) (models.CalendarEvent, error) {
	start, err := ve.DateTimeStart(c.loc)
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("bad dtstart: %w", err)
	}
	end, err := ve.DateTimeEnd(c.loc)
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("bad dtend: %w", err)
	}

	uid, _ := ve.Props.Text(ical.PropUID)
	summary, _ := ve.Props.Text(ical.PropSummary)
	description, _ := ve.Props.Text(ical.PropDescription)
	location, _ := ve.Props.Text(ical.PropLocation)

	// DATE-valued DTSTART marks an all-day event.
	allDay := false
	if p := ve.Props.Get(ical.PropDateTimeStart); p != nil {
		allDay = p.ValueType() == ical.ValueDate
	}

	return models.CalendarEvent{
		ID:          path.Join(calendarID, uid+".ics"),
		Title:       summary,
		Description: description,
		CalendarID:  calendarID,
		AccountID:   c.accountID,
		AllDay:      allDay,
		Start:       start,
		End:         end,
		Location:    location,
	}, nil
}

func (c *Client) toComponent(uid string, p models.EventPayload) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, p.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, p.Start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, p.End)

	if p.Description != "" {
		ve.Props.SetText(ical.PropDescription, p.Description)
	}
	if p.Location != "" {
		ve.Props.SetText(ical.PropLocation, p.Location)
	}
	if rule, err := p.Repeat.RRuleString(p.Start); err == nil && rule != "" {
		prop := ical.NewProp(ical.PropRecurrenceRule)
		prop.SetText(rule[len("RRULE:"):])
		ve.Props.Add(prop)
	}
	for _, attendee := range p.ParticipantEmails {
		prop := ical.NewProp(ical.PropAttendee)
		prop.SetText(fmt.Sprintf("mailto:%s", attendee))
		ve.Props.Add(prop)
	}
	return ve
}
