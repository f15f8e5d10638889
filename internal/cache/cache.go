// Package cache holds the rolling window of events for one authenticated
// user and performs all provider mutations: optimistic edits with rollback,
// scoped recurring deletion, and fan-out refresh across accounts.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"calcore/internal/directory"
	"calcore/internal/models"
	"calcore/internal/provider"
	"calcore/internal/registry"
	"calcore/internal/snapshot"
)

var (
	// ErrEventNotFound indicates the event is not in the cached window.
	ErrEventNotFound = errors.New("cache: event not found")
	// ErrEventBusy indicates a mutation for the event is already in flight.
	ErrEventBusy = errors.New("cache: event mutation already in flight")
	// ErrNoAccount indicates no client is registered for the event's account.
	ErrNoAccount = errors.New("cache: no client for account")
)

// Snapshot is the read surface exposed to UI consumers.
type Snapshot struct {
	Events        []models.CalendarEvent
	Loading       bool
	Err           error
	SavingEventID string
}

type persistedWindow struct {
	Window models.DateRange       `json:"window"`
	Events []models.CalendarEvent `json:"events"`
}

// Cache is the sole owner of the in-memory event list. Readers get copies;
// the layout engine and selectors never see internal state.
type Cache struct {
	logger    *slog.Logger
	store     snapshot.Store
	registry  *registry.Registry
	directory *directory.Cache
	userID    string

	mu        sync.Mutex
	clients   map[string]provider.Client
	calendars []models.Calendar
	events    []models.CalendarEvent
	window    models.DateRange
	loading   bool
	lastErr   error
	saving    string
	// generation guards against a stale refresh landing over a newer one.
	generation uint64

	inflight sync.WaitGroup
}

// New builds the cache for one user and warms it from the persisted
// snapshot when one exists.
func New(ctx context.Context, logger *slog.Logger, store snapshot.Store, reg *registry.Registry, dir *directory.Cache, clients []provider.Client, userID string) *Cache {
	c := &Cache{
		logger:    logger,
		store:     store,
		registry:  reg,
		directory: dir,
		userID:    userID,
		clients:   make(map[string]provider.Client, len(clients)),
	}
	for _, client := range clients {
		c.clients[client.AccountID()] = client
	}

	var warm persistedWindow
	err := store.Load(ctx, c.snapshotKey(), &warm)
	switch {
	case err == nil:
		c.events = warm.Events
		c.window = warm.Window
		logger.Info("warmed event cache from snapshot", "userID", userID, "events", len(warm.Events))
	case errors.Is(err, snapshot.ErrNotFound):
		// Cold start.
	default:
		logger.Warn("failed to warm event cache", "userID", userID, "error", err)
	}
	return c
}

// View returns the current read surface.
func (c *Cache) View() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := make([]models.CalendarEvent, len(c.events))
	copy(events, c.events)
	return Snapshot{Events: events, Loading: c.loading, Err: c.lastErr, SavingEventID: c.saving}
}

// EventsForRange is the pure filter deriving a displayed week from the
// cached window: calendar enabled and date range overlapping. No network.
// The result is deterministic for a given cache state.
func (c *Cache) EventsForRange(r models.DateRange) []models.CalendarEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []models.CalendarEvent
	for _, ev := range c.events {
		if !c.registry.Enabled(ev.CalendarID) {
			continue
		}
		if ev.OverlapsRange(r.Start, r.End) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Refresh fetches every enabled calendar of every connected account for the
// window and replaces the cache wholesale. Accounts are fetched
// concurrently and fail independently: a dead account contributes nothing
// and cannot abort the rest.
func (c *Cache) Refresh(ctx context.Context, r models.DateRange) error {
	c.mu.Lock()
	c.loading = true
	c.generation++
	gen := c.generation
	clients := make([]provider.Client, 0, len(c.clients))
	for _, client := range c.clients {
		clients = append(clients, client)
	}
	c.mu.Unlock()

	// Every exit clears the loading flag, unless a newer refresh has taken
	// over and owns it.
	defer func() {
		c.mu.Lock()
		if c.generation == gen {
			c.loading = false
		}
		c.mu.Unlock()
	}()

	perAccount := make([][]models.CalendarEvent, len(clients))
	calendarLists := make([][]models.Calendar, len(clients))

	g, gctx := errgroup.WithContext(ctx)
	for i, client := range clients {
		g.Go(func() error {
			calendars, err := client.ListCalendars(gctx)
			if err != nil {
				c.logger.Error("could not list calendars for account", "accountID", client.AccountID(), "error", err)
				c.setErr(err)
				return nil
			}
			c.registry.Observe(gctx, calendars)
			calendarLists[i] = calendars

			var events []models.CalendarEvent
			for _, cal := range calendars {
				if !c.registry.Enabled(cal.ID) {
					continue
				}
				calEvents, err := client.ListEvents(gctx, cal.ID, r)
				if err != nil {
					c.logger.Error("could not fetch events for a calendar", "accountID", client.AccountID(), "calendarID", cal.ID, "error", err)
					c.setErr(err)
					continue
				}
				events = append(events, calEvents...)
			}
			perAccount[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// A cancelled or superseded refresh must not land on the cache.
	if err := ctx.Err(); err != nil {
		return err
	}

	var merged []models.CalendarEvent
	for _, events := range perAccount {
		merged = append(merged, events...)
	}
	c.resolveParticipants(ctx, merged)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.logger.Debug("dropping stale refresh result", "generation", gen)
		return nil
	}
	c.events = merged
	c.window = r
	c.loading = false
	var calendars []models.Calendar
	for _, list := range calendarLists {
		calendars = append(calendars, list...)
	}
	c.calendars = calendars
	c.mu.Unlock()

	c.persist(ctx)
	c.logger.Info("refreshed event window", "userID", c.userID, "events", len(merged), "from", r.Start, "to", r.End)
	return nil
}

// AddEvent validates and submits a new event. The cache is only mutated
// after the provider confirms; a failure leaves local state untouched.
func (c *Cache) AddEvent(ctx context.Context, payload models.EventPayload) (models.CalendarEvent, error) {
	if err := payload.Validate(); err != nil {
		return models.CalendarEvent{}, err
	}

	if payload.CalendarID == "" {
		c.mu.Lock()
		calendars := c.calendars
		c.mu.Unlock()
		def, ok := c.registry.DefaultCalendar(calendars)
		if !ok {
			return models.CalendarEvent{}, fmt.Errorf("no calendar available for new events: %w", ErrNoAccount)
		}
		payload.CalendarID = def.ID
		payload.AccountID = def.AccountID
	}

	client, err := c.clientFor(payload.AccountID)
	if err != nil {
		return models.CalendarEvent{}, err
	}

	created, err := client.CreateEvent(ctx, payload)
	if err != nil {
		c.setErr(err)
		return models.CalendarEvent{}, fmt.Errorf("failed to create event: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return models.CalendarEvent{}, err
	}

	c.mu.Lock()
	c.events = append(c.events, created)
	c.mu.Unlock()
	c.persist(ctx)
	return created, nil
}

// EditEvent mutates an existing event. When optimistic, the update lands in
// the cache synchronously and the provider call runs in the background,
// rolling the cache back if it fails. Otherwise the cache waits for the
// provider response and merges it over the existing record.
func (c *Cache) EditEvent(ctx context.Context, eventID string, update models.EventUpdate, optimistic bool) error {
	if err := update.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	prev, ok := c.find(eventID)
	if !ok {
		c.mu.Unlock()
		return ErrEventNotFound
	}
	if c.saving == eventID {
		c.mu.Unlock()
		return ErrEventBusy
	}
	c.saving = eventID
	client, err := c.clientFor(prev.AccountID)
	if err != nil {
		c.saving = ""
		c.mu.Unlock()
		return err
	}

	if optimistic {
		cmd := newEditCommand(prev, update)
		c.replace(cmd.update.Apply(prev))
		c.mu.Unlock()
		c.persist(ctx)

		c.inflight.Add(1)
		go func() {
			defer c.inflight.Done()
			defer c.clearSaving(eventID)

			if _, err := client.UpdateEvent(ctx, prev.CalendarID, eventID, update); err != nil {
				c.logger.Error("optimistic edit failed, rolling back", "eventID", eventID, "error", err)
				c.setErr(err)
				c.mu.Lock()
				if current, ok := c.find(eventID); ok {
					c.replace(cmd.inverse.Apply(current))
				}
				c.mu.Unlock()
				c.persist(context.WithoutCancel(ctx))
			}
		}()
		return nil
	}

	c.mu.Unlock()
	defer c.clearSaving(eventID)

	updated, err := client.UpdateEvent(ctx, prev.CalendarID, eventID, update)
	if err != nil {
		c.setErr(err)
		return fmt.Errorf("failed to update event: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if current, ok := c.find(eventID); ok {
		c.replace(mergeEvent(current, updated))
	}
	c.mu.Unlock()
	c.persist(ctx)
	return nil
}

// RemoveEvent deletes an event, widening the client-side projection for
// recurring scopes. The provider remains authoritative; the projection is
// best effort.
func (c *Cache) RemoveEvent(ctx context.Context, eventID string, scope provider.DeleteScope) error {
	c.mu.Lock()
	ev, ok := c.find(eventID)
	if !ok {
		c.mu.Unlock()
		return ErrEventNotFound
	}
	if c.saving == eventID {
		c.mu.Unlock()
		return ErrEventBusy
	}
	c.saving = eventID
	client, err := c.clientFor(ev.AccountID)
	if err != nil {
		c.saving = ""
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	defer c.clearSaving(eventID)

	if err := client.DeleteEvent(ctx, ev.CalendarID, eventID, scope); err != nil {
		c.setErr(err)
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	seriesKey := ev.SeriesKey()
	c.mu.Lock()
	kept := c.events[:0]
	for _, cached := range c.events {
		if c.removedBy(cached, ev, seriesKey, scope) {
			continue
		}
		kept = append(kept, cached)
	}
	c.events = kept
	c.mu.Unlock()
	c.persist(ctx)
	return nil
}

// removedBy decides whether a cached event falls under the deletion.
func (c *Cache) removedBy(cached, deleted models.CalendarEvent, seriesKey string, scope provider.DeleteScope) bool {
	if cached.ID == deleted.ID {
		return true
	}
	switch scope {
	case provider.ScopeAll:
		return cached.SeriesKey() == seriesKey
	case provider.ScopeFollowing:
		return cached.SeriesKey() == seriesKey && !cached.Start.Before(deleted.Start)
	default:
		return false
	}
}

// AddVideoCall attaches a conferencing descriptor to the event.
func (c *Cache) AddVideoCall(ctx context.Context, eventID string) error {
	return c.conferenceOp(ctx, eventID, provider.Client.AttachConference)
}

// RemoveVideoCall clears the event's conferencing descriptor.
func (c *Cache) RemoveVideoCall(ctx context.Context, eventID string) error {
	return c.conferenceOp(ctx, eventID, provider.Client.DetachConference)
}

func (c *Cache) conferenceOp(ctx context.Context, eventID string, op func(provider.Client, context.Context, string, string) (models.CalendarEvent, error)) error {
	c.mu.Lock()
	ev, ok := c.find(eventID)
	if !ok {
		c.mu.Unlock()
		return ErrEventNotFound
	}
	if c.saving == eventID {
		c.mu.Unlock()
		return ErrEventBusy
	}
	c.saving = eventID
	client, err := c.clientFor(ev.AccountID)
	if err != nil {
		c.saving = ""
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	defer c.clearSaving(eventID)

	updated, err := op(client, ctx, ev.CalendarID, eventID)
	if err != nil {
		c.setErr(err)
		return fmt.Errorf("failed to update video call: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if current, ok := c.find(eventID); ok {
		merged := mergeEvent(current, updated)
		merged.VideoCall = updated.VideoCall
		c.replace(merged)
	}
	c.mu.Unlock()
	c.persist(ctx)
	return nil
}

// RespondToInvite records the user's reply on an invited event.
func (c *Cache) RespondToInvite(ctx context.Context, eventID string, status models.ResponseStatus) error {
	c.mu.Lock()
	ev, ok := c.find(eventID)
	if !ok {
		c.mu.Unlock()
		return ErrEventNotFound
	}
	if c.saving == eventID {
		c.mu.Unlock()
		return ErrEventBusy
	}
	c.saving = eventID
	client, err := c.clientFor(ev.AccountID)
	if err != nil {
		c.saving = ""
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	defer c.clearSaving(eventID)

	updated, err := client.RespondToInvite(ctx, ev.CalendarID, eventID, status)
	if err != nil {
		c.setErr(err)
		return fmt.Errorf("failed to respond to invite: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if current, ok := c.find(eventID); ok {
		merged := mergeEvent(current, updated)
		merged.Invite = updated.Invite
		c.replace(merged)
	}
	c.mu.Unlock()
	c.persist(ctx)
	return nil
}

// Flush waits for background optimistic writes to settle. Intended for
// shutdown and tests.
func (c *Cache) Flush() {
	c.inflight.Wait()
}

// Window returns the currently loaded fetch range.
func (c *Cache) Window() models.DateRange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// find returns a copy of the cached event. Callers hold c.mu.
func (c *Cache) find(eventID string) (models.CalendarEvent, bool) {
	for i := range c.events {
		if c.events[i].ID == eventID {
			return c.events[i], true
		}
	}
	return models.CalendarEvent{}, false
}

// replace swaps the cached record with ev, matched by ID. Callers hold c.mu.
func (c *Cache) replace(ev models.CalendarEvent) {
	for i := range c.events {
		if c.events[i].ID == ev.ID {
			c.events[i] = ev
			return
		}
	}
}

func (c *Cache) clientFor(accountID string) (provider.Client, error) {
	client, ok := c.clients[accountID]
	if !ok {
		return nil, fmt.Errorf("account %q: %w", accountID, ErrNoAccount)
	}
	return client, nil
}

func (c *Cache) clearSaving(eventID string) {
	c.mu.Lock()
	if c.saving == eventID {
		c.saving = ""
	}
	c.mu.Unlock()
}

func (c *Cache) setErr(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Cache) persist(ctx context.Context) {
	c.mu.Lock()
	state := persistedWindow{Window: c.window, Events: make([]models.CalendarEvent, len(c.events))}
	copy(state.Events, c.events)
	c.mu.Unlock()

	if err := c.store.Save(ctx, c.snapshotKey(), state); err != nil {
		c.logger.Warn("failed to persist event snapshot", "userID", c.userID, "error", err)
	}
}

func (c *Cache) snapshotKey() string {
	return "events/" + c.userID
}

// resolveParticipants fills in display names and avatars from the user
// directory for participants the provider returned as bare emails.
func (c *Cache) resolveParticipants(ctx context.Context, events []models.CalendarEvent) {
	if c.directory == nil {
		return
	}
	for i := range events {
		for j, p := range events[i].Participants {
			if p.Name != "" || p.Email == "" {
				continue
			}
			resolved := c.directory.Resolve(ctx, []string{p.Email})
			if len(resolved) == 1 {
				if p.Name == "" {
					events[i].Participants[j].Name = resolved[0].Name
				}
				events[i].Participants[j].AvatarURL = resolved[0].AvatarURL
			}
		}
	}
}

// mergeEvent overlays the provider response onto the prior record,
// preserving prior values for fields the response omitted.
func mergeEvent(prev, next models.CalendarEvent) models.CalendarEvent {
	out := next
	if out.Title == "" {
		out.Title = prev.Title
	}
	if out.Description == "" {
		out.Description = prev.Description
	}
	if out.CalendarID == "" {
		out.CalendarID = prev.CalendarID
	}
	if out.AccountID == "" {
		out.AccountID = prev.AccountID
	}
	if out.OwnerID == "" {
		out.OwnerID = prev.OwnerID
	}
	if len(out.Participants) == 0 {
		out.Participants = prev.Participants
	}
	if out.Start.IsZero() {
		out.Start = prev.Start
	}
	if out.End.IsZero() {
		out.End = prev.End
	}
	if out.Location == "" {
		out.Location = prev.Location
	}
	if out.VideoCall == nil {
		out.VideoCall = prev.VideoCall
	}
	if out.Invite == nil {
		out.Invite = prev.Invite
	}
	if out.SeriesID == "" {
		out.SeriesID = prev.SeriesID
	}
	return out
}
