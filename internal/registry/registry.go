// Package registry tracks which calendars are enabled for display and
// resolves the default calendar for new events.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"calcore/internal/models"
	"calcore/internal/snapshot"
)

const snapshotKey = "calendars/enabled"

type persisted struct {
	Seeded  bool            `json:"seeded"`
	Enabled map[string]bool `json:"enabled"`
}

// Registry is the persisted set of enabled calendar IDs. The first time a
// user's calendar list is observed every calendar is enabled; afterwards
// newly discovered calendars default to enabled while toggled state is
// preserved.
type Registry struct {
	logger *slog.Logger
	store  snapshot.Store

	mu      sync.Mutex
	seeded  bool
	enabled map[string]bool
}

// New loads persisted visibility state, starting empty when none exists.
func New(ctx context.Context, store snapshot.Store, logger *slog.Logger) *Registry {
	r := &Registry{logger: logger, store: store, enabled: make(map[string]bool)}

	var state persisted
	err := store.Load(ctx, snapshotKey, &state)
	switch {
	case err == nil:
		r.seeded = state.Seeded
		if state.Enabled != nil {
			r.enabled = state.Enabled
		}
	case errors.Is(err, snapshot.ErrNotFound):
		// First run.
	default:
		logger.Warn("failed to load calendar visibility state", "error", err)
	}
	return r
}

// Observe reconciles the registry with a freshly fetched calendar list.
// Unknown calendars are enabled by default.
func (r *Registry) Observe(ctx context.Context, calendars []models.Calendar) {
	r.mu.Lock()
	changed := false
	for _, cal := range calendars {
		if _, known := r.enabled[cal.ID]; !known {
			r.enabled[cal.ID] = true
			changed = true
		}
	}
	if !r.seeded {
		r.seeded = true
		changed = true
	}
	r.mu.Unlock()

	if changed {
		r.persist(ctx)
	}
}

// SetEnabled toggles one calendar and persists the change.
func (r *Registry) SetEnabled(ctx context.Context, calendarID string, on bool) {
	r.mu.Lock()
	r.enabled[calendarID] = on
	r.mu.Unlock()
	r.persist(ctx)
}

// Enabled reports whether the calendar is displayed. Calendars the registry
// has never observed count as enabled.
func (r *Registry) Enabled(calendarID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	on, known := r.enabled[calendarID]
	return !known || on
}

// EnabledSet returns a copy of the current visibility map.
func (r *Registry) EnabledSet() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool, len(r.enabled))
	for id, on := range r.enabled {
		out[id] = on
	}
	return out
}

// DefaultCalendar resolves where new events land: the primary editable
// calendar if enabled, else any editable enabled calendar, else any enabled
// calendar, else the first known one.
func (r *Registry) DefaultCalendar(calendars []models.Calendar) (models.Calendar, bool) {
	if len(calendars) == 0 {
		return models.Calendar{}, false
	}

	for _, cal := range calendars {
		if cal.Default && cal.Editable && r.Enabled(cal.ID) {
			return cal, true
		}
	}
	for _, cal := range calendars {
		if cal.Editable && r.Enabled(cal.ID) {
			return cal, true
		}
	}
	for _, cal := range calendars {
		if r.Enabled(cal.ID) {
			return cal, true
		}
	}
	return calendars[0], true
}

func (r *Registry) persist(ctx context.Context) {
	r.mu.Lock()
	state := persisted{Seeded: r.seeded, Enabled: make(map[string]bool, len(r.enabled))}
	for id, on := range r.enabled {
		state.Enabled[id] = on
	}
	r.mu.Unlock()

	if err := r.store.Save(ctx, snapshotKey, state); err != nil {
		r.logger.Warn("failed to persist calendar visibility state", "error", err)
	}
}
