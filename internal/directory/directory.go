// Package directory resolves participant identities (display name, avatar)
// by email, with a TTL cache in front so rendering a week of events never
// costs one lookup per participant.
package directory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"calcore/internal/models"
)

// Lookup is the external user-directory contract.
type Lookup interface {
	Lookup(ctx context.Context, email string) (models.Participant, error)
}

type entry struct {
	participant models.Participant
	fetched     time.Time
}

// Cache is a TTL read-through cache over a Lookup.
type Cache struct {
	inner  Lookup
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// NewCache wraps the lookup with the given TTL.
func NewCache(inner Lookup, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		inner:   inner,
		logger:  logger,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Resolve returns one participant per email, in order. A failed lookup
// degrades to a participant carrying only the email; it is not an error.
func (c *Cache) Resolve(ctx context.Context, emails []string) []models.Participant {
	out := make([]models.Participant, 0, len(emails))
	for _, email := range emails {
		out = append(out, c.resolveOne(ctx, email))
	}
	return out
}

func (c *Cache) resolveOne(ctx context.Context, email string) models.Participant {
	now := c.now()

	c.mu.Lock()
	e, ok := c.entries[email]
	c.mu.Unlock()
	if ok && now.Sub(e.fetched) < c.ttl {
		return e.participant
	}

	p, err := c.inner.Lookup(ctx, email)
	if err != nil {
		c.logger.Debug("directory lookup failed", "email", email, "error", err)
		return models.Participant{ID: email, Email: email}
	}

	c.mu.Lock()
	c.entries[email] = entry{participant: p, fetched: now}
	c.mu.Unlock()
	return p
}

// Invalidate drops all cached identities.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}
