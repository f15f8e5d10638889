package creds

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// cacheTTL is how long a resolved credential is reused before the store is
// consulted again.
const cacheTTL = 60 * time.Second

// Refresher exchanges an expired credential for a fresh one over the
// network.
type Refresher interface {
	Refresh(ctx context.Context, accountID string, cred Credential) (Credential, error)
}

type cached struct {
	cred    Credential
	fetched time.Time
}

// Coordinator hands out valid credentials, guaranteeing at most one
// outstanding refresh request per account. Concurrent callers that hit the
// same expired credential share the one in-flight refresh and receive its
// result; once the flight resolves it is forgotten, so a later expiry can
// start a new one.
type Coordinator struct {
	store     Store
	refresher Refresher
	logger    *slog.Logger
	now       func() time.Time

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]cached
}

// NewCoordinator builds a coordinator over the given store and refresher.
func NewCoordinator(store Store, refresher Refresher, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:     store,
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
		cache:     make(map[string]cached),
	}
}

// Credential returns a valid credential for the account, refreshing it if
// expired. On refresh failure the caller receives nil and should skip the
// account for the current operation rather than retry inline.
func (c *Coordinator) Credential(ctx context.Context, accountID string) (*Credential, error) {
	now := c.now()

	c.mu.Lock()
	entry, ok := c.cache[accountID]
	c.mu.Unlock()
	if ok && now.Sub(entry.fetched) < cacheTTL && !entry.cred.Expired(now) {
		cred := entry.cred
		return &cred, nil
	}

	cred, err := c.store.Read(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential: %w", err)
	}
	if !cred.Expired(now) {
		c.put(accountID, cred)
		return &cred, nil
	}

	refreshed, err, _ := c.group.Do(accountID, func() (any, error) {
		c.logger.Debug("refreshing credential", "accountID", accountID)
		fresh, err := c.refresher.Refresh(ctx, accountID, cred)
		if err != nil {
			return nil, err
		}
		if err := c.store.Write(accountID, fresh); err != nil {
			c.logger.Warn("failed to persist refreshed credential", "accountID", accountID, "error", err)
		}
		c.put(accountID, fresh)
		return fresh, nil
	})
	if err != nil {
		c.logger.Error("credential refresh failed", "accountID", accountID, "error", err)
		return nil, fmt.Errorf("failed to refresh credential for account %s: %w", accountID, err)
	}

	fresh := refreshed.(Credential)
	return &fresh, nil
}

// Invalidate drops the account's cached credential so the next caller
// consults the store again. Unrelated accounts are untouched.
func (c *Coordinator) Invalidate(accountID string) {
	c.mu.Lock()
	delete(c.cache, accountID)
	c.mu.Unlock()
}

func (c *Coordinator) put(accountID string, cred Credential) {
	c.mu.Lock()
	c.cache[accountID] = cached{cred: cred, fetched: c.now()}
	c.mu.Unlock()
}
