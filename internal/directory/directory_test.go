package directory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"calcore/internal/models"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type countingLookup struct {
	calls int
	users map[string]models.Participant
}

func (l *countingLookup) Lookup(ctx context.Context, email string) (models.Participant, error) {
	l.calls++
	p, ok := l.users[email]
	if !ok {
		return models.Participant{}, errors.New("unknown user")
	}
	return p, nil
}

func TestResolveCachesWithinTTL(t *testing.T) {
	inner := &countingLookup{users: map[string]models.Participant{
		"ana@example.com": {ID: "u1", Name: "Ana", Email: "ana@example.com"},
	}}
	c := NewCache(inner, time.Minute, testLogger)

	for i := 0; i < 3; i++ {
		got := c.Resolve(context.Background(), []string{"ana@example.com"})
		if len(got) != 1 || got[0].Name != "Ana" {
			t.Fatalf("resolve %d = %+v", i, got)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("lookup calls = %d, want 1", inner.calls)
	}
}

func TestResolveExpiredEntryRefetches(t *testing.T) {
	inner := &countingLookup{users: map[string]models.Participant{
		"ana@example.com": {Name: "Ana", Email: "ana@example.com"},
	}}
	c := NewCache(inner, time.Minute, testLogger)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Resolve(context.Background(), []string{"ana@example.com"})

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	c.Resolve(context.Background(), []string{"ana@example.com"})

	if inner.calls != 2 {
		t.Fatalf("lookup calls = %d, want 2", inner.calls)
	}
}

func TestResolveFailureDegradesToEmail(t *testing.T) {
	c := NewCache(&countingLookup{}, time.Minute, testLogger)

	got := c.Resolve(context.Background(), []string{"ghost@example.com"})
	if len(got) != 1 {
		t.Fatalf("resolve = %+v", got)
	}
	if got[0].Email != "ghost@example.com" || got[0].Name != "" {
		t.Fatalf("failed lookup should yield a bare-email participant, got %+v", got[0])
	}
}

func TestInvalidateDropsEntries(t *testing.T) {
	inner := &countingLookup{users: map[string]models.Participant{
		"ana@example.com": {Name: "Ana", Email: "ana@example.com"},
	}}
	c := NewCache(inner, time.Hour, testLogger)

	c.Resolve(context.Background(), []string{"ana@example.com"})
	c.Invalidate()
	c.Resolve(context.Background(), []string{"ana@example.com"})

	if inner.calls != 2 {
		t.Fatalf("lookup calls = %d, want 2", inner.calls)
	}
}
