package snapshot

import (
	"context"
	"errors"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := &FileStore{Dir: t.TempDir()}
	ctx := context.Background()

	type blob struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := store.Save(ctx, "events/user-1", blob{Name: "week", Count: 3}); err != nil {
		t.Fatalf("save: %v", err)
	}

	var got blob
	if err := store.Load(ctx, "events/user-1", &got); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "week" || got.Count != 3 {
		t.Fatalf("loaded %+v, want {week 3}", got)
	}
}

func TestFileStoreMissingKey(t *testing.T) {
	store := &FileStore{Dir: t.TempDir()}

	var v struct{}
	if err := store.Load(context.Background(), "absent", &v); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load of missing key = %v, want ErrNotFound", err)
	}
}

func TestFileStoreDelete(t *testing.T) {
	store := &FileStore{Dir: t.TempDir()}
	ctx := context.Background()

	if err := store.Save(ctx, "k", map[string]int{"a": 1}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var v map[string]int
	if err := store.Load(ctx, "k", &v); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load after delete = %v, want ErrNotFound", err)
	}
	// Deleting again is a no-op.
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}
