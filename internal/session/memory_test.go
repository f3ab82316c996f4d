package session

import (
	"context"
	"testing"
	"time"
)

func testSession() Session {
	return Session{
		Identity: Identity{
			ID:    "u1",
			Name:  "U",
			Email: "user@example.com",
		},
		Token:     "tok1",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if err := store.Save(ctx, "k1", testSession()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := store.Load(ctx, "k1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("expected session to be present")
	}
	if got.Identity.ID != "u1" || got.Identity.Name != "U" || got.Token != "tok1" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(testSession().CreatedAt) {
		t.Fatalf("created_at mismatch: %v", got.CreatedAt)
	}
}

func TestMemoryLoadAbsent(t *testing.T) {
	_, ok, err := NewMemory().Load(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected empty load for never-set key")
	}
}

func TestMemoryClearIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if err := store.Save(ctx, "k1", testSession()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Clear(ctx, "k1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := store.Clear(ctx, "k1"); err != nil {
		t.Fatalf("second Clear: %v", err)
	}

	if _, ok, _ := store.Load(ctx, "k1"); ok {
		t.Fatal("expected empty load after clear")
	}
}

func TestMemorySaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	first := testSession()
	second := testSession()
	second.Identity.ID = "u2"
	second.Token = "tok2"

	if err := store.Save(ctx, "k1", first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, "k1", second); err != nil {
		t.Fatalf("overwrite Save: %v", err)
	}

	got, ok, err := store.Load(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.Identity.ID != "u2" || got.Token != "tok2" {
		t.Fatalf("expected full overwrite, got %+v", got)
	}
}

func TestMemoryCorruptRecordLoadsEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "unparseable", raw: `{not json`},
		{name: "identity without token", raw: `{"identity":{"id":"u1","name":"U"},"token":""}`},
		{name: "token without identity", raw: `{"identity":{"id":"","name":""},"token":"tok1"}`},
		{name: "empty object", raw: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemory()
			store.putRaw("k1", []byte(tt.raw))

			got, ok, err := store.Load(context.Background(), "k1")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if ok {
				t.Fatalf("expected corrupt record to read as empty, got %+v", got)
			}
		})
	}
}
