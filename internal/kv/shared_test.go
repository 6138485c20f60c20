package kv

import (
	"context"
	"errors"
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func expectNone(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSharedNotifiesOtherOriginsOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	s := NewShared(NewMemoryStore(), hub)

	mine, err := hub.Subscribe(ctx, "tab-a")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	other, err := hub.Subscribe(ctx, "tab-b")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if _, err := s.Set(WithOrigin(ctx, "tab-a"), "surveys", "[]"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ev := recv(t, other)
	if ev.Key != "surveys" || ev.Origin != "tab-a" || ev.Version != 1 {
		t.Fatalf("unexpected event %+v", ev)
	}
	expectNone(t, mine)

	if err := s.Delete(WithOrigin(ctx, "tab-b"), "surveys"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ev := recv(t, mine); ev.Key != "surveys" || ev.Version != 0 {
		t.Fatalf("unexpected delete event %+v", ev)
	}
}

func TestSharedDoesNotAnnounceFailedWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	s := NewShared(NewMemoryStore(), hub)
	ch, _ := hub.Subscribe(ctx, "watcher")

	if _, err := s.CompareAndSet(ctx, "k", "v", 5); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	expectNone(t, ch)
}

func TestHubUnsubscribeOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := hub.Subscribe(ctx, "x")
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel not closed after cancel")
	}
	if n := hub.Subscribers(); n != 0 {
		t.Fatalf("subscribers = %d, want 0", n)
	}
}

func TestHubClosed(t *testing.T) {
	hub := NewHub()
	hub.Close()
	if _, err := hub.Subscribe(context.Background(), "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := hub.Publish(context.Background(), Event{Key: "k"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestMemoryStoreVersions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	v, err := s.CompareAndSet(ctx, "k", "a", 0)
	if err != nil || v != 1 {
		t.Fatalf("create: v=%d err=%v", v, err)
	}
	if _, err := s.CompareAndSet(ctx, "k", "b", 0); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected conflict on existing key, got %v", err)
	}
	v, _ = s.Set(ctx, "k", "c")
	if v != 2 {
		t.Fatalf("version after Set = %d, want 2", v)
	}
	e, ok, _ := s.Get(ctx, "k")
	if !ok || e.Value != "c" || e.Version != 2 {
		t.Fatalf("entry = %+v", e)
	}
	if keys := s.Keys(); len(keys) != 1 || keys[0] != "k" {
		t.Fatalf("keys = %v", keys)
	}
}

func TestMemoryStoreDeleteKeepsVersion(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	v, _ := s.Set(ctx, "k", "a")
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	e, ok, _ := s.Get(ctx, "k")
	if ok || e.Version != v+1 {
		t.Fatalf("after delete: ok=%v version=%d, want absent at %d", ok, e.Version, v+1)
	}
	if keys := s.Keys(); len(keys) != 0 {
		t.Fatalf("keys after delete = %v", keys)
	}
	if _, err := s.Set(ctx, "k", "b"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// A writer that read version 1 before the delete must not win.
	if _, err := s.CompareAndSet(ctx, "k", "stale", v); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale CompareAndSet err = %v, want conflict", err)
	}
	if _, err := s.CompareAndSet(ctx, "k", "stale", 0); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("create-only CompareAndSet on deleted key err = %v, want conflict", err)
	}
	e, _, _ = s.Get(ctx, "k")
	if e.Value != "b" || e.Version != v+2 {
		t.Fatalf("entry = %+v", e)
	}
}
