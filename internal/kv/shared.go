package kv

import (
	"context"
	"log"
	"time"
)

// Shared is the store every context sees. Each successful write is announced on the
// notifier, tagged with the origin found on the context.
type Shared struct {
	backend  Store
	notifier Notifier
	now      func() time.Time
}

func NewShared(backend Store, notifier Notifier) *Shared {
	return &Shared{
		backend:  backend,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Shared) Get(ctx context.Context, key string) (Entry, bool, error) {
	return s.backend.Get(ctx, key)
}

func (s *Shared) Set(ctx context.Context, key, value string) (int64, error) {
	v, err := s.backend.Set(ctx, key, value)
	if err != nil {
		return v, err
	}
	s.announce(ctx, key, v)
	return v, nil
}

func (s *Shared) CompareAndSet(ctx context.Context, key, value string, version int64) (int64, error) {
	v, err := s.backend.CompareAndSet(ctx, key, value, version)
	if err != nil {
		return v, err
	}
	s.announce(ctx, key, v)
	return v, nil
}

func (s *Shared) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return err
	}
	s.announce(ctx, key, 0)
	return nil
}

// Notifier exposes the notifier so listeners can subscribe.
func (s *Shared) Notifier() Notifier { return s.notifier }

// Backend returns the wrapped store.
func (s *Shared) Backend() Store { return s.backend }

func (s *Shared) announce(ctx context.Context, key string, version int64) {
	if s.notifier == nil {
		return
	}
	ev := Event{Key: key, Origin: OriginFrom(ctx), Version: version, At: s.now()}
	if err := s.notifier.Publish(ctx, ev); err != nil {
		log.Printf("kv: publish %s: %v", key, err)
	}
}

var _ Store = (*Shared)(nil)
