package kv

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps entries in a map. It backs session scopes and tests, and the
// whole application when no durable backend is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	// tombstones keep the version of deleted keys.
	tombstones map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]Entry{}, tombstones: map[string]int64{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry{Version: s.tombstones[key]}, false, nil
	}
	return e, true, nil
}

// current returns the live entry or an empty one carrying the tombstone version.
func (s *MemoryStore) current(key string) Entry {
	if e, ok := s.entries[key]; ok {
		return e
	}
	return Entry{Version: s.tombstones[key]}
}

func (s *MemoryStore) Set(_ context.Context, key, value string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(key, value), nil
}

func (s *MemoryStore) CompareAndSet(_ context.Context, key, value string, version int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.current(key).Version; cur != version {
		return cur, ErrVersionConflict
	}
	return s.put(key, value), nil
}

func (s *MemoryStore) put(key, value string) int64 {
	e := s.current(key)
	e.Value = value
	e.Version++
	s.entries[key] = e
	delete(s.tombstones, key)
	return e.Version
}

// Delete removes key but keeps counting its versions, so a CompareAndSet prepared
// before the delete cannot succeed after the key is written again.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	delete(s.entries, key)
	s.tombstones[key] = e.Version + 1
	return nil
}

// Keys lists stored keys in sorted order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for k := range s.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var _ Store = (*MemoryStore)(nil)
