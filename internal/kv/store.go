package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrVersionConflict is returned by CompareAndSet when the stored version moved.
	ErrVersionConflict = errors.New("kv: version conflict")
	// ErrClosed is returned by notifiers that were shut down.
	ErrClosed = errors.New("kv: closed")
)

// Entry is the raw serialized value stored under a key. Version grows by one on every
// write and delete; a key that was never written has version 0. Get on a deleted key
// reports it absent with the version of the delete.
type Entry struct {
	Value   string
	Version int64
}

// Store is a string key-value store with per-key versions.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key, value string) (int64, error)
	// CompareAndSet writes value only if the current version equals version.
	// A version of 0 means the key must never have been written.
	CompareAndSet(ctx context.Context, key, value string, version int64) (int64, error)
	Delete(ctx context.Context, key string) error
}

// Event announces that a key changed. Origin identifies the writing context.
type Event struct {
	Key     string    `json:"key"`
	Origin  string    `json:"origin,omitempty"`
	Version int64     `json:"version"`
	At      time.Time `json:"at"`
}

// Notifier fans change events out to other contexts.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe returns a channel that is closed when ctx is done. Events whose Origin
	// equals origin are never delivered on it.
	Subscribe(ctx context.Context, origin string) (<-chan Event, error)
}

type originKey struct{}

// WithOrigin tags ctx with the id of the writing context (a browser tab, an SSE stream).
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFrom returns the origin stored by WithOrigin, or "".
func OriginFrom(ctx context.Context) string {
	if v, ok := ctx.Value(originKey{}).(string); ok {
		return v
	}
	return ""
}
