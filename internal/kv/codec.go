package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
)

// MaxUpdateAttempts bounds the optimistic retry loop in UpdateList.
const MaxUpdateAttempts = 8

// ReadList decodes the JSON array stored under key. A missing key or malformed text
// yields an empty list; only backend failures are returned as errors.
func ReadList[T any](ctx context.Context, s Store, key string) ([]T, error) {
	out, _, err := ReadListVersion[T](ctx, s, key)
	return out, err
}

// ReadListVersion is ReadList plus the version that was read.
func ReadListVersion[T any](ctx context.Context, s Store, key string) ([]T, int64, error) {
	e, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || strings.TrimSpace(e.Value) == "" {
		return []T{}, e.Version, nil
	}
	var out []T
	if err := json.Unmarshal([]byte(e.Value), &out); err != nil {
		log.Printf("kv: corrupt value under %q treated as empty: %v", key, err)
		return []T{}, e.Version, nil
	}
	if out == nil {
		out = []T{}
	}
	return out, e.Version, nil
}

// WriteList overwrites key with the JSON encoding of items.
func WriteList[T any](ctx context.Context, s Store, key string, items []T) error {
	raw, err := encodeList(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if _, err := s.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// UpdateList applies fn to the current list and stores the result if nobody else wrote
// the key in between, retrying on conflict. fn may run more than once and must not keep
// side effects outside the returned slice.
func UpdateList[T any](ctx context.Context, s Store, key string, fn func([]T) ([]T, error)) error {
	for attempt := 0; attempt < MaxUpdateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		cur, version, err := ReadListVersion[T](ctx, s, key)
		if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		raw, err := encodeList(next)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		_, err = s.CompareAndSet(ctx, key, raw, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}
	return fmt.Errorf("update %s: %w", key, ErrVersionConflict)
}

// ReadScalar decodes a single JSON value. Missing or malformed values return nil.
func ReadScalar[T any](ctx context.Context, s Store, key string) (*T, error) {
	e, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || strings.TrimSpace(e.Value) == "" {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal([]byte(e.Value), &out); err != nil {
		log.Printf("kv: corrupt value under %q ignored: %v", key, err)
		return nil, nil
	}
	return &out, nil
}

// WriteScalar stores v as JSON under key.
func WriteScalar[T any](ctx context.Context, s Store, key string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if _, err := s.Set(ctx, key, string(b)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// ReadRaw returns the raw text under key, "" when absent.
func ReadRaw(ctx context.Context, s Store, key string) (string, error) {
	e, ok, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return e.Value, nil
}

func encodeList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
