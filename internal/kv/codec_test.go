package kv

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type record struct {
	ID   string   `json:"id"`
	Tags []string `json:"tags,omitempty"`
	N    int      `json:"n"`
}

func TestWriteReadListRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	cases := [][]record{
		{},
		{{ID: "a", N: 1}},
		{{ID: "a", Tags: []string{"x", "y"}, N: 1}, {ID: "b", N: 2}},
	}
	for i, in := range cases {
		if err := WriteList(ctx, s, "k", in); err != nil {
			t.Fatalf("case %d: WriteList: %v", i, err)
		}
		got, err := ReadList[record](ctx, s, "k")
		if err != nil {
			t.Fatalf("case %d: ReadList: %v", i, err)
		}
		if !reflect.DeepEqual(got, in) {
			t.Fatalf("case %d: got %+v, want %+v", i, got, in)
		}
	}
}

func TestReadListMissingAndCorrupt(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	got, err := ReadList[record](ctx, s, "missing")
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("missing key: got %v, %v", got, err)
	}
	if _, err := s.Set(ctx, "bad", "{not json"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err = ReadList[record](ctx, s, "bad")
	if err != nil {
		t.Fatalf("corrupt key returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("corrupt key: got %v, want empty", got)
	}
	if _, err := s.Set(ctx, "null", "null"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ = ReadList[record](ctx, s, "null")
	if got == nil || len(got) != 0 {
		t.Fatalf("null value: got %v", got)
	}
}

func TestWriteListNilIsEmptyArray(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := WriteList[record](ctx, s, "k", nil); err != nil {
		t.Fatalf("WriteList: %v", err)
	}
	raw, _ := ReadRaw(ctx, s, "k")
	if raw != "[]" {
		t.Fatalf("raw = %q, want []", raw)
	}
}

func TestReadScalar(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	v, err := ReadScalar[record](ctx, s, "one")
	if err != nil || v != nil {
		t.Fatalf("absent scalar: %v %v", v, err)
	}
	if err := WriteScalar(ctx, s, "one", record{ID: "x", N: 3}); err != nil {
		t.Fatalf("WriteScalar: %v", err)
	}
	v, err = ReadScalar[record](ctx, s, "one")
	if err != nil || v == nil || v.ID != "x" || v.N != 3 {
		t.Fatalf("scalar = %+v, %v", v, err)
	}
	_, _ = s.Set(ctx, "one", "][")
	v, err = ReadScalar[record](ctx, s, "one")
	if err != nil || v != nil {
		t.Fatalf("corrupt scalar: %v %v", v, err)
	}
}

// racingStore makes the first CompareAndSet lose against a concurrent writer.
type racingStore struct {
	*MemoryStore
	raced bool
}

func (r *racingStore) CompareAndSet(ctx context.Context, key, value string, version int64) (int64, error) {
	if !r.raced {
		r.raced = true
		if _, err := r.MemoryStore.Set(ctx, key, `[{"id":"other","n":9}]`); err != nil {
			return 0, err
		}
	}
	return r.MemoryStore.CompareAndSet(ctx, key, value, version)
}

func TestUpdateListRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	s := &racingStore{MemoryStore: NewMemoryStore()}
	calls := 0
	err := UpdateList(ctx, s, "k", func(cur []record) ([]record, error) {
		calls++
		return append(cur, record{ID: "mine", N: 1}), nil
	})
	if err != nil {
		t.Fatalf("UpdateList: %v", err)
	}
	if calls != 2 {
		t.Fatalf("fn calls = %d, want 2", calls)
	}
	got, _ := ReadList[record](ctx, s, "k")
	if len(got) != 2 || got[0].ID != "other" || got[1].ID != "mine" {
		t.Fatalf("concurrent write lost: %+v", got)
	}
}

type alwaysConflict struct{ *MemoryStore }

func (alwaysConflict) CompareAndSet(context.Context, string, string, int64) (int64, error) {
	return 0, ErrVersionConflict
}

func TestUpdateListGivesUp(t *testing.T) {
	err := UpdateList(context.Background(), alwaysConflict{NewMemoryStore()}, "k", func(cur []record) ([]record, error) {
		return cur, nil
	})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
}

func TestUpdateListPropagatesFnError(t *testing.T) {
	boom := errors.New("boom")
	err := UpdateList(context.Background(), NewMemoryStore(), "k", func(cur []record) ([]record, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
}
