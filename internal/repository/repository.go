// Package repository holds typed accessors over the four shared collections. Each
// collection is a JSON array under a fixed key; mutations go through kv.UpdateList so
// concurrent writers retry instead of overwriting each other.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soaringjerry/gradtrack/internal/kv"
)

// Collection keys.
const (
	KeyUsers     = "users"
	KeySurveys   = "surveys"
	KeyResponses = "responses"
	KeyTrainings = "trainings"
)

// Pulse keys carry only a timestamp and exist to force a change notification.
const (
	PulseUsers     = "users-update-pulse"
	PulseSurveys   = "surveys-update-pulse"
	PulseResponses = "responses-update-pulse"
	PulseTrainings = "trainings-update-pulse"
)

// Snapshot keys hold the last rendered dashboard view models.
const (
	KeyStatsSnapshot     = "coordinator-stats-snapshot"
	KeyGraduatesSnapshot = "coordinator-graduates-snapshot"
	KeySurveysSnapshot   = "coordinator-surveys-snapshot"
	KeyResponsesSnapshot = "coordinator-responses-snapshot"
)

// PulseKey returns the pulse key paired with a collection key, or "".
func PulseKey(collection string) string {
	switch collection {
	case KeyUsers:
		return PulseUsers
	case KeySurveys:
		return PulseSurveys
	case KeyResponses:
		return PulseResponses
	case KeyTrainings:
		return PulseTrainings
	}
	return ""
}

// WriteHook observes persisted mutations. AfterWrite runs on the writer's goroutine
// once the collection has been stored.
type WriteHook interface {
	AfterWrite(ctx context.Context, key string)
}

// errNoMatch aborts an UpdateList when the target record is absent.
var errNoMatch = errors.New("repository: no matching record")

type base struct {
	store kv.Store
	hook  WriteHook
	now   func() time.Time
}

func newBase(store kv.Store, hook WriteHook) base {
	return base{
		store: store,
		hook:  hook,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (b base) written(ctx context.Context, key string) {
	if b.hook != nil {
		b.hook.AfterWrite(ctx, key)
	}
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

// Set holds one repository of each kind over a shared store.
type Set struct {
	Users     *Users
	Surveys   *Surveys
	Responses *Responses
	Trainings *Trainings
}

func NewSet(store kv.Store, hook WriteHook) *Set {
	return &Set{
		Users:     NewUsers(store, hook),
		Surveys:   NewSurveys(store, hook),
		Responses: NewResponses(store, hook),
		Trainings: NewTrainings(store, hook),
	}
}
