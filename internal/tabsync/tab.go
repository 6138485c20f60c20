// Package tabsync keeps open views consistent with the shared store. Each Tab runs one
// loop fed by change notifications, an optional raw-value poller and synchronous local
// refresh requests, so renders inside a tab never interleave.
package tabsync

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/repository"
)

// DefaultPollInterval is the fallback poll period.
const DefaultPollInterval = 1200 * time.Millisecond

// ErrTabClosed is returned by Refresh once the tab loop has exited.
var ErrTabClosed = errors.New("tabsync: tab closed")

// Renderer redraws the view for a changed collection key.
type Renderer func(ctx context.Context, key string) error

type refreshRequest struct {
	key  string
	done chan error
}

type Tab struct {
	id       string
	store    kv.Store
	notifier kv.Notifier
	watch    map[string]bool
	render   Renderer
	interval time.Duration
	initial  bool

	refresh  chan refreshRequest
	started  chan struct{}
	stopped  chan struct{}
	lastSeen map[string]string
}

// Option customizes a Tab.
type Option func(*Tab)

// WithPollInterval sets the poll period; zero or negative disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(t *Tab) { t.interval = d }
}

// WithInitialRender renders once with an empty key after the tab has subscribed and
// before it accepts refreshes.
func WithInitialRender() Option {
	return func(t *Tab) { t.initial = true }
}

// NewTab builds a tab watching the given collection keys. Pulse keys for those
// collections are watched implicitly.
func NewTab(id string, store kv.Store, notifier kv.Notifier, keys []string, render Renderer, opts ...Option) *Tab {
	t := &Tab{
		id:       id,
		store:    store,
		notifier: notifier,
		watch:    map[string]bool{},
		render:   render,
		interval: DefaultPollInterval,
		refresh:  make(chan refreshRequest),
		started:  make(chan struct{}),
		stopped:  make(chan struct{}),
		lastSeen: map[string]string{},
	}
	for _, k := range keys {
		t.watch[k] = true
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tab) ID() string { return t.id }

func (t *Tab) exited() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

// collectionFor maps a pulse key to its collection. It returns "" for keys the tab
// does not watch.
func (t *Tab) collectionFor(key string) string {
	for k := range t.watch {
		if k == key || repository.PulseKey(k) == key {
			return k
		}
	}
	return ""
}

// Run drives the tab until ctx is cancelled.
func (t *Tab) Run(ctx context.Context) error {
	defer close(t.stopped)

	var events <-chan kv.Event
	if t.notifier != nil {
		ch, err := t.notifier.Subscribe(ctx, t.id)
		if err != nil {
			close(t.started)
			return err
		}
		events = ch
	}
	for k := range t.watch {
		if raw, err := kv.ReadRaw(ctx, t.store, k); err == nil {
			t.lastSeen[k] = raw
		}
	}
	if t.initial {
		if err := t.render(ctx, ""); err != nil {
			close(t.started)
			return err
		}
	}
	close(t.started)

	var tick <-chan time.Time
	if t.interval > 0 {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				// notifier went away; keep serving refreshes and polls
				events = nil
				continue
			}
			if key := t.collectionFor(ev.Key); key != "" {
				t.checkAndRender(ctx, key)
			}
		case <-tick:
			for key := range t.watch {
				t.checkAndRender(ctx, key)
			}
		case req := <-t.refresh:
			req.done <- t.renderNow(ctx, req.key)
		}
	}
}

// Refresh re-renders key on the tab loop and waits for the render to finish.
func (t *Tab) Refresh(ctx context.Context, key string) error {
	req := refreshRequest{key: key, done: make(chan error, 1)}
	select {
	case <-t.started:
	case <-t.stopped:
		return ErrTabClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case t.refresh <- req:
	case <-t.stopped:
		return ErrTabClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (t *Tab) Done() <-chan struct{} { return t.stopped }

func (t *Tab) checkAndRender(ctx context.Context, key string) {
	raw, err := kv.ReadRaw(ctx, t.store, key)
	if err != nil {
		log.Printf("tabsync: tab %s: read %s: %v", t.id, key, err)
		return
	}
	if prev, ok := t.lastSeen[key]; ok && prev == raw {
		return
	}
	t.lastSeen[key] = raw
	if err := t.render(ctx, key); err != nil {
		log.Printf("tabsync: tab %s: render %s: %v", t.id, key, err)
	}
}

func (t *Tab) renderNow(ctx context.Context, key string) error {
	if coll := t.collectionFor(key); coll != "" {
		if raw, err := kv.ReadRaw(ctx, t.store, coll); err == nil {
			t.lastSeen[coll] = raw
		}
		key = coll
	}
	return t.render(ctx, key)
}
