package kv

import (
	"context"
	"sync"
)

const subscriberBuffer = 16

type subscriber struct {
	origin string
	ch     chan Event
}

// Hub is an in-process Notifier. A full subscriber buffer drops the event for that
// subscriber; pollers are expected to catch what was missed.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: map[int]*subscriber{}}
}

func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	for _, sub := range h.subs {
		if ev.Origin != "" && sub.origin == ev.Origin {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, origin string) (<-chan Event, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	id := h.nextID
	h.nextID++
	sub := &subscriber{origin: origin, ch: make(chan Event, subscriberBuffer)}
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub.ch)
		}
		h.mu.Unlock()
	}()
	return sub.ch, nil
}

// Close drops all subscribers and closes their channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

var _ Notifier = (*Hub)(nil)
