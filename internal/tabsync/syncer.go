package tabsync

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/repository"
)

// Registry tracks the live tabs of this process by origin id.
type Registry struct {
	mu   sync.RWMutex
	tabs map[string]*Tab
}

func NewRegistry() *Registry {
	return &Registry{tabs: map[string]*Tab{}}
}

// ErrTabExists is returned by Add while another live tab holds the id.
var ErrTabExists = errors.New("tabsync: tab id already in use")

// Add registers t. A tab whose loop has exited may be replaced; a live one may not.
func (r *Registry) Add(t *Tab) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.tabs[t.ID()]; ok && cur != t && !cur.exited() {
		return ErrTabExists
	}
	r.tabs[t.ID()] = t
	return nil
}

// Remove drops t only if it is still the registered tab for its id.
func (r *Registry) Remove(t *Tab) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.tabs[t.ID()]; ok && cur == t {
		delete(r.tabs, t.ID())
	}
}

func (r *Registry) Get(id string) *Tab {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tabs[id]
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.tabs))
	for id := range r.tabs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Syncer is the repositories' write hook. After a collection write it stamps the
// collection's pulse key and re-renders the writer's own tab before returning.
type Syncer struct {
	store   kv.Store
	tabs    *Registry
	now     func() time.Time
	timeout time.Duration
}

func NewSyncer(store kv.Store, tabs *Registry) *Syncer {
	return &Syncer{
		store:   store,
		tabs:    tabs,
		now:     func() time.Time { return time.Now().UTC() },
		timeout: 5 * time.Second,
	}
}

func (s *Syncer) AfterWrite(ctx context.Context, key string) {
	if pulse := repository.PulseKey(key); pulse != "" {
		if _, err := s.store.Set(ctx, pulse, s.now().Format(time.RFC3339Nano)); err != nil {
			log.Printf("tabsync: pulse %s: %v", pulse, err)
		}
	}
	origin := kv.OriginFrom(ctx)
	if origin == "" || s.tabs == nil {
		return
	}
	tab := s.tabs.Get(origin)
	if tab == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := tab.Refresh(rctx, key); err != nil && !errors.Is(err, ErrTabClosed) {
		log.Printf("tabsync: refresh tab %s after %s: %v", origin, key, err)
	}
}

var _ repository.WriteHook = (*Syncer)(nil)
