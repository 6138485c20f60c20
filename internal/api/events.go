package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/repository"
	"github.com/soaringjerry/gradtrack/internal/services"
	"github.com/soaringjerry/gradtrack/internal/tabsync"
	"github.com/soaringjerry/gradtrack/internal/views"
)

// renderEvent is one server-sent view update. Key is the collection that changed, or
// empty for the initial render.
type renderEvent struct {
	Tab     string `json:"tab"`
	Key     string `json:"key,omitempty"`
	Section string `json:"section,omitempty"`
	View    any    `json:"view"`
}

func scrubCoordinator(v *views.CoordinatorView) *views.CoordinatorView {
	v.Pending = publicUsers(v.Pending)
	v.Approved = publicUsers(v.Approved)
	return v
}

// tabOrigin scopes a client-chosen tab id to the account that opened it, so one user
// cannot claim another user's tab by guessing its id.
func tabOrigin(sess *models.Session, id string) string {
	return strings.ToLower(strings.TrimSpace(sess.Email)) + "#" + id
}

// GET /api/events?tab=<id> streams the caller's dashboard view. The connection is one
// tab: it re-renders when another tab or process changes a watched collection, and
// synchronously when a request carrying the same X-Tab-ID writes.
func (rt *Router) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("tab"))
	if id == "" {
		id = uuid.NewString()
	}

	build := rt.graduateRender(sess)
	keys := []string{repository.KeyUsers, repository.KeySurveys, repository.KeyTrainings}
	if sess.Role == models.RoleCoordinator {
		build = rt.coordinatorRender
		keys = append(keys, repository.KeyResponses)
	}

	send := func(ctx context.Context, key string) error {
		view, err := build(ctx)
		if err != nil {
			return err
		}
		data, err := json.Marshal(renderEvent{Tab: id, Key: key, Section: views.Section(key), View: view})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: render\ndata: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	tab := tabsync.NewTab(tabOrigin(sess, id), rt.opts.Store, rt.opts.Notifier, keys, send,
		tabsync.WithPollInterval(rt.opts.PollInterval), tabsync.WithInitialRender())
	if err := rt.tabs.Add(tab); err != nil {
		fail(w, r, services.NewKeyedError(services.ErrorConflict, "events.tab_in_use"))
		return
	}
	defer rt.tabs.Remove(tab)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	if err := tab.Run(r.Context()); err != nil {
		log.Printf("api: tab %s: %v", id, err)
	}
}

func (rt *Router) coordinatorRender(ctx context.Context) (any, error) {
	v, err := rt.views.Coordinator(ctx)
	if err != nil {
		return nil, err
	}
	v = scrubCoordinator(v)
	if err := rt.views.SaveSnapshots(ctx, v); err != nil {
		log.Printf("api: save coordinator snapshots: %v", err)
	}
	return v, nil
}

func (rt *Router) graduateRender(sess *models.Session) func(ctx context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		v, err := rt.views.Graduate(ctx, sess)
		if err != nil {
			return nil, err
		}
		v.Profile = publicUser(v.Profile)
		return v, nil
	}
}
