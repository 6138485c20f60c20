package api

import (
	"net/http"
	"strconv"

	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/services"
)

// GET /api/trainings
func (rt *Router) handleListTrainings(w http.ResponseWriter, r *http.Request) {
	list, err := rt.trainings.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /api/trainings
func (rt *Router) handleCreateTraining(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	t, err := rt.trainings.Create(writeContext(r), currentSession(r), req.Title, req.Description)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// DELETE /api/trainings/{id}?confirm=true
func (rt *Router) handleDeleteTraining(w http.ResponseWriter, r *http.Request) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := rt.trainings.Delete(writeContext(r), currentSession(r), r.PathValue("id"), confirmed); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GET /api/stats
func (rt *Router) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCoordinator(w, r); !ok {
		return
	}
	st, err := rt.stats.Current(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// PUT /api/stats stores an edited snapshot.
func (rt *Router) handleSaveStats(w http.ResponseWriter, r *http.Request) {
	var st models.Stats
	if err := decodeJSON(r, &st); err != nil {
		fail(w, r, err)
		return
	}
	saved, err := rt.stats.Save(writeContext(r), currentSession(r), st)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DELETE /api/stats drops the edited snapshot.
func (rt *Router) handleResetStats(w http.ResponseWriter, r *http.Request) {
	if err := rt.stats.Reset(writeContext(r), currentSession(r)); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type exportFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

// GET /api/export?table=users returns one CSV. Without table it returns the bundle in
// format zip (default), xlsx or csv. When the bundle comes back as several files they
// are sent as a JSON list with base64 bodies.
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess := currentSession(r)
	var (
		files []services.ExportResult
		err   error
	)
	if table := q.Get("table"); table != "" {
		var res *services.ExportResult
		if res, err = rt.export.Table(r.Context(), sess, table); err == nil {
			files = []services.ExportResult{*res}
		}
	} else {
		files, err = rt.export.Bundle(r.Context(), sess, q.Get("format"))
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	if len(files) == 1 {
		f := files[0]
		w.Header().Set("Content-Type", f.ContentType)
		w.Header().Set("Content-Disposition", "attachment; filename="+f.Filename)
		_, _ = w.Write(f.Data)
		return
	}
	out := make([]exportFile, 0, len(files))
	for _, f := range files {
		out = append(out, exportFile(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": out})
}

// GET /api/views/coordinator[?snapshot=1]
func (rt *Router) handleCoordinatorView(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCoordinator(w, r); !ok {
		return
	}
	if snap, _ := strconv.ParseBool(r.URL.Query().Get("snapshot")); snap {
		v, err := rt.views.LoadSnapshot(r.Context())
		if err != nil {
			fail(w, r, err)
			return
		}
		if v != nil {
			writeJSON(w, http.StatusOK, scrubCoordinator(v))
			return
		}
	}
	v, err := rt.views.Coordinator(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scrubCoordinator(v))
}

// DELETE /api/views/coordinator/responses
func (rt *Router) handleClearResponsesSnapshot(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCoordinator(w, r); !ok {
		return
	}
	if err := rt.views.ClearResponses(r.Context()); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GET /api/views/graduate
func (rt *Router) handleGraduateView(w http.ResponseWriter, r *http.Request) {
	v, err := rt.views.Graduate(r.Context(), currentSession(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	if v.Profile != nil {
		v.Profile = publicUser(v.Profile)
	}
	writeJSON(w, http.StatusOK, v)
}
