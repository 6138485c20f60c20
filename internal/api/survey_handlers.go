package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/views"
)

// GET /api/surveys lists every survey for coordinators and the published ones for
// everybody else.
func (rt *Router) handleListSurveys(w http.ResponseWriter, r *http.Request) {
	var (
		list []models.Survey
		err  error
	)
	if sess := currentSession(r); sess != nil && sess.Role == models.RoleCoordinator {
		list, err = rt.surveys.ListAll(r.Context())
	} else {
		list, err = rt.surveys.ListForGraduates(r.Context())
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type createSurveyRequest struct {
	Title     string   `json:"title"`
	Questions []string `json:"questions"`
	TargetAll bool     `json:"targetAll"`
}

// POST /api/surveys
func (rt *Router) handleCreateSurvey(w http.ResponseWriter, r *http.Request) {
	var req createSurveyRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	sv, err := rt.surveys.Create(writeContext(r), currentSession(r), req.Title, req.Questions, req.TargetAll)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sv)
}

// POST /api/surveys/{id}/publish
func (rt *Router) handlePublishSurvey(w http.ResponseWriter, r *http.Request) {
	sv, err := rt.surveys.Publish(writeContext(r), currentSession(r), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

// DELETE /api/surveys/{id}
func (rt *Router) handleDeleteSurvey(w http.ResponseWriter, r *http.Request) {
	if err := rt.surveys.Delete(writeContext(r), currentSession(r), r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GET /api/surveys/{id}/form renders the answer form as HTML.
func (rt *Router) handleSurveyForm(w http.ResponseWriter, r *http.Request) {
	sv, err := rt.surveys.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.RenderSurveyForm(w, views.NewSurveyForm(*sv)); err != nil {
		fail(w, r, err)
	}
}

// POST /api/surveys/{id}/responses accepts {"answers": [...]} or a form post with
// fields q-0, q-1, ...
func (rt *Router) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	var answers []string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Answers []string `json:"answers"`
		}
		if err := decodeJSON(r, &req); err != nil {
			fail(w, r, err)
			return
		}
		answers = req.Answers
	} else {
		if err := r.ParseForm(); err != nil {
			fail(w, r, err)
			return
		}
		for i := 0; ; i++ {
			name := fmt.Sprintf("q-%d", i)
			if _, ok := r.PostForm[name]; !ok {
				break
			}
			answers = append(answers, r.PostForm.Get(name))
		}
	}
	resp, err := rt.responses.Submit(writeContext(r), currentSession(r), r.PathValue("id"), answers)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GET /api/responses[?survey=id]
func (rt *Router) handleListResponses(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCoordinator(w, r); !ok {
		return
	}
	var (
		list []models.Response
		err  error
	)
	if id := r.URL.Query().Get("survey"); id != "" {
		list, err = rt.responses.ListBySurvey(r.Context(), id)
	} else {
		list, err = rt.responses.List(r.Context())
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/responses/mine
func (rt *Router) handleMyResponses(w http.ResponseWriter, r *http.Request) {
	list, err := rt.responses.ListMine(r.Context(), currentSession(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
