package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/services"
)

// GET /api/users/pending
func (rt *Router) handlePending(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCoordinator(w, r); !ok {
		return
	}
	users, err := rt.graduates.ListPending(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publicUsers(users))
}

// GET /api/users/approved?q=&program=&year=
func (rt *Router) handleApproved(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCoordinator(w, r); !ok {
		return
	}
	q := r.URL.Query()
	filter := services.ApprovedFilter{Query: q.Get("q"), Program: q.Get("program")}
	if y := strings.TrimSpace(q.Get("year")); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			fail(w, r, services.NewFieldError("year", "register.graduation_year"))
			return
		}
		filter.Year = n
	}
	users, err := rt.graduates.ListApproved(r.Context(), filter)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publicUsers(users))
}

// POST /api/users/{email}/approve
func (rt *Router) handleApprove(w http.ResponseWriter, r *http.Request) {
	if err := rt.graduates.Approve(writeContext(r), currentSession(r), r.PathValue("email")); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// POST /api/users/{email}/reject
func (rt *Router) handleReject(w http.ResponseWriter, r *http.Request) {
	if err := rt.graduates.Reject(writeContext(r), currentSession(r), r.PathValue("email")); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GET /api/profile
func (rt *Router) handleProfile(w http.ResponseWriter, r *http.Request) {
	u, err := rt.graduates.Profile(r.Context(), currentSession(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publicUser(u))
}

// PUT /api/profile
func (rt *Router) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in services.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		fail(w, r, err)
		return
	}
	u, err := rt.graduates.UpdateProfile(writeContext(r), currentSession(r), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publicUser(u))
}

// PUT /api/profile/employment
func (rt *Router) handleEmployment(w http.ResponseWriter, r *http.Request) {
	var emp models.Employment
	if err := decodeJSON(r, &emp); err != nil {
		fail(w, r, err)
		return
	}
	u, err := rt.graduates.SaveEmployment(writeContext(r), currentSession(r), emp)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publicUser(u))
}

// POST /api/profile/trainings {"title": "..."}
func (rt *Router) handleAddOwnTraining(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	u, err := rt.graduates.AddTraining(writeContext(r), currentSession(r), req.Title)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publicUser(u))
}
