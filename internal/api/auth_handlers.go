package api

import (
	"net/http"

	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/services"
)

// POST /api/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		fail(w, r, err)
		return
	}
	u, err := rt.accounts.Register(writeContext(r), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, publicUser(u))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Session *models.Session `json:"session"`
	Token   string          `json:"token"`
}

// POST /api/login sets the session cookie and also returns a bearer token.
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	sess, err := rt.auth.Manager(w, r).Login(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		fail(w, r, err)
		return
	}
	tok, err := rt.auth.SignToken(*sess)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Session: sess, Token: tok})
}

// POST /api/logout ends the cookie session and revokes a presented bearer token.
func (rt *Router) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := rt.auth.Logout(w, r); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GET /api/me
func (rt *Router) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
