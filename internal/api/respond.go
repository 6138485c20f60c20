package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/middleware"
	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/services"
	"github.com/soaringjerry/gradtrack/internal/session"
	"github.com/soaringjerry/gradtrack/internal/utils"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return services.NewInvalidError("invalid JSON body: " + err.Error())
	}
	return nil
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorForbidden:
		return http.StatusForbidden
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	case services.ErrorTooManyRequests:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// fail maps err to a localized JSON error. Unknown errors are logged and reported as 500.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	var authErr *session.AuthError
	switch {
	case errors.As(err, &authErr):
		writeJSON(w, http.StatusUnauthorized, errorBody{
			Error: utils.T(locale, authErr.MessageKey()),
			Code:  string(services.ErrorUnauthorized),
		})
	case errors.Is(err, kv.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: string(services.ErrorConflict)})
	default:
		if se, ok := services.AsServiceError(err); ok {
			writeJSON(w, statusFor(se.Code), errorBody{Error: se.Localized(locale), Code: string(se.Code), Field: se.Field})
			return
		}
		log.Printf("api: %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// writeContext tags the request context with the caller's tab so the tab that made a
// change re-renders synchronously and is not notified again. Anonymous writes have no
// tab.
func writeContext(r *http.Request) context.Context {
	sess := currentSession(r)
	if id := strings.TrimSpace(r.Header.Get(TabHeader)); id != "" && sess != nil {
		return kv.WithOrigin(r.Context(), tabOrigin(sess, id))
	}
	return r.Context()
}

func currentSession(r *http.Request) *models.Session {
	return middleware.SessionFromContext(r.Context())
}

// requireCoordinator is the read-side counterpart of the services' own check.
func requireCoordinator(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	sess := currentSession(r)
	if sess == nil {
		fail(w, r, services.NewKeyedError(services.ErrorUnauthorized, "session.required"))
		return nil, false
	}
	if sess.Role != models.RoleCoordinator {
		fail(w, r, services.NewKeyedError(services.ErrorForbidden, "session.coordinator"))
		return nil, false
	}
	return sess, true
}

func requireSession(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	sess := currentSession(r)
	if sess == nil {
		fail(w, r, services.NewKeyedError(services.ErrorUnauthorized, "session.required"))
		return nil, false
	}
	return sess, true
}

// publicUsers drops password hashes before users leave the server.
func publicUsers(users []models.User) []models.User {
	out := make([]models.User, len(users))
	for i, u := range users {
		u.PasswordHash = ""
		out[i] = u
	}
	return out
}

func publicUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp
}
