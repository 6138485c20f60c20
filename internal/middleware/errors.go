package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/soaringjerry/gradtrack/internal/services"
)

// writeError answers with the same JSON shape the API handlers use.
func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	body := map[string]string{"error": err.Error()}
	if se, ok := services.AsServiceError(err); ok {
		body["error"] = se.Localized(LocaleFromContext(r.Context()))
		body["code"] = string(se.Code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
