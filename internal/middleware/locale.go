package middleware

import (
	"context"
	"net/http"

	"github.com/soaringjerry/gradtrack/internal/utils"
)

type ctxKey int

const localeKey ctxKey = 1

// DefaultLocale is used when neither ?lang nor Accept-Language names a supported one.
const DefaultLocale = "es"

// LocaleMiddleware extracts locale from query param (lang) or Accept-Language
// and stores it in request context.
func LocaleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		qLang := r.URL.Query().Get("lang")
		aLang := r.Header.Get("Accept-Language")
		locale := utils.DetermineLocale(qLang, aLang, utils.Locales(), DefaultLocale)
		ctx := context.WithValue(r.Context(), localeKey, locale)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LocaleFromContext retrieves the locale stored by LocaleMiddleware.
func LocaleFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(localeKey).(string); ok && s != "" {
		return s
	}
	return DefaultLocale
}
