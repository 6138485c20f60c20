package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/middleware"
	"github.com/soaringjerry/gradtrack/internal/repository"
	"github.com/soaringjerry/gradtrack/internal/services"
	"github.com/soaringjerry/gradtrack/internal/tabsync"
	"github.com/soaringjerry/gradtrack/internal/utils"
	"github.com/soaringjerry/gradtrack/internal/views"
)

// TabHeader carries the caller's tab id on mutating requests.
const TabHeader = "X-Tab-ID"

type Options struct {
	// Store is the shared store every repository writes through.
	Store    kv.Store
	Notifier kv.Notifier
	Cookies  sessions.Store
	// JWTSecret signs bearer tokens issued at login.
	JWTSecret    []byte
	EmailDomain  string
	PollInterval time.Duration
	// HashCost overrides the bcrypt cost for new passwords; zero keeps the default.
	HashCost    int
	Limiter     *middleware.RedisLimiter
	LoginLimit  int
	LoginWindow time.Duration
	// TrustedProxies may set X-Forwarded-For for rate limiting.
	TrustedProxies middleware.TrustedProxies
}

type Router struct {
	opts  Options
	tabs  *tabsync.Registry
	repos *repository.Set
	auth  *middleware.Auth

	accounts  *services.AuthService
	graduates *services.GraduateService
	surveys   *services.SurveyService
	responses *services.ResponseService
	trainings *services.TrainingService
	stats     *services.StatsService
	export    *services.ExportService
	views     *views.Builder
}

func NewRouter(opts Options) *Router {
	tabs := tabsync.NewRegistry()
	repos := repository.NewSet(opts.Store, tabsync.NewSyncer(opts.Store, tabs))
	rt := &Router{
		opts:      opts,
		tabs:      tabs,
		repos:     repos,
		auth:      middleware.NewAuth(opts.JWTSecret, opts.Cookies, repos.Users).WithRevocations(opts.Store),
		accounts:  services.NewAuthService(repos.Users, opts.EmailDomain),
		graduates: services.NewGraduateService(repos.Users),
		surveys:   services.NewSurveyService(repos.Surveys),
		responses: services.NewResponseService(repos.Surveys, repos.Responses),
		trainings: services.NewTrainingService(repos.Trainings),
		stats:     services.NewStatsService(repos.Users, opts.Store),
	}
	if opts.HashCost > 0 {
		rt.accounts = rt.accounts.WithHashCost(opts.HashCost)
	}
	rt.export = services.NewExportService(repos.Users, repos.Surveys, repos.Responses, rt.stats)
	// Snapshots are render caches no tab watches, so they skip change notifications.
	snapshots := opts.Store
	if sh, ok := opts.Store.(*kv.Shared); ok {
		snapshots = sh.Backend()
	}
	rt.views = views.NewBuilder(rt.graduates, rt.surveys, rt.responses, rt.trainings, rt.stats, snapshots)
	return rt
}

// Repositories exposes the repository set, for seeding and imports.
func (rt *Router) Repositories() *repository.Set { return rt.repos }

// Tabs exposes the live tab registry.
func (rt *Router) Tabs() *tabsync.Registry { return rt.tabs }

func (rt *Router) Register(mux *http.ServeMux) {
	login := middleware.RateLimit(rt.opts.Limiter, "login", rt.opts.LoginLimit, rt.opts.LoginWindow, rt.opts.TrustedProxies)

	mux.HandleFunc("POST /api/register", rt.handleRegister)
	mux.Handle("POST /api/login", login(http.HandlerFunc(rt.handleLogin)))
	mux.HandleFunc("POST /api/logout", rt.handleLogout)
	mux.HandleFunc("GET /api/me", rt.handleMe)

	mux.HandleFunc("GET /api/users/pending", rt.handlePending)
	mux.HandleFunc("GET /api/users/approved", rt.handleApproved)
	mux.HandleFunc("POST /api/users/{email}/approve", rt.handleApprove)
	mux.HandleFunc("POST /api/users/{email}/reject", rt.handleReject)
	mux.HandleFunc("GET /api/profile", rt.handleProfile)
	mux.HandleFunc("PUT /api/profile", rt.handleUpdateProfile)
	mux.HandleFunc("PUT /api/profile/employment", rt.handleEmployment)
	mux.HandleFunc("POST /api/profile/trainings", rt.handleAddOwnTraining)

	mux.HandleFunc("GET /api/surveys", rt.handleListSurveys)
	mux.HandleFunc("POST /api/surveys", rt.handleCreateSurvey)
	mux.HandleFunc("POST /api/surveys/{id}/publish", rt.handlePublishSurvey)
	mux.HandleFunc("DELETE /api/surveys/{id}", rt.handleDeleteSurvey)
	mux.HandleFunc("GET /api/surveys/{id}/form", rt.handleSurveyForm)
	mux.HandleFunc("POST /api/surveys/{id}/responses", rt.handleSubmitResponse)
	mux.HandleFunc("GET /api/responses", rt.handleListResponses)
	mux.HandleFunc("GET /api/responses/mine", rt.handleMyResponses)

	mux.HandleFunc("GET /api/trainings", rt.handleListTrainings)
	mux.HandleFunc("POST /api/trainings", rt.handleCreateTraining)
	mux.HandleFunc("DELETE /api/trainings/{id}", rt.handleDeleteTraining)

	mux.HandleFunc("GET /api/stats", rt.handleGetStats)
	mux.HandleFunc("PUT /api/stats", rt.handleSaveStats)
	mux.HandleFunc("DELETE /api/stats", rt.handleResetStats)
	mux.HandleFunc("GET /api/export", rt.handleExport)

	mux.HandleFunc("GET /api/views/coordinator", rt.handleCoordinatorView)
	mux.HandleFunc("DELETE /api/views/coordinator/responses", rt.handleClearResponsesSnapshot)
	mux.HandleFunc("GET /api/views/graduate", rt.handleGraduateView)
	mux.Handle("GET /api/events", middleware.RequireAuth(http.HandlerFunc(rt.handleEvents)))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		locale := middleware.LocaleFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"name":   "GradTrack API",
			"locale": locale,
			"msg":    utils.T(locale, "health.ok"),
			"tabs":   len(rt.tabs.IDs()),
		})
	})
}

// Handler returns the full middleware chain around a fresh mux.
func (rt *Router) Handler(allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	rt.Register(mux)
	var h http.Handler = mux
	h = rt.auth.WithAuth(h)
	h = middleware.LocaleMiddleware(h)
	h = middleware.NoStore(h)
	h = middleware.SecureHeaders(h)
	h = middleware.CORS(allowedOrigins)(h)
	return h
}
