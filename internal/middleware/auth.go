package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/services"
	"github.com/soaringjerry/gradtrack/internal/session"
)

type authCtxKey int

const authKey authCtxKey = 7

// DefaultTokenTTL bounds bearer tokens; cookie sessions end with the browser.
const DefaultTokenTTL = 12 * time.Hour

// KeyRevokedTokens lists token ids ended by logout until they would have expired.
const KeyRevokedTokens = "revoked-tokens"

var errTokenRevoked = errors.New("token revoked")

type revokedToken struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Auth resolves the caller's session from a bearer token or the session cookie.
type Auth struct {
	secret  []byte
	cookies sessions.Store
	users   session.UserFinder
	revoked kv.Store
	ttl     time.Duration
	now     func() time.Time
}

func NewAuth(secret []byte, cookies sessions.Store, users session.UserFinder) *Auth {
	return &Auth{secret: secret, cookies: cookies, users: users, ttl: DefaultTokenTTL, now: time.Now}
}

// WithRevocations keeps the logout deny list in store. Without it bearer tokens stay
// valid until they expire.
func (a *Auth) WithRevocations(store kv.Store) *Auth {
	a.revoked = store
	return a
}

func (a *Auth) SignToken(s models.Session) (string, error) {
	now := a.now()
	claims := Claims{
		Email: s.Email,
		Name:  s.Name,
		Role:  string(s.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   s.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Auth) parseToken(ctx context.Context, tok string) (*Claims, error) {
	c, err := a.verify(tok)
	if err != nil {
		return nil, err
	}
	revoked, err := a.isRevoked(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errTokenRevoked
	}
	return c, nil
}

func (a *Auth) verify(tok string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (interface{}, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid && c.Email != "" {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

func (a *Auth) isRevoked(ctx context.Context, id string) (bool, error) {
	if a.revoked == nil || id == "" {
		return false, nil
	}
	list, err := kv.ReadList[revokedToken](ctx, a.revoked, KeyRevokedTokens)
	if err != nil {
		return false, err
	}
	for _, r := range list {
		if r.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// Revoke ends a bearer token before its expiry. Invalid or already expired tokens are
// ignored. Expired entries are pruned on every call.
func (a *Auth) Revoke(ctx context.Context, tok string) error {
	if a.revoked == nil {
		return nil
	}
	c, err := a.verify(tok)
	if err != nil || c.ID == "" || c.ExpiresAt == nil {
		return nil
	}
	now := a.now()
	return kv.UpdateList(ctx, a.revoked, KeyRevokedTokens, func(cur []revokedToken) ([]revokedToken, error) {
		out := make([]revokedToken, 0, len(cur)+1)
		for _, r := range cur {
			if r.ExpiresAt.After(now) && r.ID != c.ID {
				out = append(out, r)
			}
		}
		return append(out, revokedToken{ID: c.ID, ExpiresAt: c.ExpiresAt.Time}), nil
	})
}

// Logout clears the session cookie and revokes the request's bearer token, if any.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) error {
	if tok, ok := bearer(r); ok {
		if err := a.Revoke(r.Context(), tok); err != nil {
			return err
		}
	}
	if a.cookies == nil {
		return nil
	}
	return a.Manager(w, r).Logout(r.Context())
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}

// Manager returns a session manager scoped to the request's cookie.
func (a *Auth) Manager(w http.ResponseWriter, r *http.Request) *session.Manager {
	return session.NewManager(session.NewCookieScope(a.cookies, w, r), a.users)
}

// WithAuth attaches the caller's session to the context when a valid bearer token or
// session cookie is present. Requests without one pass through unauthenticated.
func (a *Auth) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok, ok := bearer(r); ok {
			if c, err := a.parseToken(r.Context(), tok); err == nil {
				role, _ := models.ParseRole(c.Role)
				sess := &models.Session{Email: c.Email, Name: c.Name, Role: role}
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
				return
			}
		}
		if a.cookies != nil {
			if sess, err := a.Manager(w, r).Current(r.Context()); err == nil && sess != nil {
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth answers 401 unless WithAuth attached a session.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) == nil {
			writeError(w, r, http.StatusUnauthorized, services.NewKeyedError(services.ErrorUnauthorized, "session.required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, authKey, s)
}

// SessionFromContext returns the session attached by WithAuth, or nil.
func SessionFromContext(ctx context.Context) *models.Session {
	s, _ := ctx.Value(authKey).(*models.Session)
	return s
}
