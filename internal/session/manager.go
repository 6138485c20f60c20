// Package session keeps the logged-in identity of one tab or browser session. The
// identity lives in a session-scoped kv.Store, separate from the shared collections.
package session

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/services"
)

// Key is the scope key holding the serialized session.
const Key = "session"

var (
	ErrNotFound      = errors.New("account not found")
	ErrWrongPassword = errors.New("wrong password")
	ErrRoleMismatch  = errors.New("role mismatch")
	ErrNotApproved   = errors.New("account not approved")
)

// AuthError is a rejected login. Reason is one of the Err* sentinels.
type AuthError struct {
	Email  string
	Reason error
}

func (e *AuthError) Error() string { return "login " + e.Email + ": " + e.Reason.Error() }

func (e *AuthError) Unwrap() error { return e.Reason }

// MessageKey maps the reason to its i18n key.
func (e *AuthError) MessageKey() string {
	switch {
	case errors.Is(e.Reason, ErrNotFound):
		return "login.not_found"
	case errors.Is(e.Reason, ErrWrongPassword):
		return "login.wrong_password"
	case errors.Is(e.Reason, ErrRoleMismatch):
		return "login.role_mismatch"
	case errors.Is(e.Reason, ErrNotApproved):
		return "login.not_approved"
	}
	return "login.not_found"
}

type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type Manager struct {
	scope kv.Store
	users UserFinder
}

func NewManager(scope kv.Store, users UserFinder) *Manager {
	return &Manager{scope: scope, users: users}
}

// Login checks credentials in order: account exists, password matches, claimed role
// matches, account approved. Only a full success writes the session.
func (m *Manager) Login(ctx context.Context, email, password, role string) (*models.Session, error) {
	email = strings.TrimSpace(email)
	role = strings.TrimSpace(role)
	if !services.IsValidEmail(email) {
		return nil, services.NewFieldError("email", "login.email")
	}
	if password == "" {
		return nil, services.NewFieldError("password", "login.password")
	}
	if role == "" {
		return nil, services.NewFieldError("role", "login.role")
	}

	u, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &AuthError{Email: email, Reason: ErrNotFound}
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, &AuthError{Email: email, Reason: ErrWrongPassword}
	}
	if !sameRole(u.Role, role) {
		return nil, &AuthError{Email: email, Reason: ErrRoleMismatch}
	}
	// accounts stored before the approval workflow carry no status
	if u.Status != "" && u.Status != models.StatusApproved {
		return nil, &AuthError{Email: email, Reason: ErrNotApproved}
	}

	sess := models.Session{Email: u.Email, Name: u.Name, Role: u.Role}
	if r, ok := models.ParseRole(string(u.Role)); ok {
		sess.Role = r
	}
	if err := kv.WriteScalar(ctx, m.scope, Key, sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Logout clears the session whether or not one exists.
func (m *Manager) Logout(ctx context.Context) error {
	return m.scope.Delete(ctx, Key)
}

// Current returns the stored session, or nil when absent or unreadable.
func (m *Manager) Current(ctx context.Context) (*models.Session, error) {
	sess, err := kv.ReadScalar[models.Session](ctx, m.scope, Key)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.Email == "" {
		return nil, nil
	}
	return sess, nil
}

func sameRole(stored models.Role, claimed string) bool {
	a, okA := models.ParseRole(string(stored))
	b, okB := models.ParseRole(claimed)
	if okA && okB {
		return a == b
	}
	return strings.EqualFold(string(stored), claimed)
}
