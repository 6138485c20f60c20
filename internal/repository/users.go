package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/models"
)

// Create rejects a user whose email or national id is already stored.
var (
	ErrEmailTaken      = errors.New("repository: email already registered")
	ErrNationalIDTaken = errors.New("repository: national id already registered")
)

type Users struct {
	base
}

func NewUsers(store kv.Store, hook WriteHook) *Users {
	return &Users{base: newBase(store, hook)}
}

// UserPatch lists the fields Update may overwrite. Nil fields are left untouched.
type UserPatch struct {
	PasswordHash   *string
	Name           *string
	Surname        *string
	NationalID     *string
	Phone          *string
	Program        *string
	GraduationYear *int
	BirthDate      *string
	Gender         *string
	LinkedInURL    *string
	Address        *string
	Role           *models.Role
	Status         *models.Status
	Employment     *models.Employment
	Trainings      *[]string
	// AppendTraining is added to the stored list after Trainings is applied.
	AppendTraining string
}

func (p UserPatch) apply(u *models.User) {
	setIf(&u.PasswordHash, p.PasswordHash)
	setIf(&u.Name, p.Name)
	setIf(&u.Surname, p.Surname)
	setIf(&u.NationalID, p.NationalID)
	setIf(&u.Phone, p.Phone)
	setIf(&u.Program, p.Program)
	setIf(&u.GraduationYear, p.GraduationYear)
	setIf(&u.BirthDate, p.BirthDate)
	setIf(&u.Gender, p.Gender)
	setIf(&u.LinkedInURL, p.LinkedInURL)
	setIf(&u.Address, p.Address)
	setIf(&u.Role, p.Role)
	setIf(&u.Status, p.Status)
	if p.Employment != nil {
		emp := *p.Employment
		u.Employment = &emp
	}
	if p.Trainings != nil {
		u.Trainings = append([]string{}, (*p.Trainings)...)
	}
	if p.AppendTraining != "" {
		u.Trainings = append(u.Trainings, p.AppendTraining)
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (r *Users) List(ctx context.Context) ([]models.User, error) {
	return kv.ReadList[models.User](ctx, r.store, KeyUsers)
}

// FindByEmail matches case-insensitively. A miss returns (nil, nil).
func (r *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if sameEmail(users[i].Email, email) {
			return &users[i], nil
		}
	}
	return nil, nil
}

func (r *Users) FindByNationalID(ctx context.Context, id string) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].NationalID == id {
			return &users[i], nil
		}
	}
	return nil, nil
}

// Create appends u, filling status and createdAt when they are unset. Uniqueness of
// email (case-insensitive) and national id is checked against the version being
// replaced, so concurrent registrations of the same account cannot both land.
func (r *Users) Create(ctx context.Context, u models.User) (*models.User, error) {
	if u.Status == "" {
		if u.Role == models.RoleCoordinator {
			u.Status = models.StatusApproved
		} else {
			u.Status = models.StatusPending
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	if u.Trainings == nil {
		u.Trainings = []string{}
	}
	id := strings.TrimSpace(u.NationalID)
	err := kv.UpdateList(ctx, r.store, KeyUsers, func(cur []models.User) ([]models.User, error) {
		for _, existing := range cur {
			if sameEmail(existing.Email, u.Email) {
				return nil, ErrEmailTaken
			}
			if id != "" && existing.NationalID == id {
				return nil, ErrNationalIDTaken
			}
		}
		return append(cur, u), nil
	})
	if err != nil {
		return nil, err
	}
	r.written(ctx, KeyUsers)
	return &u, nil
}

// Update merges patch into the user with the given email. It reports false when no
// user matches, in which case nothing is written.
func (r *Users) Update(ctx context.Context, email string, patch UserPatch) (bool, error) {
	found := false
	err := kv.UpdateList(ctx, r.store, KeyUsers, func(cur []models.User) ([]models.User, error) {
		found = false
		for i := range cur {
			if sameEmail(cur[i].Email, email) {
				patch.apply(&cur[i])
				found = true
				break
			}
		}
		if !found {
			return nil, errNoMatch
		}
		return cur, nil
	})
	if errors.Is(err, errNoMatch) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	r.written(ctx, KeyUsers)
	return true, nil
}

// Delete removes every user with the given email. Missing users are not an error.
func (r *Users) Delete(ctx context.Context, email string) error {
	err := kv.UpdateList(ctx, r.store, KeyUsers, func(cur []models.User) ([]models.User, error) {
		out := cur[:0]
		for _, u := range cur {
			if !sameEmail(u.Email, email) {
				out = append(out, u)
			}
		}
		return out, nil
	})
	if err != nil {
		return err
	}
	r.written(ctx, KeyUsers)
	return nil
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
