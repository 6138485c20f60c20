package services

import (
	"context"
	"strings"

	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/repository"
)

// ProfileInput holds the editable profile fields; nil means unchanged.
type ProfileInput struct {
	Name        *string `json:"name"`
	Surname     *string `json:"surname"`
	Phone       *string `json:"phone"`
	Program     *string `json:"program"`
	Gender      *string `json:"gender"`
	LinkedInURL *string `json:"linkedinUrl"`
	Address     *string `json:"address"`
}

type GraduateService struct {
	users UserStore
}

func NewGraduateService(users UserStore) *GraduateService {
	return &GraduateService{users: users}
}

func (s *GraduateService) Approve(ctx context.Context, sess *models.Session, email string) error {
	return s.setStatus(ctx, sess, email, models.StatusApproved)
}

func (s *GraduateService) Reject(ctx context.Context, sess *models.Session, email string) error {
	return s.setStatus(ctx, sess, email, models.StatusRejected)
}

func (s *GraduateService) setStatus(ctx context.Context, sess *models.Session, email string, st models.Status) error {
	if err := requireCoordinator(sess); err != nil {
		return err
	}
	ok, err := s.users.Update(ctx, email, repository.UserPatch{Status: &st})
	if err != nil {
		return err
	}
	if !ok {
		return NewKeyedError(ErrorNotFound, "user.not_found")
	}
	return nil
}

// ListPending returns accounts awaiting approval in registration order.
func (s *GraduateService) ListPending(ctx context.Context) ([]models.User, error) {
	return s.byStatus(ctx, models.StatusPending)
}

// ApprovedFilter narrows the graduate directory. Zero values match everything.
type ApprovedFilter struct {
	// Query is a case-insensitive substring of name, surname, email or national id.
	Query   string
	Program string
	Year    int
}

func (f ApprovedFilter) match(u models.User) bool {
	if p := strings.TrimSpace(f.Program); p != "" && !strings.EqualFold(strings.TrimSpace(u.Program), p) {
		return false
	}
	if f.Year != 0 && u.GraduationYear != f.Year {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	hay := strings.ToLower(strings.Join([]string{u.Name, u.Surname, u.Email, u.NationalID}, " "))
	return strings.Contains(hay, q)
}

// ListApproved treats accounts without a status as approved, like login does.
func (s *GraduateService) ListApproved(ctx context.Context, f ApprovedFilter) ([]models.User, error) {
	all, err := s.byStatus(ctx, models.StatusApproved)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, u := range all {
		if f.match(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *GraduateService) byStatus(ctx context.Context, st models.Status) ([]models.User, error) {
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(all))
	for _, u := range all {
		cur := u.Status
		if cur == "" {
			cur = models.StatusApproved
		}
		if cur == st {
			out = append(out, u)
		}
	}
	return out, nil
}

// Profile returns the logged-in user's record.
func (s *GraduateService) Profile(ctx context.Context, sess *models.Session) (*models.User, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	u, err := s.users.FindByEmail(ctx, sess.Email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewKeyedError(ErrorNotFound, "user.not_found")
	}
	return u, nil
}

func (s *GraduateService) UpdateProfile(ctx context.Context, sess *models.Session, in ProfileInput) (*models.User, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	patch := repository.UserPatch{
		Name:        trimPtr(in.Name),
		Surname:     trimPtr(in.Surname),
		Phone:       trimPtr(in.Phone),
		Program:     trimPtr(in.Program),
		Gender:      trimPtr(in.Gender),
		LinkedInURL: trimPtr(in.LinkedInURL),
		Address:     trimPtr(in.Address),
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, NewFieldError("name", "register.name")
	}
	if patch.Surname != nil && *patch.Surname == "" {
		return nil, NewFieldError("surname", "register.surname")
	}
	if patch.Phone != nil && *patch.Phone != "" && !IsValidPhone(*patch.Phone) {
		return nil, NewFieldError("phone", "register.phone")
	}
	if patch.LinkedInURL != nil && *patch.LinkedInURL != "" && !IsValidURL(*patch.LinkedInURL) {
		return nil, NewFieldError("linkedinUrl", "register.linkedin")
	}
	return s.apply(ctx, sess.Email, patch)
}

// SaveEmployment replaces the employment record of the logged-in user.
func (s *GraduateService) SaveEmployment(ctx context.Context, sess *models.Session, emp models.Employment) (*models.User, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	emp.Employed = strings.ToLower(strings.TrimSpace(emp.Employed))
	switch emp.Employed {
	case models.EmployedYes, models.EmployedNo, models.EmployedUnset:
	default:
		return nil, NewFieldError("employed", "employment.status")
	}
	emp.Company = strings.TrimSpace(emp.Company)
	emp.Position = strings.TrimSpace(emp.Position)
	experiences := make([]models.Experience, 0, len(emp.Experiences))
	for _, x := range emp.Experiences {
		x.Company = strings.TrimSpace(x.Company)
		x.Role = strings.TrimSpace(x.Role)
		if x.Company == "" && x.Role == "" {
			continue
		}
		experiences = append(experiences, x)
	}
	emp.Experiences = experiences
	return s.apply(ctx, sess.Email, repository.UserPatch{Employment: &emp})
}

// AddTraining appends a free-text training to the user's own list.
func (s *GraduateService) AddTraining(ctx context.Context, sess *models.Session, training string) (*models.User, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	training = strings.TrimSpace(training)
	if training == "" {
		return nil, NewFieldError("training", "training.title")
	}
	return s.apply(ctx, sess.Email, repository.UserPatch{AppendTraining: training})
}

func (s *GraduateService) apply(ctx context.Context, email string, patch repository.UserPatch) (*models.User, error) {
	ok, err := s.users.Update(ctx, email, patch)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewKeyedError(ErrorNotFound, "user.not_found")
	}
	return s.users.FindByEmail(ctx, email)
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
