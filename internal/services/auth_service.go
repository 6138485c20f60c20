package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/repository"
)

// RegisterInput carries the registration form as submitted.
type RegisterInput struct {
	Name            string `json:"name"`
	Surname         string `json:"surname"`
	NationalID      string `json:"nationalId"`
	Phone           string `json:"phone"`
	Program         string `json:"program"`
	GraduationYear  int    `json:"graduationYear"`
	BirthDate       string `json:"birthDate"`
	Gender          string `json:"gender"`
	LinkedInURL     string `json:"linkedinUrl"`
	Address         string `json:"address"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"`
}

type AuthService struct {
	users    UserStore
	now      func() time.Time
	domain   string
	minAge   int
	minYear  int
	hashCost int
}

func NewAuthService(users UserStore, emailDomain string) *AuthService {
	if emailDomain == "" {
		emailDomain = DefaultInstitutionalDomain
	}
	return &AuthService{
		users:    users,
		now:      func() time.Time { return time.Now().UTC() },
		domain:   emailDomain,
		minAge:   15,
		minYear:  1950,
		hashCost: bcrypt.DefaultCost,
	}
}

// Register validates in form order and stops at the first failing check. Coordinators
// are approved immediately, graduates wait for approval.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.NationalID = strings.TrimSpace(in.NationalID)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Program = strings.TrimSpace(in.Program)
	in.BirthDate = strings.TrimSpace(in.BirthDate)
	in.LinkedInURL = strings.TrimSpace(in.LinkedInURL)
	in.Email = strings.TrimSpace(in.Email)
	now := s.now()

	if in.Name == "" {
		return nil, NewFieldError("name", "register.name")
	}
	if in.Surname == "" {
		return nil, NewFieldError("surname", "register.surname")
	}
	if !IsValidNationalID(in.NationalID) {
		return nil, NewFieldError("nationalId", "register.national_id")
	}
	if !IsValidPhone(in.Phone) {
		return nil, NewFieldError("phone", "register.phone")
	}
	if in.Program == "" {
		return nil, NewFieldError("program", "register.program")
	}
	if in.GraduationYear < s.minYear || in.GraduationYear > now.Year() {
		return nil, NewFieldError("graduationYear", "register.graduation_year")
	}
	if in.BirthDate == "" {
		return nil, NewFieldError("birthDate", "register.birth_date")
	}
	birth, err := ParseDate(in.BirthDate)
	if err != nil || AgeOn(birth, now) < s.minAge {
		return nil, NewFieldError("birthDate", "register.min_age")
	}
	if !IsInstitutionalEmail(in.Email, s.domain) {
		return nil, NewFieldError("email", "register.email", s.domain)
	}
	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newKeyed(ErrorConflict, "email", "register.email_taken")
	}
	existing, err = s.users.FindByNationalID(ctx, in.NationalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newKeyed(ErrorConflict, "nationalId", "register.national_id_used")
	}
	if !IsStrongPassword(in.Password) {
		return nil, NewFieldError("password", "register.password")
	}
	if in.Password != in.ConfirmPassword {
		return nil, NewFieldError("confirmPassword", "register.confirm")
	}
	role, ok := models.ParseRole(in.Role)
	if !ok {
		return nil, NewFieldError("role", "register.role")
	}
	if in.LinkedInURL != "" && !IsValidURL(in.LinkedInURL) {
		return nil, NewFieldError("linkedinUrl", "register.linkedin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Create(ctx, models.User{
		Email:          in.Email,
		PasswordHash:   string(hash),
		Name:           in.Name,
		Surname:        in.Surname,
		NationalID:     in.NationalID,
		Phone:          in.Phone,
		Program:        in.Program,
		GraduationYear: in.GraduationYear,
		BirthDate:      in.BirthDate,
		Gender:         strings.TrimSpace(in.Gender),
		LinkedInURL:    in.LinkedInURL,
		Address:        strings.TrimSpace(in.Address),
		Role:           role,
		CreatedAt:      now,
		Trainings:      []string{},
	})
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		return nil, newKeyed(ErrorConflict, "email", "register.email_taken")
	case errors.Is(err, repository.ErrNationalIDTaken):
		return nil, newKeyed(ErrorConflict, "nationalId", "register.national_id_used")
	case err != nil:
		return nil, err
	}
	return u, nil
}

// HashPassword is the credential hash used for stored accounts.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// WithHashCost returns a copy hashing passwords at the given bcrypt cost.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	cp := *s
	cp.hashCost = cost
	return &cp
}
