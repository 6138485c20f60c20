package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/repository"
)

type authStubStore struct {
	users []models.User
}

func (s *authStubStore) List(context.Context) ([]models.User, error) { return s.users, nil }

func (s *authStubStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for i := range s.users {
		if strings.EqualFold(s.users[i].Email, email) {
			copy := s.users[i]
			return &copy, nil
		}
	}
	return nil, nil
}

func (s *authStubStore) FindByNationalID(_ context.Context, id string) (*models.User, error) {
	for i := range s.users {
		if s.users[i].NationalID == id {
			copy := s.users[i]
			return &copy, nil
		}
	}
	return nil, nil
}

func (s *authStubStore) Create(_ context.Context, u models.User) (*models.User, error) {
	if u.Status == "" {
		u.Status = models.StatusPending
		if u.Role == models.RoleCoordinator {
			u.Status = models.StatusApproved
		}
	}
	s.users = append(s.users, u)
	return &u, nil
}

func (s *authStubStore) Update(context.Context, string, repository.UserPatch) (bool, error) {
	return false, nil
}

func (s *authStubStore) Delete(context.Context, string) error { return nil }

func validInput() RegisterInput {
	return RegisterInput{
		Name:            "Ana",
		Surname:         "Vera",
		NationalID:      "1710034065",
		Phone:           "0991234567",
		Program:         "Ingeniería de Software",
		GraduationYear:  2022,
		BirthDate:       "2000-01-15",
		Email:           "ana.vera@uleam.edu.ec",
		Password:        "Secreto123",
		ConfirmPassword: "Secreto123",
		Role:            "Egresado",
		LinkedInURL:     "https://www.linkedin.com/in/ana",
	}
}

func newTestAuth(store UserStore) *AuthService {
	svc := NewAuthService(store, "")
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	svc.hashCost = bcrypt.MinCost
	return svc
}

func TestAuthRegister(t *testing.T) {
	store := &authStubStore{}
	svc := newTestAuth(store)

	u, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if u.Role != models.RoleGraduate || u.Status != models.StatusPending {
		t.Fatalf("unexpected role/status %s/%s", u.Role, u.Status)
	}
	if u.PasswordHash == "Secreto123" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("Secreto123")) != nil {
		t.Fatalf("password not stored as bcrypt hash")
	}

	coord := validInput()
	coord.Email = "jefe@uleam.edu.ec"
	coord.NationalID = "0926687856"
	coord.Role = "Coordinator"
	c, err := svc.Register(context.Background(), coord)
	if err != nil {
		t.Fatalf("Register coordinator: %v", err)
	}
	if c.Status != models.StatusApproved {
		t.Fatalf("coordinator status = %s", c.Status)
	}
}

func TestAuthRegisterValidationOrder(t *testing.T) {
	store := &authStubStore{}
	svc := newTestAuth(store)
	if _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
		code   ErrorCode
	}{
		{"name first", func(in *RegisterInput) { in.Name = " "; in.Email = "bad" }, "name", ErrorInvalid},
		{"surname", func(in *RegisterInput) { in.Surname = "" }, "surname", ErrorInvalid},
		{"national id checksum", func(in *RegisterInput) { in.NationalID = "1701234568" }, "nationalId", ErrorInvalid},
		{"phone", func(in *RegisterInput) { in.Phone = "12345" }, "phone", ErrorInvalid},
		{"program", func(in *RegisterInput) { in.Program = "" }, "program", ErrorInvalid},
		{"graduation year future", func(in *RegisterInput) { in.GraduationYear = 2025 }, "graduationYear", ErrorInvalid},
		{"graduation year too old", func(in *RegisterInput) { in.GraduationYear = 1949 }, "graduationYear", ErrorInvalid},
		{"birth date missing", func(in *RegisterInput) { in.BirthDate = "" }, "birthDate", ErrorInvalid},
		{"too young", func(in *RegisterInput) { in.BirthDate = "2010-01-01" }, "birthDate", ErrorInvalid},
		{"non institutional email", func(in *RegisterInput) { in.Email = "ana@gmail.com" }, "email", ErrorInvalid},
		{"email taken", func(in *RegisterInput) { in.NationalID = "0926687856" }, "email", ErrorConflict},
		{"national id taken", func(in *RegisterInput) { in.Email = "otra@uleam.edu.ec" }, "nationalId", ErrorConflict},
		{"weak password", func(in *RegisterInput) {
			in.Email, in.NationalID = "otra@uleam.edu.ec", "0926687856"
			in.Password, in.ConfirmPassword = "secreto", "secreto"
		}, "password", ErrorInvalid},
		{"confirm mismatch", func(in *RegisterInput) {
			in.Email, in.NationalID = "otra@uleam.edu.ec", "0926687856"
			in.ConfirmPassword = "Secreto124"
		}, "confirmPassword", ErrorInvalid},
		{"role", func(in *RegisterInput) {
			in.Email, in.NationalID = "otra@uleam.edu.ec", "0926687856"
			in.Role = "Admin"
		}, "role", ErrorInvalid},
		{"linkedin", func(in *RegisterInput) {
			in.Email, in.NationalID = "otra@uleam.edu.ec", "0926687856"
			in.LinkedInURL = "not a url"
		}, "linkedinUrl", ErrorInvalid},
	}
	for _, tc := range cases {
		in := validInput()
		tc.mutate(&in)
		_, err := svc.Register(context.Background(), in)
		se, ok := AsServiceError(err)
		if !ok {
			t.Fatalf("%s: expected service error, got %v", tc.name, err)
		}
		if se.Field != tc.field || se.Code != tc.code {
			t.Fatalf("%s: got field=%s code=%s (%s)", tc.name, se.Field, se.Code, se.Message)
		}
	}
	if len(store.users) != 1 {
		t.Fatalf("failed registrations were stored: %d users", len(store.users))
	}
}

func TestAuthErrorLocalized(t *testing.T) {
	svc := newTestAuth(&authStubStore{})
	in := validInput()
	in.Email = "ana@gmail.com"
	_, err := svc.Register(context.Background(), in)
	se, ok := AsServiceError(err)
	if !ok {
		t.Fatalf("expected service error, got %v", err)
	}
	if got := se.Localized("es"); got != "Correo institucional inválido (debe terminar en @uleam.edu.ec)." {
		t.Fatalf("es message = %q", got)
	}
	if !strings.Contains(se.Error(), "@uleam.edu.ec") {
		t.Fatalf("en message = %q", se.Error())
	}
}

func TestAuthRegisterConcurrentSameEmail(t *testing.T) {
	repos, _ := newRepos()
	svc := newTestAuth(repos.Users)

	const n = 6
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(context.Background(), validInput())
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		expectCode(t, err, ErrorConflict)
	}
	if ok != 1 {
		t.Fatalf("successful registrations = %d, want 1 (errors %v)", ok, errs)
	}
	users, _ := repos.Users.List(context.Background())
	if len(users) != 1 {
		t.Fatalf("stored users = %d, want 1", len(users))
	}
}

func TestUsersCreateRejectsTakenNationalID(t *testing.T) {
	repos, _ := newRepos()
	ctx := context.Background()
	if _, err := repos.Users.Create(ctx, models.User{Email: "a@uleam.edu.ec", NationalID: "1710034065"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	svc := newTestAuth(repos.Users)
	in := validInput()
	in.Email = "otra@uleam.edu.ec"
	_, err := svc.Register(ctx, in)
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorConflict || se.Field != "nationalId" {
		t.Fatalf("expected nationalId conflict, got %v", err)
	}
}
