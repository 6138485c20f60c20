package services

import (
	"context"

	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/repository"
)

// The store interfaces below are satisfied by the repository types; services only see
// the methods they call.

type UserStore interface {
	List(ctx context.Context) ([]models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByNationalID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, u models.User) (*models.User, error)
	Update(ctx context.Context, email string, patch repository.UserPatch) (bool, error)
	Delete(ctx context.Context, email string) error
}

type SurveyStore interface {
	List(ctx context.Context) ([]models.Survey, error)
	ListVisible(ctx context.Context) ([]models.Survey, error)
	FindByID(ctx context.Context, id string) (*models.Survey, error)
	Create(ctx context.Context, s models.Survey) (*models.Survey, error)
	Update(ctx context.Context, id string, patch repository.SurveyPatch) (bool, error)
	Delete(ctx context.Context, id string) error
}

type ResponseStore interface {
	List(ctx context.Context) ([]models.Response, error)
	ListBySurvey(ctx context.Context, surveyID string) ([]models.Response, error)
	ListByEmail(ctx context.Context, email string) ([]models.Response, error)
	Create(ctx context.Context, r models.Response) (*models.Response, error)
}

type TrainingStore interface {
	List(ctx context.Context) ([]models.Training, error)
	FindByID(ctx context.Context, id string) (*models.Training, error)
	Create(ctx context.Context, t models.Training) (*models.Training, error)
	Delete(ctx context.Context, id string) error
}

var (
	_ UserStore     = (*repository.Users)(nil)
	_ SurveyStore   = (*repository.Surveys)(nil)
	_ ResponseStore = (*repository.Responses)(nil)
	_ TrainingStore = (*repository.Trainings)(nil)
)

func requireCoordinator(sess *models.Session) error {
	if sess == nil {
		return NewKeyedError(ErrorUnauthorized, "session.required")
	}
	if sess.Role != models.RoleCoordinator {
		return NewKeyedError(ErrorForbidden, "session.coordinator")
	}
	return nil
}

func requireSession(sess *models.Session) error {
	if sess == nil || sess.Email == "" {
		return NewKeyedError(ErrorUnauthorized, "session.required")
	}
	return nil
}
