package services

import (
	"context"
	"strings"

	"github.com/soaringjerry/gradtrack/internal/models"
)

type TrainingService struct {
	trainings TrainingStore
}

func NewTrainingService(trainings TrainingStore) *TrainingService {
	return &TrainingService{trainings: trainings}
}

func (s *TrainingService) Create(ctx context.Context, sess *models.Session, title, description string) (*models.Training, error) {
	if sess == nil {
		return nil, NewKeyedError(ErrorUnauthorized, "session.required")
	}
	if sess.Role != models.RoleCoordinator {
		return nil, NewKeyedError(ErrorForbidden, "training.coordinator_only")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, NewFieldError("title", "training.title")
	}
	return s.trainings.Create(ctx, models.Training{
		Title:       title,
		Description: strings.TrimSpace(description),
		CreatedBy:   sess.Email,
	})
}

// Delete requires confirmed to be true; an unconfirmed call changes nothing.
func (s *TrainingService) Delete(ctx context.Context, sess *models.Session, id string, confirmed bool) error {
	if err := requireCoordinator(sess); err != nil {
		return err
	}
	if !confirmed {
		return NewFieldError("confirm", "training.confirm")
	}
	return s.trainings.Delete(ctx, id)
}

func (s *TrainingService) List(ctx context.Context) ([]models.Training, error) {
	return s.trainings.List(ctx)
}
