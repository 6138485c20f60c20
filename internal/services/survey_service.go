package services

import (
	"context"
	"strings"

	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/repository"
)

type SurveyService struct {
	surveys SurveyStore
}

func NewSurveyService(surveys SurveyStore) *SurveyService {
	return &SurveyService{surveys: surveys}
}

// Create stores a new active survey. Blank questions are dropped; targetAll publishes it
// to graduates right away.
func (s *SurveyService) Create(ctx context.Context, sess *models.Session, title string, questions []string, targetAll bool) (*models.Survey, error) {
	if err := requireCoordinator(sess); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, NewFieldError("title", "survey.title")
	}
	qs := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			qs = append(qs, q)
		}
	}
	if len(qs) == 0 {
		return nil, NewFieldError("questions", "survey.questions")
	}
	sv := models.Survey{Title: title, Questions: qs, Active: true}
	if targetAll {
		sv.Target = models.TargetAll
	}
	return s.surveys.Create(ctx, sv)
}

// Publish makes the survey active and visible to every graduate.
func (s *SurveyService) Publish(ctx context.Context, sess *models.Session, id string) (*models.Survey, error) {
	if err := requireCoordinator(sess); err != nil {
		return nil, err
	}
	active, target := true, models.TargetAll
	ok, err := s.surveys.Update(ctx, id, repository.SurveyPatch{Active: &active, Target: &target})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewKeyedError(ErrorNotFound, "survey.not_found")
	}
	return s.surveys.FindByID(ctx, id)
}

// Delete removes the survey; deleting a missing survey succeeds.
func (s *SurveyService) Delete(ctx context.Context, sess *models.Session, id string) error {
	if err := requireCoordinator(sess); err != nil {
		return err
	}
	return s.surveys.Delete(ctx, id)
}

func (s *SurveyService) ListAll(ctx context.Context) ([]models.Survey, error) {
	return s.surveys.List(ctx)
}

func (s *SurveyService) ListForGraduates(ctx context.Context) ([]models.Survey, error) {
	return s.surveys.ListVisible(ctx)
}

func (s *SurveyService) Get(ctx context.Context, id string) (*models.Survey, error) {
	sv, err := s.surveys.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, NewKeyedError(ErrorNotFound, "survey.not_found")
	}
	return sv, nil
}
