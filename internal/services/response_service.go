package services

import (
	"context"
	"strings"

	"github.com/soaringjerry/gradtrack/internal/models"
)

type ResponseService struct {
	surveys   SurveyStore
	responses ResponseStore
}

func NewResponseService(surveys SurveyStore, responses ResponseStore) *ResponseService {
	return &ResponseService{surveys: surveys, responses: responses}
}

// Submit appends a response for the logged-in user. Answers are trimmed and padded or
// cut to the survey's question count; empty strings mean "no answer". Repeated
// submissions are kept.
func (s *ResponseService) Submit(ctx context.Context, sess *models.Session, surveyID string, answers []string) (*models.Response, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	sv, err := s.surveys.FindByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, NewKeyedError(ErrorNotFound, "survey.not_found")
	}
	normalized := make([]string, len(sv.Questions))
	for i := range normalized {
		if i < len(answers) {
			normalized[i] = strings.TrimSpace(answers[i])
		}
	}
	return s.responses.Create(ctx, models.Response{
		SurveyID:    sv.ID,
		SurveyTitle: sv.Title,
		Email:       sess.Email,
		Answers:     normalized,
	})
}

// List returns all responses newest first.
func (s *ResponseService) List(ctx context.Context) ([]models.Response, error) {
	return s.responses.List(ctx)
}

func (s *ResponseService) ListBySurvey(ctx context.Context, surveyID string) ([]models.Response, error) {
	return s.responses.ListBySurvey(ctx, surveyID)
}

// ListMine returns the session user's own submissions.
func (s *ResponseService) ListMine(ctx context.Context, sess *models.Session) ([]models.Response, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return s.responses.ListByEmail(ctx, sess.Email)
}
