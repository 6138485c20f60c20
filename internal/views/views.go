// Package views builds the dashboard view models from repository state. Views are
// plain data; markup is produced on demand and never stored.
package views

import (
	"context"
	"fmt"

	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/repository"
	"github.com/soaringjerry/gradtrack/internal/services"
)

// CoordinatorView is everything the coordinator dashboard shows.
type CoordinatorView struct {
	Stats     *models.Stats     `json:"stats"`
	Pending   []models.User     `json:"pending"`
	Approved  []models.User     `json:"approved"`
	Surveys   []models.Survey   `json:"surveys"`
	Responses []models.Response `json:"responses"`
	Trainings []models.Training `json:"trainings"`
	// Stale is set when the view was loaded from snapshots rather than built live.
	Stale bool `json:"stale,omitempty"`
}

type GraduateView struct {
	Profile    *models.User       `json:"profile"`
	Surveys    []SurveyForm       `json:"surveys"`
	Trainings  []models.Training  `json:"trainings"`
	Employment *models.Employment `json:"employment,omitempty"`
}

// Field is one answer input of a survey form.
type Field struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type SurveyForm struct {
	SurveyID string  `json:"surveyId"`
	Title    string  `json:"title"`
	Fields   []Field `json:"fields"`
}

// NewSurveyForm maps question i to an input named "q-<i>".
func NewSurveyForm(sv models.Survey) SurveyForm {
	f := SurveyForm{SurveyID: sv.ID, Title: sv.Title, Fields: make([]Field, len(sv.Questions))}
	for i, q := range sv.Questions {
		f.Fields[i] = Field{Name: fmt.Sprintf("q-%d", i), Label: q}
	}
	return f
}

// Builder assembles views from the services.
type Builder struct {
	graduates *services.GraduateService
	surveys   *services.SurveyService
	responses *services.ResponseService
	trainings *services.TrainingService
	stats     *services.StatsService
	store     kv.Store
}

func NewBuilder(
	graduates *services.GraduateService,
	surveys *services.SurveyService,
	responses *services.ResponseService,
	trainings *services.TrainingService,
	stats *services.StatsService,
	store kv.Store,
) *Builder {
	return &Builder{
		graduates: graduates,
		surveys:   surveys,
		responses: responses,
		trainings: trainings,
		stats:     stats,
		store:     store,
	}
}

func (b *Builder) Coordinator(ctx context.Context) (*CoordinatorView, error) {
	v := &CoordinatorView{}
	var err error
	if v.Stats, err = b.stats.Current(ctx); err != nil {
		return nil, err
	}
	if v.Pending, err = b.graduates.ListPending(ctx); err != nil {
		return nil, err
	}
	if v.Approved, err = b.graduates.ListApproved(ctx, services.ApprovedFilter{}); err != nil {
		return nil, err
	}
	if v.Surveys, err = b.surveys.ListAll(ctx); err != nil {
		return nil, err
	}
	if v.Responses, err = b.responses.List(ctx); err != nil {
		return nil, err
	}
	if v.Trainings, err = b.trainings.List(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// Graduate builds the view for the logged-in graduate: their profile, the surveys
// visible to graduates as forms, and the training catalog.
func (b *Builder) Graduate(ctx context.Context, sess *models.Session) (*GraduateView, error) {
	profile, err := b.graduates.Profile(ctx, sess)
	if err != nil {
		return nil, err
	}
	surveys, err := b.surveys.ListForGraduates(ctx)
	if err != nil {
		return nil, err
	}
	trainings, err := b.trainings.List(ctx)
	if err != nil {
		return nil, err
	}
	v := &GraduateView{
		Profile:    profile,
		Surveys:    make([]SurveyForm, 0, len(surveys)),
		Trainings:  trainings,
		Employment: profile.Employment,
	}
	for _, sv := range surveys {
		v.Surveys = append(v.Surveys, NewSurveyForm(sv))
	}
	return v, nil
}

// Section names the dashboard section rendered from a collection key, or "".
func Section(key string) string {
	switch key {
	case repository.KeyUsers:
		return "graduates"
	case repository.KeySurveys:
		return "surveys"
	case repository.KeyResponses:
		return "responses"
	case repository.KeyTrainings:
		return "trainings"
	}
	return ""
}
