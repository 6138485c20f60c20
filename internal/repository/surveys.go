package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/models"
)

type Surveys struct {
	base
	idGen func() string
}

func NewSurveys(store kv.Store, hook WriteHook) *Surveys {
	r := &Surveys{base: newBase(store, hook)}
	r.idGen = func() string {
		return fmt.Sprintf("%d-%s", r.now().UnixMilli(), shortID(6))
	}
	return r
}

type SurveyPatch struct {
	Title     *string
	Questions *[]string
	Active    *bool
	Target    *string
}

func (p SurveyPatch) apply(s *models.Survey) {
	setIf(&s.Title, p.Title)
	if p.Questions != nil {
		s.Questions = append([]string{}, (*p.Questions)...)
	}
	setIf(&s.Active, p.Active)
	setIf(&s.Target, p.Target)
}

// List returns surveys in creation order.
func (r *Surveys) List(ctx context.Context) ([]models.Survey, error) {
	return kv.ReadList[models.Survey](ctx, r.store, KeySurveys)
}

// ListVisible returns the surveys graduates may answer.
func (r *Surveys) ListVisible(ctx context.Context) ([]models.Survey, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Survey, 0, len(all))
	for _, s := range all {
		if s.VisibleToGraduates() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *Surveys) FindByID(ctx context.Context, id string) (*models.Survey, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, nil
}

// Create assigns id and createdAt and appends s. Callers choose Active and Target.
func (r *Surveys) Create(ctx context.Context, s models.Survey) (*models.Survey, error) {
	s.ID = r.idGen()
	s.CreatedAt = r.now()
	if s.Questions == nil {
		s.Questions = []string{}
	}
	err := kv.UpdateList(ctx, r.store, KeySurveys, func(cur []models.Survey) ([]models.Survey, error) {
		return append(cur, s), nil
	})
	if err != nil {
		return nil, err
	}
	r.written(ctx, KeySurveys)
	return &s, nil
}

func (r *Surveys) Update(ctx context.Context, id string, patch SurveyPatch) (bool, error) {
	err := kv.UpdateList(ctx, r.store, KeySurveys, func(cur []models.Survey) ([]models.Survey, error) {
		for i := range cur {
			if cur[i].ID == id {
				patch.apply(&cur[i])
				return cur, nil
			}
		}
		return nil, errNoMatch
	})
	if errors.Is(err, errNoMatch) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	r.written(ctx, KeySurveys)
	return true, nil
}

// Delete removes the survey. Responses that reference it are kept.
func (r *Surveys) Delete(ctx context.Context, id string) error {
	err := kv.UpdateList(ctx, r.store, KeySurveys, func(cur []models.Survey) ([]models.Survey, error) {
		out := cur[:0]
		for _, s := range cur {
			if s.ID != id {
				out = append(out, s)
			}
		}
		return out, nil
	})
	if err != nil {
		return err
	}
	r.written(ctx, KeySurveys)
	return nil
}
