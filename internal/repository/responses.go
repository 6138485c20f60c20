package repository

import (
	"context"

	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/models"
)

// Responses is append-only: there is no update or delete.
type Responses struct {
	base
}

func NewResponses(store kv.Store, hook WriteHook) *Responses {
	return &Responses{base: newBase(store, hook)}
}

// List returns responses newest first.
func (r *Responses) List(ctx context.Context) ([]models.Response, error) {
	return kv.ReadList[models.Response](ctx, r.store, KeyResponses)
}

func (r *Responses) ListBySurvey(ctx context.Context, surveyID string) ([]models.Response, error) {
	return r.filter(ctx, func(resp models.Response) bool { return resp.SurveyID == surveyID })
}

func (r *Responses) ListByEmail(ctx context.Context, email string) ([]models.Response, error) {
	return r.filter(ctx, func(resp models.Response) bool { return sameEmail(resp.Email, email) })
}

func (r *Responses) filter(ctx context.Context, keep func(models.Response) bool) ([]models.Response, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Response, 0, len(all))
	for _, resp := range all {
		if keep(resp) {
			out = append(out, resp)
		}
	}
	return out, nil
}

// Create stamps submittedAt and prepends resp.
func (r *Responses) Create(ctx context.Context, resp models.Response) (*models.Response, error) {
	if resp.SubmittedAt.IsZero() {
		resp.SubmittedAt = r.now()
	}
	if resp.Answers == nil {
		resp.Answers = []string{}
	}
	err := kv.UpdateList(ctx, r.store, KeyResponses, func(cur []models.Response) ([]models.Response, error) {
		return append([]models.Response{resp}, cur...), nil
	})
	if err != nil {
		return nil, err
	}
	r.written(ctx, KeyResponses)
	return &resp, nil
}
