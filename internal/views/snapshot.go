package views

import (
	"context"

	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/repository"
)

type graduatesSnapshot struct {
	Pending  []models.User `json:"pending"`
	Approved []models.User `json:"approved"`
}

// SaveSnapshots persists the graduate, survey and response sections of v. The stats
// snapshot is owned by services.StatsService and is not touched here.
func (b *Builder) SaveSnapshots(ctx context.Context, v *CoordinatorView) error {
	if err := kv.WriteScalar(ctx, b.store, repository.KeyGraduatesSnapshot,
		graduatesSnapshot{Pending: v.Pending, Approved: v.Approved}); err != nil {
		return err
	}
	if err := kv.WriteScalar(ctx, b.store, repository.KeySurveysSnapshot, v.Surveys); err != nil {
		return err
	}
	return kv.WriteScalar(ctx, b.store, repository.KeyResponsesSnapshot, v.Responses)
}

// LoadSnapshot rebuilds the last saved coordinator view. It returns nil when nothing
// was ever saved. Corrupt sections load as empty.
func (b *Builder) LoadSnapshot(ctx context.Context) (*CoordinatorView, error) {
	grads, err := kv.ReadScalar[graduatesSnapshot](ctx, b.store, repository.KeyGraduatesSnapshot)
	if err != nil {
		return nil, err
	}
	surveys, err := kv.ReadScalar[[]models.Survey](ctx, b.store, repository.KeySurveysSnapshot)
	if err != nil {
		return nil, err
	}
	responses, err := kv.ReadScalar[[]models.Response](ctx, b.store, repository.KeyResponsesSnapshot)
	if err != nil {
		return nil, err
	}
	if grads == nil && surveys == nil && responses == nil {
		return nil, nil
	}
	v := &CoordinatorView{Stale: true}
	if grads != nil {
		v.Pending, v.Approved = grads.Pending, grads.Approved
	}
	if surveys != nil {
		v.Surveys = *surveys
	}
	if responses != nil {
		v.Responses = *responses
	}
	if v.Stats, err = kv.ReadScalar[models.Stats](ctx, b.store, repository.KeyStatsSnapshot); err != nil {
		return nil, err
	}
	return v, nil
}

// ClearResponses empties the saved responses section.
func (b *Builder) ClearResponses(ctx context.Context) error {
	return b.store.Delete(ctx, repository.KeyResponsesSnapshot)
}
