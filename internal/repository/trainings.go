package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/models"
)

type Trainings struct {
	base
}

func NewTrainings(store kv.Store, hook WriteHook) *Trainings {
	return &Trainings{base: newBase(store, hook)}
}

type TrainingPatch struct {
	Title       *string
	Description *string
}

// List returns trainings newest first.
func (r *Trainings) List(ctx context.Context) ([]models.Training, error) {
	return kv.ReadList[models.Training](ctx, r.store, KeyTrainings)
}

func (r *Trainings) FindByID(ctx context.Context, id string) (*models.Training, error) {
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

// Create prepends t with id "cap_<unix millis>". Two trainings created in the same
// millisecond get consecutive stamps.
func (r *Trainings) Create(ctx context.Context, t models.Training) (*models.Training, error) {
	t.CreatedAt = r.now()
	err := kv.UpdateList(ctx, r.store, KeyTrainings, func(cur []models.Training) ([]models.Training, error) {
		taken := make(map[string]bool, len(cur))
		for _, c := range cur {
			taken[c.ID] = true
		}
		ms := t.CreatedAt.UnixMilli()
		t.ID = fmt.Sprintf("cap_%d", ms)
		for taken[t.ID] {
			ms++
			t.ID = fmt.Sprintf("cap_%d", ms)
		}
		return append([]models.Training{t}, cur...), nil
	})
	if err != nil {
		return nil, err
	}
	r.written(ctx, KeyTrainings)
	return &t, nil
}

func (r *Trainings) Update(ctx context.Context, id string, patch TrainingPatch) (bool, error) {
	err := kv.UpdateList(ctx, r.store, KeyTrainings, func(cur []models.Training) ([]models.Training, error) {
		for i := range cur {
			if cur[i].ID == id {
				setIf(&cur[i].Title, patch.Title)
				setIf(&cur[i].Description, patch.Description)
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
	r.written(ctx, KeyTrainings)
	return true, nil
}

func (r *Trainings) Delete(ctx context.Context, id string) error {
	err := kv.UpdateList(ctx, r.store, KeyTrainings, func(cur []models.Training) ([]models.Training, error) {
		out := cur[:0]
		for _, t := range cur {
			if t.ID != id {
				out = append(out, t)
			}
		}
		return out, nil
	})
	if err != nil {
		return err
	}
	r.written(ctx, KeyTrainings)
	return nil
}
