package services

import (
	"context"
	"math"
	"time"

	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/repository"
)

// StatsService computes dashboard numbers and keeps the coordinator's edited copy.
type StatsService struct {
	users UserStore
	store kv.Store
	now   func() time.Time
}

func NewStatsService(users UserStore, store kv.Store) *StatsService {
	return &StatsService{
		users: users,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Live counts accounts. EmployedPct is the share of graduates reporting "yes".
func (s *StatsService) Live(ctx context.Context) (*models.Stats, error) {
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	st := &models.Stats{TotalUsers: len(all), UpdatedAt: s.now()}
	graduates := 0
	for _, u := range all {
		switch u.Status {
		case models.StatusPending:
			st.Pending++
		case models.StatusRejected:
			st.Rejected++
		default:
			st.Approved++
		}
		if r, _ := models.ParseRole(string(u.Role)); r == models.RoleGraduate {
			graduates++
			if u.Employment != nil && u.Employment.Employed == models.EmployedYes {
				st.Employed++
			}
		}
	}
	if graduates > 0 {
		st.EmployedPct = int(math.Round(float64(st.Employed) * 100 / float64(graduates)))
	}
	return st, nil
}

// Current prefers the saved snapshot and falls back to live numbers.
func (s *StatsService) Current(ctx context.Context) (*models.Stats, error) {
	snap, err := kv.ReadScalar[models.Stats](ctx, s.store, repository.KeyStatsSnapshot)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		return snap, nil
	}
	return s.Live(ctx)
}

// Save stores the coordinator's edited numbers.
func (s *StatsService) Save(ctx context.Context, sess *models.Session, st models.Stats) (*models.Stats, error) {
	if err := requireCoordinator(sess); err != nil {
		return nil, err
	}
	if st.TotalUsers < 0 || st.Approved < 0 || st.Pending < 0 || st.Rejected < 0 || st.Employed < 0 ||
		st.EmployedPct < 0 || st.EmployedPct > 100 {
		return nil, NewFieldError("stats", "stats.invalid")
	}
	st.UpdatedAt = s.now()
	if err := kv.WriteScalar(ctx, s.store, repository.KeyStatsSnapshot, st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Reset drops the edited snapshot so Current reports live numbers again.
func (s *StatsService) Reset(ctx context.Context, sess *models.Session) error {
	if err := requireCoordinator(sess); err != nil {
		return err
	}
	return s.store.Delete(ctx, repository.KeyStatsSnapshot)
}
