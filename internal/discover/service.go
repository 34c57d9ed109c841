package discover

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"truckspot/internal/events"
	"truckspot/internal/geo"
	"truckspot/internal/metrics"
	"truckspot/internal/models"
)

// Repository is the read surface the discovery view pulls from.
type Repository interface {
	ListTrucks(ctx context.Context) ([]models.Truck, error)
	ListOpenCheckIns(ctx context.Context) ([]models.CheckIn, error)
	ReviewStats(ctx context.Context) (map[int64]models.ReviewStats, error)
}

// Service holds the most recently fetched snapshot and serves merged,
// filtered record lists from it. It re-syncs the whole snapshot whenever
// the change feed signals a mutation; there is no incremental patching.
// A failed refresh keeps the previous snapshot in place, stale but
// available.
type Service struct {
	repo   Repository
	logger *zerolog.Logger

	mu   sync.RWMutex
	snap Snapshot
}

func NewService(repo Repository, logger *zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Subscribe wires the service to the persistence change feed. Every
// relevant table change triggers a full refresh.
func (s *Service) Subscribe(bus *events.Bus) {
	refresh := func(change events.Change) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Refresh(ctx); err != nil {
			s.logger.Error().Err(err).Str("table", change.Table).Msg("refresh after change failed")
		}
	}
	bus.Subscribe(events.TableTrucks, refresh)
	bus.Subscribe(events.TableCheckins, refresh)
	bus.Subscribe(events.TableReviews, refresh)
}

// Refresh pulls a fresh snapshot of all sources. On any error the
// previous snapshot is left untouched.
func (s *Service) Refresh(ctx context.Context) error {
	trucks, err := s.repo.ListTrucks(ctx)
	if err != nil {
		metrics.IncDiscoveryRefresh("error")
		return err
	}
	checkins, err := s.repo.ListOpenCheckIns(ctx)
	if err != nil {
		metrics.IncDiscoveryRefresh("error")
		return err
	}
	stats, err := s.repo.ReviewStats(ctx)
	if err != nil {
		metrics.IncDiscoveryRefresh("error")
		return err
	}

	s.mu.Lock()
	s.snap = Snapshot{Trucks: trucks, CheckIns: checkins, Stats: stats}
	s.mu.Unlock()

	metrics.IncDiscoveryRefresh("ok")
	s.logger.Debug().Int("trucks", len(trucks)).Int("open_checkins", len(checkins)).Msg("snapshot refreshed")
	return nil
}

// Snapshot returns the current snapshot.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Discover merges the current snapshot and applies the pipeline.
func (s *Service) Discover(now time.Time, viewer *geo.Point, f Filters) []Record {
	return Apply(Merge(s.Snapshot(), now), viewer, f)
}

// Categories returns the distinct set of vendor categories, "All" first,
// for filter chips.
func (s *Service) Categories() []string {
	seen := map[string]bool{}
	out := []string{"All"}
	for _, t := range seedTrucks {
		if !seen[t.category] {
			seen[t.category] = true
			out = append(out, t.category)
		}
	}
	for _, t := range s.Snapshot().Trucks {
		if t.Category != "" && !seen[t.Category] {
			seen[t.Category] = true
			out = append(out, t.Category)
		}
	}
	return out
}
