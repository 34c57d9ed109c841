package discover

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truckspot/internal/events"
	"truckspot/internal/geo"
	"truckspot/internal/models"
)

type stubRepo struct {
	trucks   []models.Truck
	checkins []models.CheckIn
	stats    map[int64]models.ReviewStats
	err      error
	calls    int
}

func (s *stubRepo) ListTrucks(ctx context.Context) ([]models.Truck, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.trucks, nil
}

func (s *stubRepo) ListOpenCheckIns(ctx context.Context) ([]models.CheckIn, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.checkins, nil
}

func (s *stubRepo) ReviewStats(ctx context.Context) (map[int64]models.ReviewStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.stats, nil
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestRefreshAndDiscover(t *testing.T) {
	repo := &stubRepo{
		trucks: []models.Truck{{ID: 1, Name: "Dumpling Cart", Category: "Asian"}},
	}
	svc := NewService(repo, testLogger())

	require.NoError(t, svc.Refresh(context.Background()))

	records := svc.Discover(mondayAt(12, 0), nil, Filters{})
	// Four seeds plus the persisted truck.
	assert.Len(t, records, 5)
	findRecord(t, records, "db-1")
}

func TestRefreshKeepsStaleSnapshotOnError(t *testing.T) {
	repo := &stubRepo{
		trucks: []models.Truck{{ID: 1, Name: "Dumpling Cart", Category: "Asian"}},
	}
	svc := NewService(repo, testLogger())
	require.NoError(t, svc.Refresh(context.Background()))

	repo.err = errors.New("db gone")
	assert.Error(t, svc.Refresh(context.Background()))

	// The previous snapshot is still served.
	assert.Len(t, svc.Snapshot().Trucks, 1)
}

func TestSubscribeRefreshesOnChange(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, testLogger())
	bus := events.NewBus()
	svc.Subscribe(bus)

	bus.Publish(events.Change{Table: events.TableCheckins})
	assert.Equal(t, 1, repo.calls)

	bus.Publish(events.Change{Table: events.TableReviews})
	assert.Equal(t, 2, repo.calls)
}

func TestDiscoverEndToEnd(t *testing.T) {
	lastSeen := geo.Point{Lat: 59.335, Lng: 18.07}
	repo := &stubRepo{
		trucks: []models.Truck{{
			ID:       3,
			Name:     "Dumpling Cart",
			Category: "Asian",
			LastSeen: &lastSeen,
		}},
		checkins: []models.CheckIn{{
			ID:       "s1",
			TruckID:  3,
			Position: geo.Point{Lat: 59.335, Lng: 18.07},
		}},
		stats: map[int64]models.ReviewStats{3: {AvgRating: 4.9, ReviewCount: 12}},
	}
	svc := NewService(repo, testLogger())
	require.NoError(t, svc.Refresh(context.Background()))

	viewer := &geo.Point{Lat: 59.3293, Lng: 18.0686}
	out := svc.Discover(mondayAt(12, 0), viewer, Filters{
		Category: "Asian",
		OpenNow:  true,
		Sort:     SortDistance,
		Mode:     geo.ModeWalk,
	})

	// The live persisted truck plus the Asian seed, nearest first.
	require.Len(t, out, 2)
	r := out[0]
	assert.Equal(t, "Dumpling Cart", r.Name)
	assert.True(t, r.Live)
	assert.InDelta(t, 0.64, r.DistanceKm, 0.05)
	assert.Equal(t, 8, r.ETAMinutes)
	assert.InDelta(t, 4.9, r.Rating, 1e-9)
}

func TestCategories(t *testing.T) {
	repo := &stubRepo{
		trucks: []models.Truck{
			{ID: 1, Category: "Mexican"}, // duplicate of a seed category
			{ID: 2, Category: "Korean"},
			{ID: 3, Category: ""},
		},
	}
	svc := NewService(repo, testLogger())
	require.NoError(t, svc.Refresh(context.Background()))

	cats := svc.Categories()
	assert.Equal(t, "All", cats[0])
	assert.Equal(t, []string{"All", "Mexican", "American", "Vegan", "Asian", "Korean"}, cats)
}
