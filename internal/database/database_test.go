package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truckspot/internal/events"
	"truckspot/internal/geo"
	"truckspot/internal/models"
)

func openTestDB(t *testing.T, bus *events.Bus) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"), bus)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestTruck(t *testing.T, db *DB, name, category string) *models.Truck {
	t.Helper()
	truck := &models.Truck{
		Name:         name,
		Category:     category,
		ScheduleJSON: []byte(`{"mon":["11:00-20:00"]}`),
	}
	require.NoError(t, db.CreateTruck(context.Background(), truck))
	require.NotZero(t, truck.ID)
	return truck
}

func TestTruckCRUD(t *testing.T) {
	db := openTestDB(t, nil)
	ctx := context.Background()

	truck := createTestTruck(t, db, "Taco Truck", "Mexican")

	got, err := db.GetTruck(ctx, truck.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Taco Truck", got.Name)
	assert.JSONEq(t, `{"mon":["11:00-20:00"]}`, string(got.ScheduleJSON))
	assert.Nil(t, got.LastSeen)

	require.NoError(t, db.UpdateTruckProfile(ctx, truck.ID, "Taco Truck 2", "Mexican", "Tacos", nil))
	at := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.UpdateLastSeen(ctx, truck.ID, geo.Point{Lat: 59.33, Lng: 18.06}, at))

	got, err = db.GetTruck(ctx, truck.ID)
	require.NoError(t, err)
	assert.Equal(t, "Taco Truck 2", got.Name)
	require.NotNil(t, got.LastSeen)
	assert.InDelta(t, 59.33, got.LastSeen.Lat, 1e-9)
	require.NotNil(t, got.LastSeenAt)
	assert.True(t, got.LastSeenAt.Equal(at))

	trucks, err := db.ListTrucks(ctx)
	require.NoError(t, err)
	assert.Len(t, trucks, 1)
}

func TestCheckInLifecycle(t *testing.T) {
	db := openTestDB(t, nil)
	ctx := context.Background()
	truck := createTestTruck(t, db, "Burger Bus", "American")

	c := &models.CheckIn{
		ID:        uuid.NewString(),
		TruckID:   truck.ID,
		Position:  geo.Point{Lat: 59.33, Lng: 18.06},
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, db.CreateCheckIn(ctx, c))

	active, err := db.ActiveCheckIn(ctx, truck.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, c.ID, active.ID)
	assert.True(t, active.Open())

	// The open-session unique index rejects a second concurrent open.
	dup := &models.CheckIn{
		ID:        uuid.NewString(),
		TruckID:   truck.ID,
		Position:  geo.Point{Lat: 59.34, Lng: 18.07},
		StartedAt: time.Now().UTC(),
	}
	assert.ErrorIs(t, db.CreateCheckIn(ctx, dup), models.ErrAlreadyActive)

	require.NoError(t, db.EndCheckIn(ctx, c.ID, time.Now().UTC()))

	active, err = db.ActiveCheckIn(ctx, truck.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	// Ending an already closed session reports no active session.
	assert.ErrorIs(t, db.EndCheckIn(ctx, c.ID, time.Now().UTC()), models.ErrNoActiveSession)

	// A new session may open once the previous one closed.
	require.NoError(t, db.CreateCheckIn(ctx, dup))
}

func TestListCheckInsBetween(t *testing.T) {
	db := openTestDB(t, nil)
	ctx := context.Background()
	truck := createTestTruck(t, db, "Green Bowl", "Vegan")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	var last string
	for i := 0; i < 3; i++ {
		c := &models.CheckIn{
			ID:        uuid.NewString(),
			TruckID:   truck.ID,
			Position:  geo.Point{Lat: 59.33, Lng: 18.06},
			StartedAt: base.AddDate(0, 0, i*7),
		}
		require.NoError(t, db.CreateCheckIn(ctx, c))
		if i < 2 {
			require.NoError(t, db.EndCheckIn(ctx, c.ID, c.StartedAt.Add(2*time.Hour)))
		} else {
			last = c.ID
		}
	}

	got, err := db.ListCheckInsBetween(ctx, base, base.AddDate(0, 0, 10))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].StartedAt.Before(got[1].StartedAt))

	all, err := db.ListCheckInsBetween(ctx, base, base.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, last, all[2].ID)
	assert.True(t, all[2].Open())
}

func TestReviewsAndStats(t *testing.T) {
	db := openTestDB(t, nil)
	ctx := context.Background()
	rated := createTestTruck(t, db, "Rated", "Fusion")
	unrated := createTestTruck(t, db, "Unrated", "Fusion")

	for _, rating := range []int{5, 4} {
		require.NoError(t, db.CreateReview(ctx, &models.Review{
			TruckID: rated.ID,
			Rating:  rating,
			Comment: "good",
		}))
	}
	assert.Error(t, db.CreateReview(ctx, &models.Review{TruckID: rated.ID, Rating: 6}))

	reviews, err := db.ListReviews(ctx, rated.ID, 10)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)

	stats, err := db.ReviewStats(ctx)
	require.NoError(t, err)
	require.Contains(t, stats, rated.ID)
	assert.InDelta(t, 4.5, stats[rated.ID].AvgRating, 1e-9)
	assert.Equal(t, 2, stats[rated.ID].ReviewCount)
	assert.NotContains(t, stats, unrated.ID)
}

func TestMutationsPublishChanges(t *testing.T) {
	bus := events.NewBus()
	var changed []string
	for _, table := range []string{events.TableTrucks, events.TableCheckins, events.TableReviews} {
		table := table
		bus.Subscribe(table, func(events.Change) { changed = append(changed, table) })
	}

	db := openTestDB(t, bus)
	ctx := context.Background()

	truck := createTestTruck(t, db, "Noisy", "Fusion")
	require.NoError(t, db.CreateCheckIn(ctx, &models.CheckIn{
		ID:        uuid.NewString(),
		TruckID:   truck.ID,
		Position:  geo.Point{Lat: 59.33, Lng: 18.06},
		StartedAt: time.Now().UTC(),
	}))
	require.NoError(t, db.CreateReview(ctx, &models.Review{TruckID: truck.ID, Rating: 5}))

	assert.Equal(t, []string{events.TableTrucks, events.TableCheckins, events.TableReviews}, changed)
}
