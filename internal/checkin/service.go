// Package checkin governs the live broadcast lifecycle of a truck:
// Closed -> Open -> Closed, with at most one open session per truck.
package checkin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"truckspot/internal/geo"
	"truckspot/internal/metrics"
	"truckspot/internal/models"
)

// Repository is the persistence surface the lifecycle needs.
type Repository interface {
	ActiveCheckIn(ctx context.Context, truckID int64) (*models.CheckIn, error)
	ListOpenCheckIns(ctx context.Context) ([]models.CheckIn, error)
	CreateCheckIn(ctx context.Context, c *models.CheckIn) error
	EndCheckIn(ctx context.Context, id string, endedAt time.Time) error
	UpdateLastSeen(ctx context.Context, truckID int64, pos geo.Point, at time.Time) error
}

// Service runs the check-in state machine against the latest known
// session snapshot. The open check is optimistic; the storage layer's
// conditional insert backs it up against concurrent opens.
type Service struct {
	repo          Repository
	accuracyWarnM float64
	logger        *zerolog.Logger
}

func NewService(repo Repository, accuracyWarnMeters float64, logger *zerolog.Logger) *Service {
	return &Service{
		repo:          repo,
		accuracyWarnM: accuracyWarnMeters,
		logger:        logger,
	}
}

// AccuracyWarning reports whether a device-reported position is imprecise
// enough that the caller should confirm before committing. Policy only;
// Open never rejects on accuracy.
func (s *Service) AccuracyWarning(accuracyMeters float64) bool {
	return s.accuracyWarnM > 0 && accuracyMeters > s.accuracyWarnM
}

// Open starts a broadcast session for the truck at pos and records pos as
// the truck's last-seen position. Returns models.ErrAlreadyActive when an
// open session already exists.
func (s *Service) Open(ctx context.Context, truckID int64, pos geo.Point) (*models.CheckIn, error) {
	if !pos.Valid() {
		return nil, fmt.Errorf("open checkin for truck %d: invalid coordinates (%.4f, %.4f)", truckID, pos.Lat, pos.Lng)
	}

	existing, err := s.repo.ActiveCheckIn(ctx, truckID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.ErrAlreadyActive
	}

	c := &models.CheckIn{
		ID:        uuid.NewString(),
		TruckID:   truckID,
		Position:  pos,
		StartedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateCheckIn(ctx, c); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateLastSeen(ctx, truckID, pos, c.StartedAt); err != nil {
		s.logger.Error().Err(err).Int64("truck_id", truckID).Msg("failed to update last seen position")
	}

	metrics.IncCheckinOpened()
	s.logger.Info().Int64("truck_id", truckID).Str("checkin_id", c.ID).Msg("checkin opened")
	return c, nil
}

// Close ends the truck's open session. Returns models.ErrNoActiveSession
// when none exists.
func (s *Service) Close(ctx context.Context, truckID int64) error {
	return s.close(ctx, truckID, "manual")
}

func (s *Service) close(ctx context.Context, truckID int64, reason string) error {
	active, err := s.repo.ActiveCheckIn(ctx, truckID)
	if err != nil {
		return err
	}
	if active == nil {
		return models.ErrNoActiveSession
	}

	if err := s.repo.EndCheckIn(ctx, active.ID, time.Now().UTC()); err != nil {
		return err
	}

	metrics.IncCheckinClosed(reason)
	s.logger.Info().Int64("truck_id", truckID).Str("checkin_id", active.ID).Str("reason", reason).Msg("checkin closed")
	return nil
}

// Active returns the truck's open session, or nil.
func (s *Service) Active(ctx context.Context, truckID int64) (*models.CheckIn, error) {
	return s.repo.ActiveCheckIn(ctx, truckID)
}
