package checkin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"truckspot/internal/models"
)

// AutoCloser evaluates owner-chosen checkout deadlines with coarse
// polling and triggers the normal close transition when one passes.
// Deadlines are kept in memory only; a restart drops them.
type AutoCloser struct {
	service *Service
	poll    time.Duration
	logger  *zerolog.Logger

	mu        sync.Mutex
	deadlines map[int64]time.Time
}

func NewAutoCloser(service *Service, poll time.Duration, logger *zerolog.Logger) *AutoCloser {
	if poll <= 0 {
		poll = 30 * time.Second
	}
	return &AutoCloser{
		service:   service,
		poll:      poll,
		logger:    logger,
		deadlines: make(map[int64]time.Time),
	}
}

// ScheduleIn sets the truck's checkout deadline to now+d.
func (a *AutoCloser) ScheduleIn(truckID int64, d time.Duration) time.Time {
	deadline := time.Now().Add(d)
	a.mu.Lock()
	a.deadlines[truckID] = deadline
	a.mu.Unlock()
	a.logger.Info().Int64("truck_id", truckID).Time("deadline", deadline).Msg("auto checkout scheduled")
	return deadline
}

// ScheduleAt sets the deadline to the next occurrence of hhmm ("21:00"):
// today if still ahead, otherwise tomorrow.
func (a *AutoCloser) ScheduleAt(truckID int64, hhmm string, now time.Time) (time.Time, error) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse checkout time %q: %w", hhmm, err)
	}
	deadline := time.Date(now.Year(), now.Month(), now.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	if !deadline.After(now) {
		deadline = deadline.AddDate(0, 0, 1)
	}

	a.mu.Lock()
	a.deadlines[truckID] = deadline
	a.mu.Unlock()
	a.logger.Info().Int64("truck_id", truckID).Time("deadline", deadline).Msg("auto checkout scheduled")
	return deadline, nil
}

// Cancel drops any pending deadline for the truck.
func (a *AutoCloser) Cancel(truckID int64) {
	a.mu.Lock()
	delete(a.deadlines, truckID)
	a.mu.Unlock()
}

// Deadline returns the pending deadline for the truck, if any.
func (a *AutoCloser) Deadline(truckID int64) (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.deadlines[truckID]
	return d, ok
}

// Start runs the polling loop until the context ends.
func (a *AutoCloser) Start(ctx context.Context) {
	ticker := time.NewTicker(a.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.closeDue(ctx)
		}
	}
}

func (a *AutoCloser) closeDue(ctx context.Context) {
	now := time.Now()

	a.mu.Lock()
	var due []int64
	for truckID, deadline := range a.deadlines {
		if !now.Before(deadline) {
			due = append(due, truckID)
			delete(a.deadlines, truckID)
		}
	}
	a.mu.Unlock()

	for _, truckID := range due {
		err := a.service.close(ctx, truckID, "auto")
		switch {
		case err == nil:
			a.logger.Info().Int64("truck_id", truckID).Msg("auto checkout performed")
		case err == models.ErrNoActiveSession:
			// Owner closed manually before the deadline fired.
		default:
			a.logger.Error().Err(err).Int64("truck_id", truckID).Msg("auto checkout failed")
		}
	}
}
