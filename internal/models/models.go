// Package models holds the persisted domain types shared across the engine.
package models

import (
	"errors"
	"time"

	"truckspot/internal/geo"
)

// Lifecycle violations surfaced to the caller as explicit rejections.
var (
	// ErrAlreadyActive is returned when opening a check-in for a truck
	// that already has an open session.
	ErrAlreadyActive = errors.New("checkin already active for truck")
	// ErrNoActiveSession is returned when closing a truck with no open
	// session.
	ErrNoActiveSession = errors.New("no active checkin for truck")
)

// Truck is a persisted vendor record. LastSeen is the last position the
// owner broadcast from; it is nil until the first check-in. ScheduleJSON
// is the raw weekly opening-hours document, normalized lazily by the
// schedule package.
type Truck struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	Menu         string     `json:"menu,omitempty"`
	LogoURL      string     `json:"logo_url,omitempty"`
	ScheduleJSON []byte     `json:"schedule_json,omitempty"`
	LastSeen     *geo.Point `json:"last_seen,omitempty"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CheckIn is one live "I am here now" broadcast session. EndedAt is nil
// while the session is open; for a given truck at most one open session
// exists at any time.
type CheckIn struct {
	ID        string     `json:"id"`
	TruckID   int64      `json:"truck_id"`
	Position  geo.Point  `json:"position"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Open reports whether the session is still broadcasting.
func (c CheckIn) Open() bool { return c.EndedAt == nil }

// Review is a single user review of a truck.
type Review struct {
	ID        int64     `json:"id"`
	TruckID   int64     `json:"truck_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	UserEmail string    `json:"user_email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewStats is the aggregate rating feed entry for one truck.
type ReviewStats struct {
	AvgRating   float64 `json:"avg_rating"`
	ReviewCount int     `json:"review_count"`
}
