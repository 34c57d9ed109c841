package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"truckspot/internal/events"
	"truckspot/internal/models"
)

// ActiveCheckIn returns the open session for a truck, or nil when none
// exists.
func (db *DB) ActiveCheckIn(ctx context.Context, truckID int64) (*models.CheckIn, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, truck_id, lat, lng, started_at, ended_at
		FROM checkins
		WHERE truck_id = ? AND ended_at IS NULL`,
		truckID)
	c, err := scanCheckIn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active checkin for truck %d: %w", truckID, err)
	}
	return &c, nil
}

// ListOpenCheckIns returns every currently open session, newest first.
func (db *DB) ListOpenCheckIns(ctx context.Context) ([]models.CheckIn, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, truck_id, lat, lng, started_at, ended_at
		FROM checkins
		WHERE ended_at IS NULL
		ORDER BY started_at DESC
		LIMIT 500`)
	if err != nil {
		return nil, fmt.Errorf("list open checkins: %w", err)
	}
	defer rows.Close()

	var checkins []models.CheckIn
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, err
		}
		checkins = append(checkins, c)
	}
	return checkins, rows.Err()
}

// CreateCheckIn inserts a new open session. The partial unique index on
// open sessions turns a concurrent second open into
// models.ErrAlreadyActive instead of a silent duplicate.
func (db *DB) CreateCheckIn(ctx context.Context, c *models.CheckIn) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO checkins (id, truck_id, lat, lng, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.TruckID, c.Position.Lat, c.Position.Lng, c.StartedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return models.ErrAlreadyActive
		}
		return fmt.Errorf("create checkin: %w", err)
	}
	db.notify(events.TableCheckins)
	return nil
}

// EndCheckIn stamps ended_at on a session.
func (db *DB) EndCheckIn(ctx context.Context, id string, endedAt time.Time) error {
	res, err := db.ExecContext(ctx,
		`UPDATE checkins SET ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		endedAt, id)
	if err != nil {
		return fmt.Errorf("end checkin %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNoActiveSession
	}
	db.notify(events.TableCheckins)
	return nil
}

// ListCheckInsBetween returns all sessions, open or closed, started in
// [from, to), oldest first. Used by the history export.
func (db *DB) ListCheckInsBetween(ctx context.Context, from, to time.Time) ([]models.CheckIn, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, truck_id, lat, lng, started_at, ended_at
		FROM checkins
		WHERE started_at >= ? AND started_at < ?
		ORDER BY started_at`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	defer rows.Close()

	var checkins []models.CheckIn
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, err
		}
		checkins = append(checkins, c)
	}
	return checkins, rows.Err()
}

func scanCheckIn(row rowScanner) (models.CheckIn, error) {
	var (
		c       models.CheckIn
		endedAt sql.NullTime
	)
	err := row.Scan(&c.ID, &c.TruckID, &c.Position.Lat, &c.Position.Lng, &c.StartedAt, &endedAt)
	if err != nil {
		return models.CheckIn{}, err
	}
	if endedAt.Valid {
		at := endedAt.Time
		c.EndedAt = &at
	}
	return c, nil
}
