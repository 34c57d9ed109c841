package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"truckspot/internal/events"
	"truckspot/internal/geo"
	"truckspot/internal/models"
)

const truckColumns = `id, name, category, menu, logo_url, schedule_json,
	last_seen_lat, last_seen_lng, last_seen_at, created_at, updated_at`

// ListTrucks returns all persisted trucks.
func (db *DB) ListTrucks(ctx context.Context) ([]models.Truck, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+truckColumns+` FROM trucks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list trucks: %w", err)
	}
	defer rows.Close()

	var trucks []models.Truck
	for rows.Next() {
		t, err := scanTruck(rows)
		if err != nil {
			return nil, err
		}
		trucks = append(trucks, t)
	}
	return trucks, rows.Err()
}

// GetTruck returns one truck by id, or sql.ErrNoRows.
func (db *DB) GetTruck(ctx context.Context, id int64) (*models.Truck, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+truckColumns+` FROM trucks WHERE id = ?`, id)
	t, err := scanTruck(row)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTruck inserts a new truck and returns its id.
func (db *DB) CreateTruck(ctx context.Context, t *models.Truck) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO trucks (name, category, menu, logo_url, schedule_json)
		VALUES (?, ?, ?, ?, ?)`,
		t.Name, t.Category, t.Menu, t.LogoURL, nullBytes(t.ScheduleJSON))
	if err != nil {
		return fmt.Errorf("create truck: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	db.notify(events.TableTrucks)
	return nil
}

// UpdateTruckProfile updates the owner-editable fields: name, category,
// menu, and the raw weekly schedule document.
func (db *DB) UpdateTruckProfile(ctx context.Context, id int64, name, category, menu string, scheduleJSON []byte) error {
	res, err := db.ExecContext(ctx, `
		UPDATE trucks
		SET name = ?, category = ?, menu = ?, schedule_json = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		name, category, menu, nullBytes(scheduleJSON), id)
	if err != nil {
		return fmt.Errorf("update truck %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	db.notify(events.TableTrucks)
	return nil
}

// UpdateLastSeen records the truck's last broadcast position.
func (db *DB) UpdateLastSeen(ctx context.Context, id int64, pos geo.Point, at time.Time) error {
	_, err := db.ExecContext(ctx, `
		UPDATE trucks
		SET last_seen_lat = ?, last_seen_lng = ?, last_seen_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		pos.Lat, pos.Lng, at, id)
	if err != nil {
		return fmt.Errorf("update last seen for truck %d: %w", id, err)
	}
	db.notify(events.TableTrucks)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTruck(row rowScanner) (models.Truck, error) {
	var (
		t           models.Truck
		scheduleRaw sql.NullString
		lat, lng    sql.NullFloat64
		lastSeenAt  sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Name, &t.Category, &t.Menu, &t.LogoURL,
		&scheduleRaw, &lat, &lng, &lastSeenAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Truck{}, err
	}
	if scheduleRaw.Valid {
		t.ScheduleJSON = []byte(scheduleRaw.String)
	}
	if lat.Valid && lng.Valid {
		t.LastSeen = &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	if lastSeenAt.Valid {
		at := lastSeenAt.Time
		t.LastSeenAt = &at
	}
	return t, nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
