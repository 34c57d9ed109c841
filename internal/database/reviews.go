package database

import (
	"context"
	"fmt"

	"truckspot/internal/events"
	"truckspot/internal/models"
)

// CreateReview inserts a review and returns its id.
func (db *DB) CreateReview(ctx context.Context, r *models.Review) error {
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("rating %d out of range 1-5", r.Rating)
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO reviews (truck_id, rating, comment, user_email)
		VALUES (?, ?, ?, ?)`,
		r.TruckID, r.Rating, r.Comment, r.UserEmail)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	r.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	db.notify(events.TableReviews)
	return nil
}

// ListReviews returns the newest reviews for one truck.
func (db *DB) ListReviews(ctx context.Context, truckID int64, limit int) ([]models.Review, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, truck_id, rating, comment, user_email, created_at
		FROM reviews
		WHERE truck_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		truckID, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews for truck %d: %w", truckID, err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.TruckID, &r.Rating, &r.Comment, &r.UserEmail, &r.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// ReviewStats returns the aggregate rating feed: average rating and review
// count per truck.
func (db *DB) ReviewStats(ctx context.Context) (map[int64]models.ReviewStats, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT truck_id, AVG(rating), COUNT(*)
		FROM reviews
		GROUP BY truck_id`)
	if err != nil {
		return nil, fmt.Errorf("review stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[int64]models.ReviewStats)
	for rows.Next() {
		var (
			truckID int64
			s       models.ReviewStats
		)
		if err := rows.Scan(&truckID, &s.AvgRating, &s.ReviewCount); err != nil {
			return nil, err
		}
		stats[truckID] = s
	}
	return stats, rows.Err()
}
