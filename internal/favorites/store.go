// Package favorites keeps per-install client state (favorite vendors and
// the vendor owner's default truck) in a small JSON file.
package favorites

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// State is the persisted document. Favorite IDs are record IDs as served
// by discovery ("seed-1", "db-7").
type State struct {
	FavoriteIDs    []string `json:"favorite_ids"`
	DefaultTruckID int64    `json:"default_truck_id,omitempty"`
}

// Store is a file-backed favorites set. Every mutation is written
// through immediately; a write failure is logged and the in-memory state
// stays authoritative for the session.
type Store struct {
	path   string
	logger *zerolog.Logger

	mu    sync.Mutex
	state State
}

// Open loads the state file, starting empty when it does not exist yet.
func Open(path string, logger *zerolog.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read client state: %w", err)
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("parse client state %s: %w", path, err)
	}
	return s, nil
}

// Toggle flips the favorite flag for a record ID and returns the new
// state.
func (s *Store) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, fav := range s.state.FavoriteIDs {
		if fav == id {
			s.state.FavoriteIDs = append(s.state.FavoriteIDs[:i], s.state.FavoriteIDs[i+1:]...)
			s.save()
			return false
		}
	}
	s.state.FavoriteIDs = append(s.state.FavoriteIDs, id)
	s.save()
	return true
}

func (s *Store) IsFavorite(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fav := range s.state.FavoriteIDs {
		if fav == id {
			return true
		}
	}
	return false
}

// Favorites returns the favorite IDs in insertion order.
func (s *Store) Favorites() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.state.FavoriteIDs...)
}

// SetDefaultTruck records which truck the vendor owner checks in as.
func (s *Store) SetDefaultTruck(truckID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.DefaultTruckID = truckID
	s.save()
}

func (s *Store) DefaultTruck() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DefaultTruckID
}

// save writes the state file. Caller holds the lock.
func (s *Store) save() {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal client state")
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("create client state dir")
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("write client state")
	}
}
