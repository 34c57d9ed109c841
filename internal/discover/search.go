package discover

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"truckspot/internal/geo"
	"truckspot/internal/geocode"
)

// minQueryLen is the shortest place query worth sending upstream.
const minQueryLen = 3

// PlaceClient resolves a free-text query to place candidates.
type PlaceClient interface {
	Search(ctx context.Context, query string) ([]geocode.Place, error)
}

// Searcher debounces keystroke-driven place lookups and delivers the
// results of the latest query to a callback. Superseded lookups are
// dropped silently.
type Searcher struct {
	client   PlaceClient
	debounce *Debouncer
	deliver  func(query string, places []geocode.Place)
	logger   *zerolog.Logger
}

func NewSearcher(client PlaceClient, debounce *Debouncer, deliver func(query string, places []geocode.Place), logger *zerolog.Logger) *Searcher {
	return &Searcher{
		client:   client,
		debounce: debounce,
		deliver:  deliver,
		logger:   logger,
	}
}

// Query records the latest search input. Queries shorter than three
// characters clear results immediately without hitting the network.
func (s *Searcher) Query(query string) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryLen {
		s.debounce.Stop()
		s.deliver(query, nil)
		return
	}

	s.debounce.Trigger(func(ctx context.Context) {
		places, err := s.client.Search(ctx, query)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("query", query).Msg("place search failed")
			return
		}
		s.deliver(query, places)
	})
}

// Stop cancels any in-flight lookup.
func (s *Searcher) Stop() {
	s.debounce.Stop()
}

// RecenterTarget picks the map-recenter point for a result set: the
// first candidate with usable coordinates, or nil when none qualify.
func RecenterTarget(places []geocode.Place) *geo.Point {
	for _, p := range places {
		pt := geo.Point{Lat: p.Lat, Lng: p.Lng}
		if pt.Valid() {
			return &pt
		}
	}
	return nil
}
