// Package geo provides great-circle distance and travel-time estimates
// between map coordinates.
package geo

import "math"

const earthRadiusKm = 6371

// Average speeds used for travel-time estimates, km/h.
const (
	walkSpeedKmh  = 4.8
	driveSpeedKmh = 20.0
)

// Mode selects the travel mode for ETA calculations.
type Mode string

const (
	ModeWalk  Mode = "walk"
	ModeDrive Mode = "drive"
)

// Point is a geographic coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within the WGS84 coordinate range.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// DistanceKm returns the haversine great-circle distance between a and b
// in kilometers. Either point being invalid yields +Inf, which keeps the
// record sortable but excluded from any distance cutoff.
func DistanceKm(a, b Point) float64 {
	if !a.Valid() || !b.Valid() {
		return math.Inf(1)
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// ETAMinutes estimates travel time for the given distance and mode,
// rounded to whole minutes and never less than one. The second return
// value is false when no estimate is possible (non-finite or non-positive
// distance).
func ETAMinutes(distanceKm float64, mode Mode) (int, bool) {
	if math.IsInf(distanceKm, 0) || math.IsNaN(distanceKm) || distanceKm <= 0 {
		return 0, false
	}
	speed := walkSpeedKmh
	if mode == ModeDrive {
		speed = driveSpeedKmh
	}
	mins := int(math.Round(distanceKm / speed * 60))
	if mins < 1 {
		mins = 1
	}
	return mins, true
}
