// Package discover merges vendor records from every source into one
// consistent view and runs the filter/sort pipeline that produces the
// displayed list.
package discover

import (
	"time"

	"truckspot/internal/geo"
	"truckspot/internal/schedule"
)

// Record is one annotated vendor entry as handed to the presentation
// layer. Position is nil for unplaceable vendors; such records carry an
// infinite distance and always sort last.
type Record struct {
	ID          string          `json:"id"`
	TruckID     int64           `json:"truck_id,omitempty"` // 0 for seed records
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Menu        string          `json:"menu,omitempty"`
	Price       string          `json:"price,omitempty"`
	LogoURL     string          `json:"logo_url,omitempty"`
	Position    *geo.Point      `json:"position,omitempty"`
	Live        bool            `json:"live"`
	LastSeenAt  *time.Time      `json:"last_seen_at,omitempty"`
	Rating      float64         `json:"rating"`
	ReviewCount int             `json:"review_count"`
	Status      schedule.Status `json:"status"`
	DistanceKm  float64         `json:"distance_km"` // +Inf when unknown
	ETAMinutes  int             `json:"eta_minutes,omitempty"`
}

// Placeable reports whether the record can be put on the map.
func (r Record) Placeable() bool {
	return r.Position != nil && r.Position.Valid()
}

// The fixed demo seed set, always live, with legacy daily ranges.
type seedTruck struct {
	id        string
	name      string
	category  string
	price     string
	menu      string
	pos       geo.Point
	openRange string
	rating    float64
}

var seedTrucks = []seedTruck{
	{"seed-1", "Taco Truck", "Mexican", "$$", "Tacos, Burritos, Nachos", geo.Point{Lat: 59.3293, Lng: 18.0686}, "11:00 - 20:00", 4.6},
	{"seed-2", "Burger Bus", "American", "$$", "Burgare, Fries, Milkshakes", geo.Point{Lat: 59.335, Lng: 18.07}, "12:00 - 22:00", 4.4},
	{"seed-3", "Green Bowl", "Vegan", "$", "Vegansk bowls, smoothies", geo.Point{Lat: 59.327, Lng: 18.075}, "10:00 - 16:00", 4.8},
	{"seed-4", "Late Night Noodles", "Asian", "$$$", "Ramen, Wok, Dumplings", geo.Point{Lat: 59.338, Lng: 18.06}, "18:00 - 02:00", 4.3},
}

// seedRecords evaluates the seed set at the given instant. Seed records
// always use their fixed legacy range for status, never a live session.
func seedRecords(now time.Time) []Record {
	records := make([]Record, 0, len(seedTrucks))
	for _, s := range seedTrucks {
		pos := s.pos
		records = append(records, Record{
			ID:       s.id,
			Name:     s.name,
			Category: s.category,
			Menu:     s.menu,
			Price:    s.price,
			Position: &pos,
			Live:     true,
			Rating:   s.rating,
			Status:   schedule.ParseRange(s.openRange).StatusAt(now),
		})
	}
	return records
}
