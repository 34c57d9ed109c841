package discover

import (
	"fmt"
	"time"

	"truckspot/internal/models"
	"truckspot/internal/schedule"
)

// Snapshot is one consistent read of every record source: persisted
// trucks, currently open check-ins, and the aggregate rating feed.
type Snapshot struct {
	Trucks   []models.Truck
	CheckIns []models.CheckIn
	Stats    map[int64]models.ReviewStats
}

// Merge combines the seed set and the snapshot into one normalized record
// list with a single derived status per vendor.
//
// Displayed position prefers an open session's coordinates, then the
// truck's last recorded position, then none. An open session always
// overrides schedule-derived status to "open now"; the schedule is
// evaluated only when no session exists.
func Merge(snap Snapshot, now time.Time) []Record {
	records := seedRecords(now)

	open := make(map[int64][]models.CheckIn)
	for _, c := range snap.CheckIns {
		if c.Open() {
			open[c.TruckID] = append(open[c.TruckID], c)
		}
	}

	for _, t := range snap.Trucks {
		sessions := open[t.ID]
		live := len(sessions) > 0

		r := Record{
			ID:         fmt.Sprintf("db-%d", t.ID),
			TruckID:    t.ID,
			Name:       t.Name,
			Category:   t.Category,
			Menu:       t.Menu,
			LogoURL:    t.LogoURL,
			Live:       live,
			LastSeenAt: t.LastSeenAt,
		}

		if stat, ok := snap.Stats[t.ID]; ok {
			r.Rating = stat.AvgRating
			r.ReviewCount = stat.ReviewCount
		}

		for _, c := range sessions {
			if c.Position.Valid() {
				pos := c.Position
				r.Position = &pos
				break
			}
		}
		if r.Position == nil && t.LastSeen != nil && t.LastSeen.Valid() {
			pos := *t.LastSeen
			r.Position = &pos
		}

		if live {
			r.Status = schedule.Status{Open: true}
		} else {
			r.Status = schedule.ParseWeeklyJSON(t.ScheduleJSON).StatusAt(now)
		}

		records = append(records, r)
	}

	return records
}
