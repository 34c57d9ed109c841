package discover

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"truckspot/internal/geo"
)

// SortMode selects the ordering of the displayed list.
type SortMode string

const (
	SortDistance SortMode = "distance"
	SortRating   SortMode = "rating"
	SortAlpha    SortMode = "alpha"
)

// Rating-sorted lists only show vendors within this radius unless they
// are currently live.
const ratingRadiusKm = 10

// Filters are the caller-selected constraints on the displayed list.
type Filters struct {
	Category string
	OpenNow  bool
	Query    string
	Sort     SortMode
	Mode     geo.Mode
}

// Apply runs the filter/annotate/sort pipeline over merged records.
// Viewer may be nil (location unavailable); every distance then becomes
// infinite and ETAs are omitted, but the list still renders.
func Apply(records []Record, viewer *geo.Point, f Filters) []Record {
	out := make([]Record, 0, len(records))

	query := strings.ToLower(strings.TrimSpace(f.Query))
	for _, r := range records {
		if f.Category != "" && f.Category != "All" && r.Category != f.Category {
			continue
		}
		if f.OpenNow && !r.Live && !r.Status.Open {
			continue
		}
		if query != "" && !matchesQuery(r, query) {
			continue
		}
		out = append(out, r)
	}

	for i := range out {
		out[i].DistanceKm = math.Inf(1)
		out[i].ETAMinutes = 0
		if viewer != nil && viewer.Valid() && out[i].Placeable() {
			out[i].DistanceKm = geo.DistanceKm(*viewer, *out[i].Position)
			if eta, ok := geo.ETAMinutes(out[i].DistanceKm, f.Mode); ok {
				out[i].ETAMinutes = eta
			}
		}
	}

	if f.Sort == SortRating {
		kept := out[:0]
		for _, r := range out {
			if r.Live || r.DistanceKm <= ratingRadiusKm {
				kept = append(kept, r)
			}
		}
		out = kept
	}

	sortRecords(out, f.Sort)
	return out
}

func matchesQuery(r Record, query string) bool {
	return strings.Contains(strings.ToLower(r.Name), query) ||
		strings.Contains(strings.ToLower(r.Menu), query) ||
		strings.Contains(strings.ToLower(r.Category), query)
}

func sortRecords(records []Record, mode SortMode) {
	switch mode {
	case SortRating:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].Rating != records[j].Rating {
				return records[i].Rating > records[j].Rating
			}
			return records[i].DistanceKm < records[j].DistanceKm
		})
	case SortAlpha:
		col := collate.New(language.Swedish, collate.IgnoreCase)
		sort.SliceStable(records, func(i, j int) bool {
			if c := col.CompareString(records[i].Name, records[j].Name); c != 0 {
				return c < 0
			}
			return records[i].DistanceKm < records[j].DistanceKm
		})
	default: // SortDistance
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].DistanceKm < records[j].DistanceKm
		})
	}
}
