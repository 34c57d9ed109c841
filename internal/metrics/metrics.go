package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	checkinsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "truckspot",
			Name:      "checkins_opened_total",
			Help:      "Count of check-in sessions opened.",
		},
	)

	checkinsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "truckspot",
			Name:      "checkins_closed_total",
			Help:      "Count of check-in sessions closed, by reason.",
		},
		[]string{"reason"},
	)

	discoveryRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "truckspot",
			Name:      "discovery_refresh_total",
			Help:      "Count of discovery snapshot refreshes, by result.",
		},
		[]string{"result"},
	)

	geocodeLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "truckspot",
			Name:      "geocode_lookups_total",
			Help:      "Count of place-search lookups, by result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(checkinsOpened, checkinsClosed, discoveryRefresh, geocodeLookups)
	})
}

func IncCheckinOpened() {
	checkinsOpened.Inc()
}

func IncCheckinClosed(reason string) {
	checkinsClosed.WithLabelValues(reason).Inc()
}

func IncDiscoveryRefresh(result string) {
	discoveryRefresh.WithLabelValues(result).Inc()
}

func IncGeocodeLookup(result string) {
	geocodeLookups.WithLabelValues(result).Inc()
}
