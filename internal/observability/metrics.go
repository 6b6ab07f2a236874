package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "parking_sync"

// Metrics holds the Prometheus counters, histograms, and gauges for zone synchronization.
type Metrics struct {
	RefreshCycles      *prometheus.CounterVec // labels: trigger={start,timer,manual}, outcome={changed,unchanged,failed,discarded}
	RefreshDuration    prometheus.Histogram
	CoalescedRefreshes prometheus.Counter
	Fetching           prometheus.Gauge

	FeedItems      prometheus.Counter
	MalformedItems prometheus.Counter
	StoreUpdates   prometheus.Counter
	Zones          prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram

	SnapshotMessages prometheus.Counter
	ProfileCache     *prometheus.CounterVec // labels: result={hit,miss}
}

func newMetrics() *Metrics {
	return &Metrics{
		RefreshCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      "Refresh cycles by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-publish cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CoalescedRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_coalesced_total",
			Help:      "Refresh requests joined to a cycle already in flight.",
		}),
		Fetching: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_fetching",
			Help:      "1 while a refresh cycle is in flight, 0 when idle.",
		}),
		FeedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_items_total",
			Help:      "Total raw items received from the feed.",
		}),
		MalformedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_malformed_items_total",
			Help:      "Feed items skipped because they could not be normalized.",
		}),
		StoreUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_updates_total",
			Help:      "Snapshots that replaced the previous zone store contents.",
		}),
		Zones: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zones",
			Help:      "Zones in the current snapshot.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Forward geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		SnapshotMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_messages_total",
			Help:      "Zone records published to the snapshot topic.",
		}),
		ProfileCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_cache_total",
			Help:      "Traffic profile cache lookups by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RefreshCycles,
		m.RefreshDuration,
		m.CoalescedRefreshes,
		m.Fetching,
		m.FeedItems,
		m.MalformedItems,
		m.StoreUpdates,
		m.Zones,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.SnapshotMessages,
		m.ProfileCache,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
