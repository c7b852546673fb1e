package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the sync engine.
type Metrics struct {
	// Sync pass metrics
	LocationsCreated prometheus.Counter
	AssetsCreated    prometheus.Counter
	AssetsSkipped    prometheus.Counter
	AssetsFailed     *prometheus.CounterVec
	WriteBacksFailed prometheus.Counter
	PassDuration     prometheus.Histogram

	// Cleanup metrics
	AssetsDeleted    prometheus.Counter
	LocationsDeleted prometheus.Counter
	CleanupFailures  *prometheus.CounterVec
}

// New creates and registers the sync metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LocationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "qmsync_locations_created_total",
			Help: "Total number of functional locations created in the target system",
		}),

		AssetsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "qmsync_assets_created_total",
			Help: "Total number of assets created in the target system",
		}),

		AssetsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "qmsync_assets_skipped_total",
			Help: "Total number of assets skipped because they were already synced",
		}),

		AssetsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qmsync_assets_failed_total",
				Help: "Total number of assets that failed to sync",
			},
			[]string{"reason"},
		),

		WriteBacksFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "qmsync_writebacks_failed_total",
			Help: "Total number of identifier write-backs the source system rejected",
		}),

		PassDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "qmsync_pass_duration_seconds",
			Help:    "Duration of complete sync passes",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),

		AssetsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "qmsync_assets_deleted_total",
			Help: "Total number of assets deleted during cleanup",
		}),

		LocationsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "qmsync_locations_deleted_total",
			Help: "Total number of locations deleted during cleanup",
		}),

		CleanupFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qmsync_cleanup_failures_total",
				Help: "Total number of cleanup deletions that failed",
			},
			[]string{"entity_type"},
		),
	}
}
