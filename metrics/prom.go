package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PasteCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostink_paste_created_total",
		Help: "no. of pastes created",
	})
	PasteRetrieved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostink_paste_retrieved_total",
		Help: "no. of pastes retrieved",
	})
	PasteNotFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostink_paste_not_found_total",
		Help: "no. of reads for missing or expired pastes",
	})
	PastesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostink_pastes_swept_total",
		Help: "no. of expired pastes removed",
	})
	SweepCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghostink_sweep_cycles_total",
		Help: "no. of sweep runs",
	})
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghostink_cache_hits_total",
			Help: "no. of cache hits",
		},
		[]string{"layer"},
	)
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghostink_cache_misses_total",
			Help: "no. of cache misses",
		},
		[]string{"layer"},
	)
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghostink_store_errors_total",
			Help: "no. of backend failures",
		},
		[]string{"op"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ghostink_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
