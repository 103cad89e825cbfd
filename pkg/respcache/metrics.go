package respcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits counts list-cache hits (including soft-expired serves).
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_response_cache_hits_total",
		Help: "Total number of response cache hits",
	})

	// cacheMisses counts list-cache misses that triggered a load.
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_response_cache_misses_total",
		Help: "Total number of response cache misses",
	})

	// refreshesTotal tracks soft-TTL refresh outcomes: "skipped" when the
	// version counter was unchanged, "recomputed" on a changed counter,
	// "failed" when the recompute errored.
	refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_response_cache_refreshes_total",
		Help: "Total number of soft-TTL refreshes by outcome",
	}, []string{"outcome"})

	// fallbacksTotal counts uncached one-off computations performed after a
	// coalesced wait timed out or a cache load failed.
	fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_response_cache_fallbacks_total",
		Help: "Total number of fallback computations by path",
	}, []string{"path"}) // "point", "list"

	// coalescedWaits counts point-lookup callers that attached to an
	// existing in-flight computation.
	coalescedWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_point_lookup_coalesced_total",
		Help: "Total number of point lookups that shared an in-flight computation",
	})

	// notModifiedTotal counts 304 responses produced.
	notModifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_not_modified_total",
		Help: "Total number of 304 Not Modified responses",
	})
)
