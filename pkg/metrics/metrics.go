// Package metrics provides the central Prometheus registry reference for the
// catalog service. All metrics are defined in their respective packages
// (catalog, respcache, ingest) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the catalog service.
// All metrics are automatically registered via promauto in their respective
// packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Index Maintenance Metrics (pkg/catalog):
//   - catalog_upserts_total (Counter): Successful atomic upsert transactions
//   - catalog_stock_updates_total (Counter): Successful stock update transactions
//   - catalog_index_tx_failures_total{operation} (Counter): Rejected index transactions
//   - catalog_nk_registry_races_total (Counter): Natural-key creations that lost a race
//
// Response Cache Metrics (pkg/respcache):
//   - catalog_response_cache_hits_total (Counter): List cache hits
//   - catalog_response_cache_misses_total (Counter): List cache misses
//   - catalog_response_cache_refreshes_total{outcome} (Counter): Soft-TTL refresh outcomes
//     (skipped = version unchanged, recomputed, failed)
//   - catalog_response_cache_fallbacks_total{path} (Counter): Uncached one-off computations
//   - catalog_point_lookup_coalesced_total (Counter): Point lookups that shared a computation
//   - catalog_not_modified_total (Counter): 304 Not Modified responses produced
//
// Ingestion Metrics (pkg/ingest):
//   - catalog_ingest_rows_total{result} (Counter): Feed rows by result (accepted, rejected)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(catalog_response_cache_hits_total[5m])) /
//   (sum(rate(catalog_response_cache_hits_total[5m])) + sum(rate(catalog_response_cache_misses_total[5m])))
//
//   # Refresh Cost Avoidance (share of refreshes that skipped recompute)
//   rate(catalog_response_cache_refreshes_total{outcome="skipped"}[5m]) /
//   sum(rate(catalog_response_cache_refreshes_total[5m]))
//
//   # Index Transaction Failure Rate
//   rate(catalog_index_tx_failures_total[5m])
//
//   # 304 Response Rate
//   rate(catalog_not_modified_total[5m])
