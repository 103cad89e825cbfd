// Package respcache produces and caches encoded HTTP response payloads for
// the catalog read path.
//
// Two access patterns are served:
//
//   - Point lookups (GetFresh): never cached. Concurrent requests for the
//     same id coalesce into a single in-flight computation; a caller waits a
//     bounded time for the shared result and then computes independently.
//   - List queries (GetCachedList): held in an in-process, weight-bounded
//     cache with a hard TTL and a soft TTL. A soft-expired entry still
//     serves, while a background refresh consults the version counters and
//     recomputes only when the underlying data actually changed.
//
// # Basic Usage
//
//	manager, err := respcache.NewManager(respcache.DefaultConfig(), ledger, logger)
//
//	entry, err := manager.GetCachedList(ctx, key, &respcache.ListQuery{
//		Category: "tools",
//		Page:     1,
//		Size:     20,
//		Fetch: func(ctx context.Context) ([]catalog.Product, error) {
//			return service.ListByCategory(ctx, "tools", nil, 1, 20)
//		},
//	})
//
//	if respcache.IsNotModified(req, entry.Meta) {
//		respcache.WriteNotModified(w, entry, maxAge)
//	} else {
//		respcache.WriteEntry(w, req, entry, maxAge)
//	}
//
// # Validators
//
// Entry tags prefer the version counter for the queried scope; when no
// counter exists yet the weak content hash of the raw payload is used
// instead. Version strings make refresh revalidation a single counter read
// rather than a full fetch-and-encode.
//
// # Metrics
//
//   - catalog_response_cache_hits_total / _misses_total
//   - catalog_response_cache_refreshes_total{outcome="skipped"|"recomputed"|"failed"}
//   - catalog_response_cache_fallbacks_total{path}
//   - catalog_point_lookup_coalesced_total
//   - catalog_not_modified_total
package respcache
