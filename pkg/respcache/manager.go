package respcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/zeywox/veyronix-core/pkg/catalog"
)

const contentTypeJSON = "application/json"

// VersionReader reads the change counters used to stamp and revalidate
// cached entries. Implemented by catalog.VersionLedger.
type VersionReader interface {
	EntityVersion(ctx context.Context, id string) (string, error)
	CategoryVersion(ctx context.Context, category string, inStock *bool) (string, error)
}

// Config holds the response cache configuration.
type Config struct {
	// HardTTL evicts an entry unconditionally this long after its last write.
	HardTTL time.Duration

	// SoftTTL triggers a background refresh on the next access after this
	// window; the existing value keeps serving meanwhile.
	SoftTTL time.Duration

	// MaxWeight bounds the sum of compressed entry sizes held in memory.
	MaxWeight int64

	// FreshJoinTimeout is how long a point-lookup caller waits on a shared
	// in-flight computation before computing independently.
	FreshJoinTimeout time.Duration

	// RefreshTimeout bounds one background refresh attempt.
	RefreshTimeout time.Duration
}

// DefaultConfig returns safe defaults.
func DefaultConfig() Config {
	return Config{
		HardTTL:          2 * time.Minute,
		SoftTTL:          5 * time.Second,
		MaxWeight:        256 << 20,
		FreshJoinTimeout: 2000 * time.Millisecond,
		RefreshTimeout:   10 * time.Second,
	}
}

// cached wraps an entry with its write time, which drives the soft TTL.
type cached struct {
	entry    *Entry
	storedAt time.Time
}

// Manager serves encoded catalog responses: a coalesced uncached path for
// point lookups and a weight-bounded, soft-TTL-refreshed cache for list
// queries. The cache is a derived, best-effort view; the version counters
// reconcile it with the store.
type Manager struct {
	cfg      Config
	versions VersionReader
	local    *ristretto.Cache
	logger   zerolog.Logger

	mu      sync.Mutex
	queries map[string]*ListQuery

	loads     singleflight.Group // initial list loads, one per key
	refreshes singleflight.Group // background refreshes, one per key
	point     singleflight.Group // in-flight point computations, one per id
}

// NewManager creates a response cache manager.
func NewManager(cfg Config, versions VersionReader, logger zerolog.Logger) (*Manager, error) {
	if versions == nil {
		return nil, fmt.Errorf("version ledger is required")
	}
	if cfg.SoftTTL <= 0 || cfg.HardTTL <= 0 || cfg.SoftTTL > cfg.HardTTL {
		return nil, fmt.Errorf("invalid TTL config: soft=%v hard=%v", cfg.SoftTTL, cfg.HardTTL)
	}
	if cfg.MaxWeight <= 0 {
		return nil, fmt.Errorf("max weight must be positive")
	}

	local, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 16,
		MaxCost:     cfg.MaxWeight,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create local cache: %w", err)
	}

	return &Manager{
		cfg:      cfg,
		versions: versions,
		local:    local,
		logger:   logger,
		queries:  make(map[string]*ListQuery),
	}, nil
}

// Close releases the in-process cache.
func (m *Manager) Close() {
	m.local.Close()
}

// GetFresh computes a point-lookup response, never cached. Concurrent calls
// for the same id share one computation; a caller waits up to
// FreshJoinTimeout for it, then computes independently. A timed-out shared
// computation is not cancelled, it simply loses its observers.
func (m *Manager) GetFresh(ctx context.Context, id string, fetch func(context.Context) (catalog.Product, error)) (*Entry, error) {
	computeCtx := context.WithoutCancel(ctx)
	ch := m.point.DoChan(id, func() (interface{}, error) {
		return m.computePoint(computeCtx, id, fetch)
	})

	timer := time.NewTimer(m.cfg.FreshJoinTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err == nil {
			if res.Shared {
				coalescedWaits.Inc()
			}
			return res.Val.(*Entry), nil
		}
		m.logger.Warn().Err(res.Err).Str("id", id).Msg("Shared point computation failed, computing independently")
	case <-timer.C:
		m.logger.Warn().Str("id", id).Dur("timeout", m.cfg.FreshJoinTimeout).
			Msg("Timed out waiting on shared point computation, computing independently")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	fallbacksTotal.WithLabelValues("point").Inc()
	return m.computePoint(ctx, id, fetch)
}

// GetCachedList serves a list query from the cache, loading on miss and
// triggering a background refresh once the soft TTL has elapsed. A failed
// load degrades to a one-off computation for this caller only.
func (m *Manager) GetCachedList(ctx context.Context, key string, q *ListQuery) (*Entry, error) {
	m.registerQuery(key, q)

	if v, ok := m.local.Get(key); ok {
		c := v.(*cached)
		cacheHits.Inc()
		if time.Since(c.storedAt) >= m.cfg.SoftTTL {
			go m.refresh(key)
		}
		return c.entry, nil
	}

	cacheMisses.Inc()
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := m.loads.Do(key, func() (interface{}, error) {
		entry, err := m.computeList(loadCtx, q)
		if err != nil {
			return nil, err
		}
		m.store(key, entry)
		return entry, nil
	})
	if err == nil {
		return v.(*Entry), nil
	}

	m.logger.Warn().Err(err).Str("key", key).Msg("Cache load failed, computing for this caller only")
	fallbacksTotal.WithLabelValues("list").Inc()
	return m.computeList(ctx, q)
}

// refresh runs at most one background refresh per key. Before recomputing,
// the relevant version counter is compared to the cached validator: an
// unchanged counter keeps the entry byte-for-byte and only restarts the
// soft-TTL window.
func (m *Manager) refresh(key string) {
	m.refreshes.Do(key, func() (interface{}, error) {
		q := m.query(key)
		if q == nil {
			return nil, nil
		}
		v, ok := m.local.Get(key)
		if !ok {
			return nil, nil
		}
		c := v.(*cached)
		if time.Since(c.storedAt) < m.cfg.SoftTTL {
			// A concurrent refresh already replaced the entry.
			return nil, nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.RefreshTimeout)
		defer cancel()

		ver, err := m.versions.CategoryVersion(ctx, q.Category, q.InStock)
		if err == nil && ver != "" && ver == c.entry.Meta.ETag {
			refreshesTotal.WithLabelValues("skipped").Inc()
			m.store(key, c.entry)
			return nil, nil
		}

		entry, err := m.computeList(ctx, q)
		if err != nil {
			// Previous value stays servable until it expires or a later
			// refresh succeeds.
			refreshesTotal.WithLabelValues("failed").Inc()
			m.logger.Warn().Err(err).Str("key", key).Msg("Background refresh failed, keeping cached entry")
			return nil, nil
		}
		refreshesTotal.WithLabelValues("recomputed").Inc()
		m.store(key, entry)
		return nil, nil
	})
}

// computePoint fetches, encodes, and stamps a single-product response.
func (m *Manager) computePoint(ctx context.Context, id string, fetch func(context.Context) (catalog.Product, error)) (*Entry, error) {
	p, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("point fetch %s: %w", id, err)
	}
	enc, err := EncodeProduct(p)
	if err != nil {
		return nil, err
	}
	ver, err := m.versions.EntityVersion(ctx, id)
	if err != nil {
		m.logger.Warn().Err(err).Str("id", id).Msg("Version read failed, falling back to content hash")
		ver = ""
	}
	return &Entry{
		Body: enc.Gzipped,
		Meta: Meta{
			ETag:         chooseTag(ver, enc.WeakHash),
			LastModified: time.Now(),
			ContentType:  contentTypeJSON,
		},
	}, nil
}

// computeList fetches, encodes, and stamps a list response. The version
// counter is read before the fetch so a concurrent bump during the fetch
// shows up as a stale validator and forces the next refresh to recompute.
func (m *Manager) computeList(ctx context.Context, q *ListQuery) (*Entry, error) {
	ver, err := m.versions.CategoryVersion(ctx, q.Category, q.InStock)
	if err != nil {
		m.logger.Warn().Err(err).Str("category", q.Category).Msg("Version read failed, falling back to content hash")
		ver = ""
	}
	data, err := q.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fetch: %w", err)
	}
	enc, err := EncodeList(data)
	if err != nil {
		return nil, err
	}
	return &Entry{
		Body: enc.Gzipped,
		Meta: Meta{
			ETag:         chooseTag(ver, enc.WeakHash),
			LastModified: time.Now(),
			ContentType:  contentTypeJSON,
		},
	}, nil
}

// chooseTag prefers the version counter as validator and falls back to the
// weak content hash when no counter exists yet.
func chooseTag(version, weakHash string) string {
	if version != "" {
		return version
	}
	return weakHash
}

func (m *Manager) store(key string, entry *Entry) {
	m.local.SetWithTTL(key, &cached{entry: entry, storedAt: time.Now()}, entry.Weight(), m.cfg.HardTTL)
}

// registerQuery retains the first query context observed for a key so later
// background refreshes can recompute it.
func (m *Manager) registerQuery(key string, q *ListQuery) {
	m.mu.Lock()
	if _, ok := m.queries[key]; !ok {
		m.queries[key] = q
	}
	m.mu.Unlock()
}

func (m *Manager) query(key string) *ListQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[key]
}
