// Package ingest turns external feed records into stored catalog products:
// rows are validated, assigned a stable id through the natural-key registry,
// and written through the atomic upsert transaction. Rows are processed on a
// bounded worker pool; a bad row is logged and skipped, never fatal for the
// batch.
package ingest

import (
	"context"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/zeywox/veyronix-core/pkg/catalog"
)

var (
	rowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_ingest_rows_total",
		Help: "Total number of ingested feed rows by result",
	}, []string{"result"}) // "accepted", "rejected"
)

// Input is one raw feed record before validation.
type Input struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       *float64 `json:"price"`
	Description string   `json:"description"`
	Stock       *int     `json:"stock"`
}

// normalize applies the ingestion defaults: trimmed name, sentinel category,
// rounded price, zero stock.
func (in Input) normalize() Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		in.Category = catalog.DefaultCategory
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Price != nil {
		p := catalog.RoundPrice(*in.Price)
		in.Price = &p
	}
	return in
}

// Config holds ingester configuration.
type Config struct {
	// Concurrency is the number of parallel ingest workers.
	Concurrency int
}

// DefaultConfig returns safe defaults.
func DefaultConfig() Config {
	return Config{Concurrency: 8}
}

// IDResolver assigns stable ids to incoming records. Implemented by
// catalog.IDRegistry.
type IDResolver interface {
	ResolveOrCreate(ctx context.Context, name, category string) (string, error)
}

// Ingester writes validated feed rows into the catalog.
type Ingester struct {
	registry IDResolver
	store    catalog.Store
	config   Config
	logger   zerolog.Logger
}

// NewIngester creates a feed ingester.
func NewIngester(registry IDResolver, store catalog.Store, config Config, logger zerolog.Logger) *Ingester {
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	return &Ingester{registry: registry, store: store, config: config, logger: logger}
}

// Ingest processes a feed batch on a worker pool and returns the accepted
// products in input order. Rejected rows (blank name, failed write) are
// logged and counted, not returned as errors.
func (ing *Ingester) Ingest(ctx context.Context, rows []Input) []catalog.Product {
	if len(rows) == 0 {
		return nil
	}

	results := make([]*catalog.Product, len(rows))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := ing.config.Concurrency
	if workers > len(rows) {
		workers = len(rows)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if p, ok := ing.ingestRow(ctx, rows[i]); ok {
					results[i] = &p
				}
			}
		}()
	}

feed:
	for i := range rows {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	accepted := make([]catalog.Product, 0, len(rows))
	for _, p := range results {
		if p != nil {
			accepted = append(accepted, *p)
		}
	}
	ing.logger.Info().
		Int("accepted", len(accepted)).
		Int("rejected", len(rows)-len(accepted)).
		Msg("Ingest batch complete")
	return accepted
}

// ingestRow validates one row, resolves its surrogate id, and upserts it.
func (ing *Ingester) ingestRow(ctx context.Context, in Input) (catalog.Product, bool) {
	in = in.normalize()
	if in.Name == "" {
		ing.logger.Warn().Msg("Ingest skip: missing or blank name")
		rowsTotal.WithLabelValues("rejected").Inc()
		return catalog.Product{}, false
	}
	if in.Price != nil && *in.Price < 0 {
		ing.logger.Warn().Str("name", in.Name).Msg("Ingest skip: negative price")
		rowsTotal.WithLabelValues("rejected").Inc()
		return catalog.Product{}, false
	}
	stock := 0
	if in.Stock != nil {
		if *in.Stock < 0 {
			ing.logger.Warn().Str("name", in.Name).Msg("Ingest skip: negative stock")
			rowsTotal.WithLabelValues("rejected").Inc()
			return catalog.Product{}, false
		}
		stock = *in.Stock
	}

	id, err := ing.registry.ResolveOrCreate(ctx, in.Name, in.Category)
	if err != nil {
		ing.logger.Warn().Err(err).Str("name", in.Name).Msg("Ingest skip: id resolution failed")
		rowsTotal.WithLabelValues("rejected").Inc()
		return catalog.Product{}, false
	}

	p := catalog.Product{
		ID:          id,
		Name:        in.Name,
		Category:    in.Category,
		Price:       in.Price,
		Description: in.Description,
		Stock:       stock,
	}
	if err := ing.store.Upsert(ctx, p); err != nil {
		ing.logger.Warn().Err(err).Str("id", id).Str("name", in.Name).Msg("Ingest skip: upsert failed")
		rowsTotal.WithLabelValues("rejected").Inc()
		return catalog.Product{}, false
	}
	rowsTotal.WithLabelValues("accepted").Inc()
	return p, true
}
