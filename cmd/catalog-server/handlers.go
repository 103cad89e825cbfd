package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zeywox/veyronix-core/pkg/catalog"
	"github.com/zeywox/veyronix-core/pkg/ingest"
	"github.com/zeywox/veyronix-core/pkg/respcache"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// server is the thin HTTP glue over the catalog core.
type server struct {
	service  *catalog.Service
	cache    *respcache.Manager
	ingester *ingest.Ingester
	cfg      config
}

func newServer(service *catalog.Service, cache *respcache.Manager, ingester *ingest.Ingester, cfg config) *server {
	return &server{service: service, cache: cache, ingester: ingester, cfg: cfg}
}

// routes builds the request mux.
func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /products/{id}", s.handleGetProduct)
	mux.HandleFunc("GET /products", s.handleListProducts)
	mux.HandleFunc("POST /products", s.handleIngest)
	mux.HandleFunc("PATCH /products/{id}", s.handlePatchProduct)
	mux.HandleFunc("PUT /products/{id}/stock", s.handleSetStock)
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// handleGetProduct serves a point lookup through the coalesced fresh path.
func (s *server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	entry, err := s.cache.GetFresh(r.Context(), id, func(ctx context.Context) (catalog.Product, error) {
		return s.service.GetOne(ctx, id)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if respcache.IsNotModified(r, entry.Meta) {
		respcache.WriteNotModified(w, entry, s.cfg.HardTTL)
		return
	}
	_ = respcache.WriteEntry(w, r, entry, s.cfg.HardTTL)
}

// handleListProducts serves a category page through the cached list path.
func (s *server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		http.Error(w, "category is required", http.StatusBadRequest)
		return
	}

	var inStock *bool
	if v := r.URL.Query().Get("inStock"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid inStock", http.StatusBadRequest)
			return
		}
		inStock = &b
	}

	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", defaultPageSize)
	if size < 1 || size > maxPageSize {
		http.Error(w, fmt.Sprintf("size must be 1..%d", maxPageSize), http.StatusBadRequest)
		return
	}

	q := &respcache.ListQuery{
		Category: category,
		InStock:  inStock,
		Page:     page,
		Size:     size,
		Fetch: func(ctx context.Context) ([]catalog.Product, error) {
			return s.service.ListByCategory(ctx, category, inStock, page, size)
		},
	}

	entry, err := s.cache.GetCachedList(r.Context(), q.CacheKey(), q)
	if err != nil {
		writeError(w, err)
		return
	}

	if respcache.IsNotModified(r, entry.Meta) {
		respcache.WriteNotModified(w, entry, s.cfg.HardTTL)
		return
	}
	_ = respcache.WriteEntry(w, r, entry, s.cfg.HardTTL)
}

// handleIngest accepts a JSON feed batch.
func (s *server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var rows []ingest.Input
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		http.Error(w, "invalid feed payload", http.StatusBadRequest)
		return
	}

	accepted := s.ingester.Ingest(r.Context(), rows)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accepted": accepted,
		"rejected": len(rows) - len(accepted),
	})
}

func (s *server) handlePatchProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req catalog.PatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid patch payload", http.StatusBadRequest)
		return
	}

	updated, err := s.service.Patch(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *server) handleSetStock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Stock *int `json:"stock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Stock == nil {
		http.Error(w, "stock is required", http.StatusBadRequest)
		return
	}

	applied, err := s.service.SetStock(r.Context(), id, *req.Stock)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "stock": applied})
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, catalog.ErrInvalidProduct):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
