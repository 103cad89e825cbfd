package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// PatchRequest carries the optional field updates for a product. Nil means
// "leave unchanged".
type PatchRequest struct {
	Name        *string  `json:"name"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Description *string  `json:"description"`
	Stock       *int     `json:"stock"`
}

// IdentityRegistry is the part of the natural-key registry the service
// needs for identity-affecting edits. Implemented by IDRegistry.
type IdentityRegistry interface {
	RemapIfChanged(ctx context.Context, oldName, oldCategory, newName, newCategory, id string) error
}

// Service orchestrates reads and mutations: mutations flow through the
// atomic index transactions, and identity-affecting edits additionally move
// the natural-key mapping.
type Service struct {
	store    Store
	registry IdentityRegistry
	logger   zerolog.Logger
}

// NewService creates a catalog service.
func NewService(store Store, registry IdentityRegistry, logger zerolog.Logger) *Service {
	return &Service{store: store, registry: registry, logger: logger}
}

// GetOne returns a product by id. ErrNotFound when absent.
func (s *Service) GetOne(ctx context.Context, id string) (Product, error) {
	return s.store.GetOne(ctx, id)
}

// ListByCategory returns one page of products for a category, optionally
// filtered to a stock bucket. Ids come from the ordered index; the entities
// are then bulk-read in a single pipelined round trip.
func (s *Service) ListByCategory(ctx context.Context, category string, inStock *bool, page, size int) ([]Product, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidProduct)
	}
	ids, err := s.store.ListIDs(ctx, category, inStock, page, size)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.store.GetMany(ctx, ids)
}

// Patch applies a field-mask update. The full field set is rewritten through
// the atomic upsert transaction; when name or category changed, the
// natural-key mapping is remapped afterwards.
func (s *Service) Patch(ctx context.Context, id string, req PatchRequest) (Product, error) {
	old, err := s.store.GetOne(ctx, id)
	if err != nil {
		return Product{}, err
	}

	updated := old
	identityChange, anyChange := false, false

	if req.Name != nil {
		if *req.Name == "" {
			return Product{}, fmt.Errorf("%w: name cannot be blank", ErrInvalidProduct)
		}
		if *req.Name != old.Name {
			updated.Name = *req.Name
			identityChange, anyChange = true, true
		}
	}
	if req.Category != nil {
		c := *req.Category
		if c == "" {
			c = DefaultCategory
		}
		if c != old.Category {
			updated.Category = c
			identityChange, anyChange = true, true
		}
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return Product{}, fmt.Errorf("%w: price must be >= 0", ErrInvalidProduct)
		}
		p := RoundPrice(*req.Price)
		if old.Price == nil || *old.Price != p {
			updated.Price = &p
			anyChange = true
		}
	}
	if req.Description != nil && *req.Description != old.Description {
		updated.Description = *req.Description
		anyChange = true
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return Product{}, fmt.Errorf("%w: stock must be >= 0", ErrInvalidProduct)
		}
		if *req.Stock != old.Stock {
			updated.Stock = *req.Stock
			anyChange = true
		}
	}

	if !anyChange {
		return old, nil
	}

	if err := s.store.Upsert(ctx, updated); err != nil {
		return Product{}, err
	}

	if identityChange {
		if err := s.registry.RemapIfChanged(ctx, old.Name, old.Category, updated.Name, updated.Category, id); err != nil {
			// The entity write already committed; a failed remap leaves a
			// stale mapping that the next identity edit repairs.
			s.logger.Warn().Err(err).Str("id", id).Msg("Natural-key remap failed after patch")
		}
	}
	return updated, nil
}

// SetStock validates and applies a stock update through the atomic
// transaction. Returns the applied value.
func (s *Service) SetStock(ctx context.Context, id string, stock int) (int, error) {
	if stock < 0 {
		return 0, fmt.Errorf("%w: stock must be >= 0", ErrInvalidProduct)
	}
	return s.store.SetStock(ctx, id, stock)
}
