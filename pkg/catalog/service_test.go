package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	products  map[string]Product
	upserts   []Product
	upsertErr error
	listIDs   []string
	listErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{products: make(map[string]Product)}
}

func (f *fakeStore) GetOne(_ context.Context, id string) (Product, error) {
	p, ok := f.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

func (f *fakeStore) GetMany(_ context.Context, ids []string) ([]Product, error) {
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListIDs(_ context.Context, _ string, _ *bool, _, _ int) ([]string, error) {
	return f.listIDs, f.listErr
}

func (f *fakeStore) Upsert(_ context.Context, p Product) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, p)
	f.products[p.ID] = p
	return nil
}

func (f *fakeStore) SetStock(_ context.Context, id string, stock int) (int, error) {
	p, ok := f.products[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p.Stock = stock
	f.products[id] = p
	return stock, nil
}

// fakeIdentityRegistry records remap calls.
type fakeIdentityRegistry struct {
	calls int
	err   error

	oldName, oldCategory string
	newName, newCategory string
	id                   string
}

func (f *fakeIdentityRegistry) RemapIfChanged(_ context.Context, oldName, oldCategory, newName, newCategory, id string) error {
	f.calls++
	f.oldName, f.oldCategory = oldName, oldCategory
	f.newName, f.newCategory = newName, newCategory
	f.id = id
	return f.err
}

func strPtr(s string) *string    { return &s }
func intPtr(n int) *int          { return &n }
func f64Ptr(v float64) *float64  { return &v }
func boolPtr(b bool) *bool       { return &b }

func TestService_Patch_FieldMask(t *testing.T) {
	store := newFakeStore()
	store.products["p1"] = Product{ID: "p1", Name: "Hammer", Category: "tools", Description: "old", Stock: 2}
	registry := &fakeIdentityRegistry{}
	svc := NewService(store, registry, zerolog.Nop())

	got, err := svc.Patch(context.Background(), "p1", PatchRequest{
		Description: strPtr("new"),
		Price:       f64Ptr(9.995),
	})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if got.Description != "new" {
		t.Errorf("Description = %q, want new", got.Description)
	}
	if got.Price == nil || *got.Price != 10.00 {
		t.Errorf("Price = %v, want 10.00", got.Price)
	}
	// Untouched fields survive.
	if got.Name != "Hammer" || got.Category != "tools" || got.Stock != 2 {
		t.Errorf("untouched fields changed: %+v", got)
	}
	if len(store.upserts) != 1 {
		t.Fatalf("upserts = %d, want 1", len(store.upserts))
	}
	// Non-identity change: the natural-key mapping stays put.
	if registry.calls != 0 {
		t.Errorf("remap calls = %d, want 0", registry.calls)
	}
}

func TestService_Patch_NoChangeSkipsWrite(t *testing.T) {
	store := newFakeStore()
	store.products["p1"] = Product{ID: "p1", Name: "Hammer", Category: "tools", Stock: 2}
	svc := NewService(store, &fakeIdentityRegistry{}, zerolog.Nop())

	got, err := svc.Patch(context.Background(), "p1", PatchRequest{
		Name:  strPtr("Hammer"),
		Stock: intPtr(2),
	})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if got.ID != "p1" {
		t.Errorf("Patch = %+v", got)
	}
	if len(store.upserts) != 0 {
		t.Errorf("no-op patch wrote %d upserts", len(store.upserts))
	}
}

func TestService_Patch_IdentityChangeRemaps(t *testing.T) {
	store := newFakeStore()
	store.products["p1"] = Product{ID: "p1", Name: "Hammer", Category: "tools", Stock: 2}
	registry := &fakeIdentityRegistry{}
	svc := NewService(store, registry, zerolog.Nop())

	got, err := svc.Patch(context.Background(), "p1", PatchRequest{Name: strPtr("Sledgehammer")})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if got.Name != "Sledgehammer" {
		t.Errorf("Name = %q", got.Name)
	}
	if registry.calls != 1 {
		t.Fatalf("remap calls = %d, want 1", registry.calls)
	}
	if registry.oldName != "Hammer" || registry.newName != "Sledgehammer" || registry.id != "p1" {
		t.Errorf("remap args = %+v", registry)
	}
}

func TestService_Patch_RemapFailureIsNonFatal(t *testing.T) {
	store := newFakeStore()
	store.products["p1"] = Product{ID: "p1", Name: "Hammer", Category: "tools", Stock: 2}
	registry := &fakeIdentityRegistry{err: errors.New("redis down")}
	svc := NewService(store, registry, zerolog.Nop())

	// The entity write already committed; the failed remap is logged only.
	got, err := svc.Patch(context.Background(), "p1", PatchRequest{Name: strPtr("Sledgehammer")})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if got.Name != "Sledgehammer" {
		t.Errorf("Name = %q", got.Name)
	}
	if len(store.upserts) != 1 {
		t.Errorf("upserts = %d, want 1", len(store.upserts))
	}
}

func TestService_Patch_Validation(t *testing.T) {
	store := newFakeStore()
	store.products["p1"] = Product{ID: "p1", Name: "Hammer", Category: "tools", Stock: 2}
	svc := NewService(store, &fakeIdentityRegistry{}, zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name string
		req  PatchRequest
	}{
		{name: "blank name", req: PatchRequest{Name: strPtr("")}},
		{name: "negative price", req: PatchRequest{Price: f64Ptr(-1)}},
		{name: "negative stock", req: PatchRequest{Stock: intPtr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Patch(ctx, "p1", tt.req); !errors.Is(err, ErrInvalidProduct) {
				t.Errorf("Patch = %v, want ErrInvalidProduct", err)
			}
		})
	}

	if _, err := svc.Patch(ctx, "missing", PatchRequest{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Patch on absent id = %v, want ErrNotFound", err)
	}
}

func TestService_Patch_BlankCategoryFallsBack(t *testing.T) {
	store := newFakeStore()
	store.products["p1"] = Product{ID: "p1", Name: "Hammer", Category: "tools", Stock: 2}
	registry := &fakeIdentityRegistry{}
	svc := NewService(store, registry, zerolog.Nop())

	got, err := svc.Patch(context.Background(), "p1", PatchRequest{Category: strPtr("")})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if got.Category != DefaultCategory {
		t.Errorf("Category = %q, want %q", got.Category, DefaultCategory)
	}
	if registry.calls != 1 {
		t.Errorf("remap calls = %d, want 1", registry.calls)
	}
}

func TestService_ListByCategory(t *testing.T) {
	store := newFakeStore()
	store.products["a"] = Product{ID: "a", Name: "A", Category: "tools", Stock: 1}
	store.products["b"] = Product{ID: "b", Name: "B", Category: "tools", Stock: 0}
	store.listIDs = []string{"a", "b"}
	svc := NewService(store, &fakeIdentityRegistry{}, zerolog.Nop())
	ctx := context.Background()

	got, err := svc.ListByCategory(ctx, "tools", nil, 1, 10)
	if err != nil {
		t.Fatalf("ListByCategory failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("ListByCategory = %+v", got)
	}

	if _, err := svc.ListByCategory(ctx, "", nil, 1, 10); !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("empty category = %v, want ErrInvalidProduct", err)
	}

	store.listIDs = nil
	got, err = svc.ListByCategory(ctx, "tools", boolPtr(true), 1, 10)
	if err != nil || got != nil {
		t.Errorf("empty page = %v, %v, want nil", got, err)
	}
}

func TestService_SetStock_Validation(t *testing.T) {
	store := newFakeStore()
	store.products["p1"] = Product{ID: "p1", Name: "Hammer", Category: "tools", Stock: 2}
	svc := NewService(store, &fakeIdentityRegistry{}, zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.SetStock(ctx, "p1", -1); !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("negative stock = %v, want ErrInvalidProduct", err)
	}
	applied, err := svc.SetStock(ctx, "p1", 7)
	if err != nil || applied != 7 {
		t.Errorf("SetStock = %d, %v", applied, err)
	}
}
