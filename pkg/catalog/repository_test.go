package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client. Tests that need a live store
// are skipped when no local Redis is available; the full round trips also
// run under tests/integration against a containerized instance.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func counter(t *testing.T, client *redis.Client, key string) string {
	t.Helper()
	v, err := client.Get(context.Background(), key).Result()
	if err == redis.Nil {
		return ""
	}
	if err != nil {
		t.Fatalf("Get %s failed: %v", key, err)
	}
	return v
}

func isMember(t *testing.T, client *redis.Client, key, member string) bool {
	t.Helper()
	ok, err := client.SIsMember(context.Background(), key, member).Result()
	if err != nil {
		t.Fatalf("SIsMember %s failed: %v", key, err)
	}
	return ok
}

func TestNewRepository_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRepository should panic with nil redis client")
		}
	}()
	NewRepository(nil)
}

func TestRepository_UpsertAndGetOne(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewRepository(client)
	ctx := context.Background()

	price := 19.99
	p := Product{ID: "p1", Name: "Hammer", Category: "Tools", Price: &price, Description: "claw hammer", Stock: 5}

	if err := repo.Upsert(ctx, p); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := repo.GetOne(ctx, "p1")
	if err != nil {
		t.Fatalf("GetOne failed: %v", err)
	}
	if got.Name != "Hammer" || got.Category != "Tools" || got.Stock != 5 {
		t.Errorf("GetOne = %+v", got)
	}
	if got.Price == nil || *got.Price != 19.99 {
		t.Errorf("Price = %v, want 19.99", got.Price)
	}

	// Membership in global, category, ordered, and bucket indexes.
	if !isMember(t, client, "idx:all", "p1") {
		t.Error("p1 missing from idx:all")
	}
	if !isMember(t, client, "idx:category:tools", "p1") {
		t.Error("p1 missing from idx:category:tools")
	}
	if !isMember(t, client, "idx:category:in:tools", "p1") {
		t.Error("p1 missing from in-stock bucket")
	}
	if isMember(t, client, "idx:category:out:tools", "p1") {
		t.Error("p1 unexpectedly in out-of-stock bucket")
	}
	if rank, err := client.ZRank(ctx, "zidx:category:tools", "p1").Result(); err != nil || rank != 0 {
		t.Errorf("zidx rank = %d, err %v", rank, err)
	}

	// One transaction, each affected counter bumped exactly once.
	if v := counter(t, client, "ver:product:p1"); v != "1" {
		t.Errorf("ver:product:p1 = %q, want 1", v)
	}
	if v := counter(t, client, "ver:category:tools"); v != "1" {
		t.Errorf("ver:category:tools = %q, want 1", v)
	}
	if v := counter(t, client, "ver:category:in:tools"); v != "1" {
		t.Errorf("ver:category:in:tools = %q, want 1", v)
	}
	if v := counter(t, client, "ver:category:out:tools"); v != "" {
		t.Errorf("ver:category:out:tools = %q, want unset", v)
	}
}

func TestRepository_GetOne_NotFound(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewRepository(client)

	_, err := repo.GetOne(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetOne = %v, want ErrNotFound", err)
	}
}

func TestRepository_Upsert_Validation(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewRepository(client)
	ctx := context.Background()

	if err := repo.Upsert(ctx, Product{Category: "tools"}); !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("missing id: got %v, want ErrInvalidProduct", err)
	}
	if err := repo.Upsert(ctx, Product{ID: "p1"}); !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("missing category: got %v, want ErrInvalidProduct", err)
	}
}

func TestRepository_Upsert_CategoryMove(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewRepository(client)
	ctx := context.Background()

	p := Product{ID: "p1", Name: "Hammer", Category: "Tools", Stock: 2}
	if err := repo.Upsert(ctx, p); err != nil {
		t.Fatalf("initial upsert failed: %v", err)
	}

	p.Category = "Garden"
	if err := repo.Upsert(ctx, p); err != nil {
		t.Fatalf("move upsert failed: %v", err)
	}

	// No residue in the old category's indexes.
	for _, key := range []string{
		"idx:category:tools", "idx:category:in:tools", "idx:category:out:tools",
	} {
		if isMember(t, client, key, "p1") {
			t.Errorf("p1 still in %s after category move", key)
		}
	}
	if n, _ := client.ZCard(ctx, "zidx:category:tools").Result(); n != 0 {
		t.Errorf("zidx:category:tools still has %d members", n)
	}

	if !isMember(t, client, "idx:category:garden", "p1") {
		t.Error("p1 missing from new category index")
	}
	if !isMember(t, client, "idx:category:in:garden", "p1") {
		t.Error("p1 missing from new in-stock bucket")
	}

	// Both categories saw a change.
	if v := counter(t, client, "ver:category:tools"); v != "2" {
		t.Errorf("ver:category:tools = %q, want 2", v)
	}
	if v := counter(t, client, "ver:category:in:tools"); v != "2" {
		t.Errorf("ver:category:in:tools = %q, want 2", v)
	}
	if v := counter(t, client, "ver:category:garden"); v != "1" {
		t.Errorf("ver:category:garden = %q, want 1", v)
	}
	if v := counter(t, client, "ver:product:p1"); v != "2" {
		t.Errorf("ver:product:p1 = %q, want 2", v)
	}
}

func TestRepository_GetMany(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewRepository(client)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := repo.Upsert(ctx, Product{ID: id, Name: "N" + id, Category: "tools", Stock: 1}); err != nil {
			t.Fatalf("Upsert %s failed: %v", id, err)
		}
	}

	got, err := repo.GetMany(ctx, []string{"a", "missing", "b"})
	if err != nil {
		t.Fatalf("GetMany failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetMany returned %d products, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("GetMany order = %s,%s", got[0].ID, got[1].ID)
	}

	if got, err := repo.GetMany(ctx, nil); err != nil || got != nil {
		t.Errorf("GetMany(nil) = %v, %v", got, err)
	}
}

func TestRepository_ListIDs_Pagination(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewRepository(client)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "e", "b", "d"} {
		if err := repo.Upsert(ctx, Product{ID: id, Name: "N" + id, Category: "tools", Stock: 1}); err != nil {
			t.Fatalf("Upsert %s failed: %v", id, err)
		}
	}

	tests := []struct {
		name string
		page int
		size int
		want []string
	}{
		{name: "first page ascending", page: 1, size: 2, want: []string{"a", "b"}},
		{name: "second page", page: 2, size: 2, want: []string{"c", "d"}},
		{name: "last partial page", page: 3, size: 2, want: []string{"e"}},
		{name: "page beyond range is empty", page: 9, size: 2, want: nil},
		{name: "page below one clamps to first", page: 0, size: 2, want: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListIDs(ctx, "tools", nil, tt.page, tt.size)
			if err != nil {
				t.Fatalf("ListIDs failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListIDs = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("ListIDs[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}

	if got, err := repo.ListIDs(ctx, "tools", nil, 1, 0); err != nil || got != nil {
		t.Errorf("ListIDs size 0 = %v, %v, want empty", got, err)
	}
}

func TestRepository_ListIDs_StockBuckets(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewRepository(client)
	ctx := context.Background()

	if err := repo.Upsert(ctx, Product{ID: "in1", Name: "A", Category: "tools", Stock: 3}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := repo.Upsert(ctx, Product{ID: "out1", Name: "B", Category: "tools", Stock: 0}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	yes, no := true, false

	got, err := repo.ListIDs(ctx, "tools", &yes, 1, 10)
	if err != nil || len(got) != 1 || got[0] != "in1" {
		t.Errorf("in-stock listing = %v, %v", got, err)
	}
	got, err = repo.ListIDs(ctx, "tools", &no, 1, 10)
	if err != nil || len(got) != 1 || got[0] != "out1" {
		t.Errorf("out-of-stock listing = %v, %v", got, err)
	}
	got, err = repo.ListIDs(ctx, "tools", nil, 1, 10)
	if err != nil || len(got) != 2 {
		t.Errorf("whole-category listing = %v, %v", got, err)
	}
}

func TestRepository_SetStock(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewRepository(client)
	ctx := context.Background()

	if _, err := repo.SetStock(ctx, "missing", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetStock on absent id = %v, want ErrNotFound", err)
	}
	if _, err := repo.SetStock(ctx, "p1", -1); !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("negative stock = %v, want ErrInvalidProduct", err)
	}

	if err := repo.Upsert(ctx, Product{ID: "p1", Name: "Hammer", Category: "Tools", Stock: 5}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	applied, err := repo.SetStock(ctx, "p1", 0)
	if err != nil {
		t.Fatalf("SetStock failed: %v", err)
	}
	if applied != 0 {
		t.Errorf("applied = %d, want 0", applied)
	}

	// Boundary crossed: membership moved from the in bucket to the out bucket.
	if isMember(t, client, "idx:category:in:tools", "p1") {
		t.Error("p1 still in in-stock bucket after depletion")
	}
	if !isMember(t, client, "idx:category:out:tools", "p1") {
		t.Error("p1 missing from out-of-stock bucket after depletion")
	}

	// Entity, category, and both crossed buckets revalidate.
	if v := counter(t, client, "ver:product:p1"); v != "2" {
		t.Errorf("ver:product:p1 = %q, want 2", v)
	}
	if v := counter(t, client, "ver:category:tools"); v != "2" {
		t.Errorf("ver:category:tools = %q, want 2", v)
	}
	if v := counter(t, client, "ver:category:in:tools"); v != "2" {
		t.Errorf("ver:category:in:tools = %q, want 2", v)
	}
	if v := counter(t, client, "ver:category:out:tools"); v != "1" {
		t.Errorf("ver:category:out:tools = %q, want 1", v)
	}

	got, err := repo.GetOne(ctx, "p1")
	if err != nil || got.Stock != 0 {
		t.Errorf("GetOne after SetStock = %+v, %v", got, err)
	}
}

func TestRepository_SetStock_NoBoundaryCross(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewRepository(client)
	ctx := context.Background()

	if err := repo.Upsert(ctx, Product{ID: "p1", Name: "Hammer", Category: "Tools", Stock: 5}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	applied, err := repo.SetStock(ctx, "p1", 3)
	if err != nil || applied != 3 {
		t.Fatalf("SetStock = %d, %v", applied, err)
	}

	if !isMember(t, client, "idx:category:in:tools", "p1") {
		t.Error("p1 left the in-stock bucket without crossing the boundary")
	}
	// The untouched bucket's counter does not move.
	if v := counter(t, client, "ver:category:out:tools"); v != "" {
		t.Errorf("ver:category:out:tools = %q, want unset", v)
	}
	if v := counter(t, client, "ver:category:in:tools"); v != "2" {
		t.Errorf("ver:category:in:tools = %q, want 2", v)
	}
}
