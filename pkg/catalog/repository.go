package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Store is the persistence contract consumed by the service and HTTP layers.
type Store interface {
	GetOne(ctx context.Context, id string) (Product, error)
	GetMany(ctx context.Context, ids []string) ([]Product, error)
	ListIDs(ctx context.Context, category string, inStock *bool, page, size int) ([]string, error)
	Upsert(ctx context.Context, p Product) error
	SetStock(ctx context.Context, id string, stock int) (int, error)
}

// Repository implements Store on Redis. All mutations go through the Lua
// transactions in scripts.go; nothing performs an unguarded
// read-modify-write against the index structures.
type Repository struct {
	redis *redis.Client
}

var _ Store = (*Repository)(nil)

// NewRepository creates a Redis-backed product repository.
func NewRepository(redisClient *redis.Client) *Repository {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Repository{redis: redisClient}
}

// GetOne reads a product hash. Returns ErrNotFound for an absent id.
func (r *Repository) GetOne(ctx context.Context, id string) (Product, error) {
	m, err := r.redis.HGetAll(ctx, keyProduct(id)).Result()
	if err != nil {
		return Product{}, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(m) == 0 {
		return Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return FromRedis(m), nil
}

// GetMany reads many product hashes in one pipelined round trip.
// Absent ids are silently dropped from the result.
func (r *Repository) GetMany(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	pipe := r.redis.Pipeline()
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, keyProduct(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis pipeline: %w", err)
	}

	products := make([]Product, 0, len(ids))
	for _, cmd := range cmds {
		m, err := cmd.Result()
		if err != nil || len(m) == 0 {
			continue
		}
		products = append(products, FromRedis(m))
	}
	return products, nil
}

// ListIDs returns one page of ids for a category (or one of its stock
// buckets), in ascending lexicographic order. Pages are 1-based; page
// numbers below 1 are clamped to 1. A range beyond the index is an empty
// result, not an error.
func (r *Repository) ListIDs(ctx context.Context, category string, inStock *bool, page, size int) ([]string, error) {
	if size <= 0 {
		return nil, nil
	}
	if page < 1 {
		page = 1
	}

	norm := NormalizeCategory(category)
	zkey, skey := keyZidxCategory(norm), keyIdxCategory(norm)
	if inStock != nil {
		if *inStock {
			zkey, skey = keyZidxCategoryIn(norm), keyIdxCategoryIn(norm)
		} else {
			zkey, skey = keyZidxCategoryOut(norm), keyIdxCategoryOut(norm)
		}
	}

	start := int64(page-1) * int64(size)
	stop := start + int64(size) - 1

	res, err := seedAndRangeScript.Run(ctx, r.redis,
		[]string{zkey, skey},
		strconv.FormatInt(start, 10), strconv.FormatInt(stop, 10),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("seed-and-range script: %w", err)
	}

	raw, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("seed-and-range script: unexpected reply %T", res)
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

// Upsert writes the full field set and reconciles all derived indexes in
// one atomic transaction. ID and category must be set.
func (r *Repository) Upsert(ctx context.Context, p Product) error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidProduct)
	}
	if p.Category == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidProduct)
	}

	norm := NormalizeCategory(p.Category)
	keys := []string{
		keyProduct(p.ID),
		keyIdxAll(),
		keyIdxCategory(norm),
		keyZidxCategory(norm),
		keyIdxCategoryIn(norm),
		keyZidxCategoryIn(norm),
		keyIdxCategoryOut(norm),
		keyZidxCategoryOut(norm),
		keyVerProduct(p.ID),
		keyVerCategory(norm),
		keyVerCategoryIn(norm),
		keyVerCategoryOut(norm),
	}

	args := make([]interface{}, 0, 3+len(redisFieldOrder)*2)
	args = append(args, p.ID, p.Category, strconv.Itoa(p.Stock))
	for _, fv := range p.toRedisPairs() {
		args = append(args, fv)
	}

	res, err := upsertScript.Run(ctx, r.redis, keys, args...).Result()
	if err != nil {
		indexTxFailures.WithLabelValues("upsert").Inc()
		return indexTxErr("upsert", p.ID, err)
	}
	if n, ok := res.(int64); !ok || n != 1 {
		indexTxFailures.WithLabelValues("upsert").Inc()
		return fmt.Errorf("%w: upsert %s: unexpected reply %v", ErrIndexTransaction, p.ID, res)
	}
	upsertsTotal.Inc()
	return nil
}

// SetStock atomically writes a new stock value and moves bucket membership
// when the in/out-of-stock boundary is crossed. Returns the applied value,
// or ErrNotFound when the product does not exist.
func (r *Repository) SetStock(ctx context.Context, id string, stock int) (int, error) {
	if stock < 0 {
		return 0, fmt.Errorf("%w: stock must be >= 0", ErrInvalidProduct)
	}

	keys := []string{keyProduct(id), keyVerProduct(id)}
	res, err := setStockScript.Run(ctx, r.redis, keys, id, strconv.Itoa(stock)).Result()
	if err != nil {
		if isScriptNotFound(err) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		indexTxFailures.WithLabelValues("set_stock").Inc()
		return 0, indexTxErr("set_stock", id, err)
	}
	applied, ok := res.(int64)
	if !ok {
		indexTxFailures.WithLabelValues("set_stock").Inc()
		return 0, fmt.Errorf("%w: set_stock %s: unexpected reply %v", ErrIndexTransaction, id, res)
	}
	stockUpdatesTotal.Inc()
	return int(applied), nil
}
