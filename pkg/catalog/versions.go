package catalog

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// VersionLedger reads the monotonic change counters bumped by the index
// transactions. Counters are pure change detectors: values are only ever
// compared for equality, never ordered across keys.
type VersionLedger struct {
	redis *redis.Client
}

// NewVersionLedger creates a ledger over the given Redis client.
func NewVersionLedger(redisClient *redis.Client) *VersionLedger {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &VersionLedger{redis: redisClient}
}

// EntityVersion returns the product's version counter as stored text.
// A never-bumped key yields ""; callers must treat that as unknown,
// not as "no change".
func (v *VersionLedger) EntityVersion(ctx context.Context, id string) (string, error) {
	return v.get(ctx, keyVerProduct(id))
}

// CategoryVersion returns the whole-category counter, or the in/out-of-stock
// bucket counter when inStock is set. The category is normalized here so the
// key matches what the index transactions bump.
func (v *VersionLedger) CategoryVersion(ctx context.Context, category string, inStock *bool) (string, error) {
	norm := NormalizeCategory(category)
	key := keyVerCategory(norm)
	if inStock != nil {
		if *inStock {
			key = keyVerCategoryIn(norm)
		} else {
			key = keyVerCategoryOut(norm)
		}
	}
	return v.get(ctx, key)
}

func (v *VersionLedger) get(ctx context.Context, key string) (string, error) {
	val, err := v.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}
