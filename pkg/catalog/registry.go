package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
)

// IDRegistry maps a canonicalized natural key (name + category) to a stable
// surrogate id. Exactly one id is ever durably associated with a canonical
// identity, even under concurrent first-sight creation.
type IDRegistry struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewIDRegistry creates a natural-key registry.
func NewIDRegistry(redisClient *redis.Client, logger zerolog.Logger) *IDRegistry {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &IDRegistry{redis: redisClient, logger: logger}
}

// ResolveOrCreate looks up the id for (name, category), creating a fresh one
// on first sight. Creation is an atomic set-if-absent; losing the race to a
// concurrent creator re-reads and adopts the winner's id.
func (r *IDRegistry) ResolveOrCreate(ctx context.Context, name, category string) (string, error) {
	field := naturalKeyField(name, category)

	id, err := r.redis.HGet(ctx, keyNaturalKeyRegistry(), field).Result()
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("nk lookup: %w", err)
	}

	candidate := uuid.NewString()
	created, err := r.redis.HSetNX(ctx, keyNaturalKeyRegistry(), field, candidate).Result()
	if err != nil {
		return "", fmt.Errorf("nk create: %w", err)
	}
	if created {
		return candidate, nil
	}

	// Someone else created the mapping between our read and our write.
	registryRaces.Inc()
	winner, err := r.redis.HGet(ctx, keyNaturalKeyRegistry(), field).Result()
	if err != nil {
		return "", fmt.Errorf("nk re-read after race: %w", err)
	}
	r.logger.Debug().
		Str("name", name).
		Str("category", category).
		Str("id", winner).
		Msg("Natural-key creation lost race, adopted winner")
	return winner, nil
}

// RemapIfChanged moves the natural-key mapping when an identity-affecting
// edit happened. The old mapping is deleted only while it still points at
// this id, so a mapping some other entity already claimed is not clobbered.
// The new slot is last-write-wins.
func (r *IDRegistry) RemapIfChanged(ctx context.Context, oldName, oldCategory, newName, newCategory, id string) error {
	oldField := naturalKeyField(oldName, oldCategory)
	newField := naturalKeyField(newName, newCategory)
	if oldField == newField {
		return nil
	}

	mapped, err := r.redis.HGet(ctx, keyNaturalKeyRegistry(), oldField).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("nk remap read: %w", err)
	}
	if err == nil && mapped == id {
		if err := r.redis.HDel(ctx, keyNaturalKeyRegistry(), oldField).Err(); err != nil {
			return fmt.Errorf("nk remap delete: %w", err)
		}
	}

	if err := r.redis.HSet(ctx, keyNaturalKeyRegistry(), newField, id).Err(); err != nil {
		return fmt.Errorf("nk remap write: %w", err)
	}
	r.logger.Debug().Str("id", id).Msg("Natural-key mapping moved")
	return nil
}

// identityEscaper keeps the '|' join unambiguous: a separator occurring
// inside a part is escaped so ("a|b","c") and ("a","b|c") hash differently.
var identityEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`)

// naturalKeyField derives the registry hash field for an identity:
// canonicalize both parts, escape and join with '|', sha256, first 32 hex
// chars.
func naturalKeyField(name, category string) string {
	canonical := identityEscaper.Replace(canonicalIdentity(name)) + "|" +
		identityEscaper.Replace(canonicalIdentity(category))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:32]
}

// canonicalIdentity trims, collapses internal whitespace to single spaces,
// case-folds, and Unicode-normalizes (NFC) an identity part.
func canonicalIdentity(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return norm.NFC.String(strings.ToLower(s))
}
