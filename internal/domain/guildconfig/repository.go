package guildconfig

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines the persistence operations for guild configs.
type Repository interface {
	// Get returns the stored override for a guild.
	// Returns shared.ErrConfigNotFound if the guild has never been
	// configured; callers resolve against the default layer.
	Get(ctx context.Context, guildID string) (*GuildConfig, error)

	// Upsert stores the full config row for a guild, creating it on
	// first write.
	Upsert(ctx context.Context, cfg *GuildConfig) error

	// Delete removes the stored override, reverting the guild to the
	// default layer. Returns false if there was nothing to delete.
	Delete(ctx context.Context, guildID string) (bool, error)
}

// Cache defines the caching operations for effective guild configs.
type Cache interface {
	// Get returns a cached effective config, or an error on cache miss.
	Get(ctx context.Context, guildID string) (*GuildConfig, error)

	// Set replaces the cached effective config.
	Set(ctx context.Context, cfg *GuildConfig, ttl time.Duration) error

	// Delete evicts a guild's cached config.
	Delete(ctx context.Context, guildID string) error
}
