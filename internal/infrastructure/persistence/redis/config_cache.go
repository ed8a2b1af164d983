package redis

import (
	"context"
	"time"

	"github.com/rankforge/rankforge-bot/internal/domain/guildconfig"
)

// ConfigCache implements guildconfig.Cache using the generic Redis Cache.
// Cached values are the resolved effective configs, not the raw overrides,
// so the gatekeeper hot path never re-runs default resolution.
type ConfigCache struct {
	cache *Cache
}

// NewConfigCache creates a new ConfigCache.
func NewConfigCache(cache *Cache) *ConfigCache {
	return &ConfigCache{
		cache: cache,
	}
}

// Get returns a cached effective config. Returns ErrCacheMiss on miss.
func (c *ConfigCache) Get(ctx context.Context, guildID string) (*guildconfig.GuildConfig, error) {
	var cfg guildconfig.GuildConfig
	if err := c.cache.Get(ctx, ConfigKey(guildID), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Set replaces the cached effective config for a guild.
func (c *ConfigCache) Set(ctx context.Context, cfg *guildconfig.GuildConfig, ttl time.Duration) error {
	if cfg == nil {
		return nil
	}
	return c.cache.Set(ctx, ConfigKey(cfg.GuildID), cfg, ttl)
}

// Delete evicts a guild's cached config.
func (c *ConfigCache) Delete(ctx context.Context, guildID string) error {
	return c.cache.Delete(ctx, ConfigKey(guildID))
}
