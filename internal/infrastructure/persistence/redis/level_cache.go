package redis

import (
	"context"
	"time"

	"github.com/rankforge/rankforge-bot/internal/domain/level"
)

// LevelCache implements level.Cache using the generic Redis Cache.
type LevelCache struct {
	cache *Cache
}

// NewLevelCache creates a new LevelCache.
func NewLevelCache(cache *Cache) *LevelCache {
	return &LevelCache{
		cache: cache,
	}
}

// GetRecord returns a cached level record. Returns ErrCacheMiss on miss.
func (c *LevelCache) GetRecord(ctx context.Context, guildID, userID string) (*level.UserLevelRecord, error) {
	var rec level.UserLevelRecord
	if err := c.cache.Get(ctx, RecordKey(guildID, userID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetRecord replaces the cached record for a member.
func (c *LevelCache) SetRecord(ctx context.Context, record *level.UserLevelRecord, ttl time.Duration) error {
	if record == nil {
		return nil
	}
	return c.cache.Set(ctx, RecordKey(record.GuildID, record.UserID), record, ttl)
}

// DeleteRecord evicts a member's cached record.
func (c *LevelCache) DeleteRecord(ctx context.Context, guildID, userID string) error {
	return c.cache.Delete(ctx, RecordKey(guildID, userID))
}

// DeleteGuildRecords evicts every cached record for a guild.
func (c *LevelCache) DeleteGuildRecords(ctx context.Context, guildID string) error {
	return c.cache.DeleteByPattern(ctx, PrefixLevel+guildID+":*")
}

// GetLeaderboard returns a cached leaderboard page. Returns ErrCacheMiss
// on miss; an empty page is a valid cached value.
func (c *LevelCache) GetLeaderboard(ctx context.Context, guildID string, limit int) ([]*level.UserLevelRecord, error) {
	var records []*level.UserLevelRecord
	if err := c.cache.Get(ctx, LeaderboardPageKey(guildID, limit), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SetLeaderboard replaces a cached leaderboard page.
func (c *LevelCache) SetLeaderboard(ctx context.Context, guildID string, limit int, records []*level.UserLevelRecord, ttl time.Duration) error {
	if records == nil {
		records = []*level.UserLevelRecord{}
	}
	return c.cache.Set(ctx, LeaderboardPageKey(guildID, limit), records, ttl)
}

// DeleteLeaderboards evicts every cached leaderboard page for a guild.
func (c *LevelCache) DeleteLeaderboards(ctx context.Context, guildID string) error {
	return c.cache.DeleteByPattern(ctx, PrefixLeaderboard+guildID+":*")
}
