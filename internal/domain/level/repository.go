package level

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the persistence contract for the ledger.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines the persistence operations for user level records.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Record access
	// ─────────────────────────────────────────────────────────────────────────

	// Get returns the record for a member.
	// Returns shared.ErrRecordNotFound if no row exists.
	Get(ctx context.Context, guildID, userID string) (*UserLevelRecord, error)

	// GetOrCreate returns the record for a member, lazily inserting a
	// zero-state row on first read (upsert-on-read).
	GetOrCreate(ctx context.Context, guildID, userID string) (*UserLevelRecord, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Atomic mutations
	// ─────────────────────────────────────────────────────────────────────────

	// ApplyDelta atomically adds delta to a member's experience (floored at
	// zero) and writes the supplied level, as one conditional update keyed
	// by the unique (guild, user) pair. Returns the experience total after
	// the update. Concurrent callers each get their delta applied; the
	// returned total exposes any interleaving so the caller can issue a
	// corrective level write.
	// Returns shared.ErrRecordNotFound if the row vanished.
	ApplyDelta(ctx context.Context, guildID, userID string, delta, newLevel int) (int, error)

	// SetLevel writes only the level column. Used as the corrective write
	// after a detected grant race.
	SetLevel(ctx context.Context, guildID, userID string, newLevel int) error

	// TouchActivity sets the last-activity timestamp and increments the
	// message counter. Runs before the grant so the cooldown holds even
	// when the subsequent grant fails.
	TouchActivity(ctx context.Context, guildID, userID string, atMs int64) error

	// AddVoiceMillis increments the voice-time counter by the exact
	// elapsed duration.
	AddVoiceMillis(ctx context.Context, guildID, userID string, millis int64) error

	// ─────────────────────────────────────────────────────────────────────────
	// Ranking queries
	// ─────────────────────────────────────────────────────────────────────────

	// Rank returns the member's 1-based position by descending experience
	// among members with experience > 0. Members with zero experience get
	// rank 0 (unranked).
	Rank(ctx context.Context, guildID, userID string) (int, error)

	// Leaderboard returns the top records by experience descending,
	// ties broken by most-recently-updated first. Zero-experience records
	// are excluded. The caller clamps the limit.
	Leaderboard(ctx context.Context, guildID string, limit int) ([]*UserLevelRecord, error)

	// CountRanked returns the number of members with experience > 0.
	CountRanked(ctx context.Context, guildID string) (int, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Resets
	// ─────────────────────────────────────────────────────────────────────────

	// ResetUser zeroes a single record in place. The row survives.
	// Returns shared.ErrRecordNotFound if no row exists.
	ResetUser(ctx context.Context, guildID, userID string) error

	// DeleteGuild removes every record for a guild and returns the count.
	DeleteGuild(ctx context.Context, guildID string) (int64, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE INTERFACE
// Short-TTL cache shielding the repository from read pressure.
// Mutate-via-replace only: entries are replaced or evicted, never patched.
// ══════════════════════════════════════════════════════════════════════════════

// Cache defines the caching operations for level records and leaderboards.
type Cache interface {
	// GetRecord returns a cached record, or an error on cache miss.
	GetRecord(ctx context.Context, guildID, userID string) (*UserLevelRecord, error)

	// SetRecord replaces the cached record.
	SetRecord(ctx context.Context, record *UserLevelRecord, ttl time.Duration) error

	// DeleteRecord evicts a member's cached record.
	DeleteRecord(ctx context.Context, guildID, userID string) error

	// DeleteGuildRecords evicts every cached record for a guild.
	DeleteGuildRecords(ctx context.Context, guildID string) error

	// GetLeaderboard returns a cached leaderboard page, or an error on miss.
	GetLeaderboard(ctx context.Context, guildID string, limit int) ([]*UserLevelRecord, error)

	// SetLeaderboard replaces a cached leaderboard page.
	SetLeaderboard(ctx context.Context, guildID string, limit int, records []*UserLevelRecord, ttl time.Duration) error

	// DeleteLeaderboards evicts every cached leaderboard page for a guild.
	DeleteLeaderboards(ctx context.Context, guildID string) error
}
