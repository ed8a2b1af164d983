// Package postgres implements the PostgreSQL persistence layer for RankForge.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE USER LEVELS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create user_levels table
-- Version: 001

-- One row per (guild, member) pair. The composite uniqueness is the
-- invariant protecting against duplicate ledgers for the same member.
CREATE TABLE IF NOT EXISTS user_levels (
    guild_id VARCHAR(20) NOT NULL,
    user_id VARCHAR(20) NOT NULL,
    xp INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 0,
    last_activity_ms BIGINT NOT NULL DEFAULT 0,
    total_messages BIGINT NOT NULL DEFAULT 0,
    total_voice_ms BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (guild_id, user_id),

    -- Constraints for data integrity
    CONSTRAINT valid_xp CHECK (xp >= 0),
    CONSTRAINT valid_level CHECK (level >= 0),
    CONSTRAINT valid_counters CHECK (total_messages >= 0 AND total_voice_ms >= 0)
);

-- Rank and leaderboard queries: top-N by xp descending within a guild,
-- ties broken by most recent update.
CREATE INDEX IF NOT EXISTS idx_user_levels_guild_xp
    ON user_levels(guild_id, xp DESC, updated_at DESC);

-- Partial index keeps zero-XP rows out of ranking scans entirely.
CREATE INDEX IF NOT EXISTS idx_user_levels_ranked
    ON user_levels(guild_id, xp DESC) WHERE xp > 0;
`

const migration001Down = `
DROP INDEX IF EXISTS idx_user_levels_ranked;
DROP INDEX IF EXISTS idx_user_levels_guild_xp;
DROP TABLE IF EXISTS user_levels;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE GUILD CONFIGS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create guild_configs table
-- Version: 002

-- One stored override per guild. Guilds without a row run on the built-in
-- default layer; deleting the row reverts the guild to defaults.
CREATE TABLE IF NOT EXISTS guild_configs (
    guild_id VARCHAR(20) PRIMARY KEY,
    experience_per_message INTEGER NOT NULL DEFAULT 0,
    experience_per_voice_minute INTEGER NOT NULL DEFAULT 0,
    message_cooldown_seconds INTEGER NOT NULL DEFAULT 0,
    leaderboard_style VARCHAR(10) NOT NULL DEFAULT 'card',
    ignored_role_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
    ignored_channel_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
    role_multipliers JSONB NOT NULL DEFAULT '{}'::jsonb,
    channel_multipliers JSONB NOT NULL DEFAULT '{}'::jsonb,
    level_role_rewards JSONB NOT NULL DEFAULT '{}'::jsonb,
    role_removal_strategy VARCHAR(20) NOT NULL DEFAULT 'keep_all',
    notify_level_up BOOLEAN NOT NULL DEFAULT TRUE,
    notify_channel_id VARCHAR(20) NOT NULL DEFAULT '',
    level_up_message_template TEXT NOT NULL DEFAULT '',
    penalty_system_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Invalid values are coerced in the domain layer before they reach
    -- the row; the constraints are a second line of defense.
    CONSTRAINT valid_style CHECK (leaderboard_style IN ('card', 'text')),
    CONSTRAINT valid_strategy CHECK (role_removal_strategy IN ('keep_all', 'highest_only', 'remove_previous')),
    CONSTRAINT valid_rates CHECK (experience_per_message >= 0 AND experience_per_voice_minute >= 0),
    CONSTRAINT valid_cooldown CHECK (message_cooldown_seconds >= 0)
);
`

const migration002Down = `
DROP TABLE IF EXISTS guild_configs;
`
