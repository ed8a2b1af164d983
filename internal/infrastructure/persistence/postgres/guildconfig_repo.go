package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rankforge/rankforge-bot/internal/domain/guildconfig"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GUILD CONFIG REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// GuildConfigRepository implements guildconfig.Repository for PostgreSQL.
type GuildConfigRepository struct {
	conn *Connection
}

// NewGuildConfigRepository creates a new GuildConfigRepository.
func NewGuildConfigRepository(conn *Connection) *GuildConfigRepository {
	return &GuildConfigRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Get returns the stored override for a guild.
func (r *GuildConfigRepository) Get(ctx context.Context, guildID string) (*guildconfig.GuildConfig, error) {
	query := `
		SELECT guild_id, experience_per_message, experience_per_voice_minute,
			   message_cooldown_seconds, leaderboard_style,
			   ignored_role_ids, ignored_channel_ids,
			   role_multipliers, channel_multipliers, level_role_rewards,
			   role_removal_strategy, notify_level_up, notify_channel_id,
			   level_up_message_template, penalty_system_enabled, updated_at
		FROM guild_configs
		WHERE guild_id = $1
	`

	var cfg guildconfig.GuildConfig
	var style, strategy string
	var ignoredRoles, ignoredChannels, roleMults, channelMults, rewards []byte

	err := r.conn.QueryRow(ctx, query, guildID).Scan(
		&cfg.GuildID,
		&cfg.ExperiencePerMessage,
		&cfg.ExperiencePerVoiceMinute,
		&cfg.MessageCooldownSeconds,
		&style,
		&ignoredRoles,
		&ignoredChannels,
		&roleMults,
		&channelMults,
		&rewards,
		&strategy,
		&cfg.NotifyLevelUp,
		&cfg.NotifyChannelID,
		&cfg.LevelUpMessageTemplate,
		&cfg.PenaltySystemEnabled,
		&cfg.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guild config: %w", err)
	}

	cfg.LeaderboardStyle = guildconfig.ParseLeaderboardStyle(style)
	cfg.RoleRemovalStrategy = guildconfig.ParseRoleRemovalStrategy(strategy)

	if err := unmarshalJSONB(ignoredRoles, &cfg.IgnoredRoleIDs); err != nil {
		return nil, fmt.Errorf("failed to decode ignored roles: %w", err)
	}
	if err := unmarshalJSONB(ignoredChannels, &cfg.IgnoredChannelIDs); err != nil {
		return nil, fmt.Errorf("failed to decode ignored channels: %w", err)
	}
	if err := unmarshalJSONB(roleMults, &cfg.RoleMultipliers); err != nil {
		return nil, fmt.Errorf("failed to decode role multipliers: %w", err)
	}
	if err := unmarshalJSONB(channelMults, &cfg.ChannelMultipliers); err != nil {
		return nil, fmt.Errorf("failed to decode channel multipliers: %w", err)
	}
	if err := unmarshalJSONB(rewards, &cfg.LevelRoleRewards); err != nil {
		return nil, fmt.Errorf("failed to decode level role rewards: %w", err)
	}

	cfg.Normalize()
	return &cfg, nil
}

// Upsert stores the full config row for a guild.
func (r *GuildConfigRepository) Upsert(ctx context.Context, cfg *guildconfig.GuildConfig) error {
	query := `
		INSERT INTO guild_configs (
			guild_id, experience_per_message, experience_per_voice_minute,
			message_cooldown_seconds, leaderboard_style,
			ignored_role_ids, ignored_channel_ids,
			role_multipliers, channel_multipliers, level_role_rewards,
			role_removal_strategy, notify_level_up, notify_channel_id,
			level_up_message_template, penalty_system_enabled, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (guild_id) DO UPDATE SET
			experience_per_message = EXCLUDED.experience_per_message,
			experience_per_voice_minute = EXCLUDED.experience_per_voice_minute,
			message_cooldown_seconds = EXCLUDED.message_cooldown_seconds,
			leaderboard_style = EXCLUDED.leaderboard_style,
			ignored_role_ids = EXCLUDED.ignored_role_ids,
			ignored_channel_ids = EXCLUDED.ignored_channel_ids,
			role_multipliers = EXCLUDED.role_multipliers,
			channel_multipliers = EXCLUDED.channel_multipliers,
			level_role_rewards = EXCLUDED.level_role_rewards,
			role_removal_strategy = EXCLUDED.role_removal_strategy,
			notify_level_up = EXCLUDED.notify_level_up,
			notify_channel_id = EXCLUDED.notify_channel_id,
			level_up_message_template = EXCLUDED.level_up_message_template,
			penalty_system_enabled = EXCLUDED.penalty_system_enabled,
			updated_at = EXCLUDED.updated_at
	`

	ignoredRoles, err := json.Marshal(cfg.IgnoredRoleIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal ignored roles: %w", err)
	}
	ignoredChannels, err := json.Marshal(cfg.IgnoredChannelIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal ignored channels: %w", err)
	}
	roleMults, err := json.Marshal(cfg.RoleMultipliers)
	if err != nil {
		return fmt.Errorf("failed to marshal role multipliers: %w", err)
	}
	channelMults, err := json.Marshal(cfg.ChannelMultipliers)
	if err != nil {
		return fmt.Errorf("failed to marshal channel multipliers: %w", err)
	}
	rewards, err := json.Marshal(cfg.LevelRoleRewards)
	if err != nil {
		return fmt.Errorf("failed to marshal level role rewards: %w", err)
	}

	updatedAt := cfg.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = r.conn.Exec(ctx, query,
		cfg.GuildID,
		cfg.ExperiencePerMessage,
		cfg.ExperiencePerVoiceMinute,
		cfg.MessageCooldownSeconds,
		string(cfg.LeaderboardStyle),
		ignoredRoles,
		ignoredChannels,
		roleMults,
		channelMults,
		rewards,
		string(cfg.RoleRemovalStrategy),
		cfg.NotifyLevelUp,
		cfg.NotifyChannelID,
		cfg.LevelUpMessageTemplate,
		cfg.PenaltySystemEnabled,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert guild config: %w", err)
	}

	return nil
}

// Delete removes the stored override, reverting the guild to defaults.
func (r *GuildConfigRepository) Delete(ctx context.Context, guildID string) (bool, error) {
	result, err := r.conn.Exec(ctx, "DELETE FROM guild_configs WHERE guild_id = $1", guildID)
	if err != nil {
		return false, fmt.Errorf("failed to delete guild config: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// unmarshalJSONB decodes a JSONB column, treating empty input as absent.
func unmarshalJSONB(data []byte, dest interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
