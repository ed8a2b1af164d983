// Package guildconfig contains the per-guild leveling configuration:
// rates, cooldowns, ignore lists, multipliers, the role reward table,
// and level-up notification settings.
package guildconfig

import (
	"time"

	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// Invalid enum input is coerced to the safe default rather than rejected:
// a guild admin typo must never disable leveling for the whole guild.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardStyle selects how the leaderboard is rendered.
type LeaderboardStyle string

const (
	// StyleCard renders the leaderboard as a generated image card.
	StyleCard LeaderboardStyle = "card"

	// StyleText renders the leaderboard as a plain text embed.
	StyleText LeaderboardStyle = "text"
)

// DefaultLeaderboardStyle is used when the configured value is unknown.
const DefaultLeaderboardStyle = StyleCard

// IsValid checks if the style is one of the enumerated values.
func (s LeaderboardStyle) IsValid() bool {
	return s == StyleCard || s == StyleText
}

// ParseLeaderboardStyle coerces a raw value to a valid style.
func ParseLeaderboardStyle(raw string) LeaderboardStyle {
	s := LeaderboardStyle(raw)
	if !s.IsValid() {
		return DefaultLeaderboardStyle
	}
	return s
}

// RoleRemovalStrategy governs which previously earned reward roles are
// retained after a level-up.
type RoleRemovalStrategy string

const (
	// StrategyKeepAll keeps every earned reward role.
	StrategyKeepAll RoleRemovalStrategy = "keep_all"

	// StrategyHighestOnly keeps only the role for the highest reached tier.
	StrategyHighestOnly RoleRemovalStrategy = "highest_only"

	// StrategyRemovePrevious removes roles from tiers below the new level.
	StrategyRemovePrevious RoleRemovalStrategy = "remove_previous"
)

// DefaultRoleRemovalStrategy is used when the configured value is unknown.
const DefaultRoleRemovalStrategy = StrategyKeepAll

// IsValid checks if the strategy is one of the enumerated values.
func (s RoleRemovalStrategy) IsValid() bool {
	return s == StrategyKeepAll || s == StrategyHighestOnly || s == StrategyRemovePrevious
}

// ParseRoleRemovalStrategy coerces a raw value to a valid strategy.
func ParseRoleRemovalStrategy(raw string) RoleRemovalStrategy {
	s := RoleRemovalStrategy(raw)
	if !s.IsValid() {
		return DefaultRoleRemovalStrategy
	}
	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// GUILD CONFIG
// ══════════════════════════════════════════════════════════════════════════════

// GuildConfig holds every leveling tunable for one guild.
// Map keys are Discord snowflakes (role/channel IDs) or level numbers,
// serialized as strings to keep the storage contract explicit.
type GuildConfig struct {
	GuildID string `json:"guild_id"`

	// Rates
	ExperiencePerMessage     int `json:"experience_per_message"`
	ExperiencePerVoiceMinute int `json:"experience_per_voice_minute"`

	// MessageCooldownSeconds is the minimum gap between two eligible
	// messages from the same member. Always ≥ 1.
	MessageCooldownSeconds int `json:"message_cooldown_seconds"`

	LeaderboardStyle LeaderboardStyle `json:"leaderboard_style"`

	// Ignore lists
	IgnoredRoleIDs    []string `json:"ignored_role_ids"`
	IgnoredChannelIDs []string `json:"ignored_channel_ids"`

	// Multipliers, keyed by role/channel snowflake.
	RoleMultipliers    map[string]float64 `json:"role_multipliers"`
	ChannelMultipliers map[string]float64 `json:"channel_multipliers"`

	// LevelRoleRewards maps a level threshold to the role awarded at it.
	LevelRoleRewards map[int]string `json:"level_role_rewards"`

	RoleRemovalStrategy RoleRemovalStrategy `json:"role_removal_strategy"`

	// Notification settings
	NotifyLevelUp          bool   `json:"notify_level_up"`
	NotifyChannelID        string `json:"notify_channel_id"` // empty ⇒ origin channel
	LevelUpMessageTemplate string `json:"level_up_message_template"`

	// PenaltySystemEnabled gates manual experience revocation. There is no
	// automatic penalty trigger; revocation is an explicit external call.
	PenaltySystemEnabled bool `json:"penalty_system_enabled"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the config identity.
func (c *GuildConfig) Validate() error {
	if c.GuildID == "" {
		return shared.ErrMissingGuildID
	}
	return nil
}

// Normalize coerces every field into its valid range: enums fall back to
// defaults, the cooldown is floored at 1 second, multipliers at 0, and
// non-positive reward levels are dropped. Nil maps and slices become empty
// so callers never branch on nil.
func (c *GuildConfig) Normalize() {
	c.LeaderboardStyle = ParseLeaderboardStyle(string(c.LeaderboardStyle))
	c.RoleRemovalStrategy = ParseRoleRemovalStrategy(string(c.RoleRemovalStrategy))

	if c.MessageCooldownSeconds < 1 {
		c.MessageCooldownSeconds = 1
	}
	if c.ExperiencePerMessage < 0 {
		c.ExperiencePerMessage = 0
	}
	if c.ExperiencePerVoiceMinute < 0 {
		c.ExperiencePerVoiceMinute = 0
	}

	if c.IgnoredRoleIDs == nil {
		c.IgnoredRoleIDs = []string{}
	}
	if c.IgnoredChannelIDs == nil {
		c.IgnoredChannelIDs = []string{}
	}

	if c.RoleMultipliers == nil {
		c.RoleMultipliers = map[string]float64{}
	}
	for id, m := range c.RoleMultipliers {
		if m < 0 {
			c.RoleMultipliers[id] = 0
		}
	}
	if c.ChannelMultipliers == nil {
		c.ChannelMultipliers = map[string]float64{}
	}
	for id, m := range c.ChannelMultipliers {
		if m < 0 {
			c.ChannelMultipliers[id] = 0
		}
	}

	if c.LevelRoleRewards == nil {
		c.LevelRoleRewards = map[int]string{}
	}
	for lvl, roleID := range c.LevelRoleRewards {
		if lvl <= 0 || roleID == "" {
			delete(c.LevelRoleRewards, lvl)
		}
	}
}

// IsChannelIgnored reports whether a channel is excluded from earning XP.
func (c *GuildConfig) IsChannelIgnored(channelID string) bool {
	for _, id := range c.IgnoredChannelIDs {
		if id == channelID {
			return true
		}
	}
	return false
}

// HasIgnoredRole reports whether any of the member's roles is excluded.
func (c *GuildConfig) HasIgnoredRole(memberRoles []string) bool {
	for _, ignored := range c.IgnoredRoleIDs {
		for _, held := range memberRoles {
			if ignored == held {
				return true
			}
		}
	}
	return false
}

// RoleMultiplier returns the maximum configured multiplier across the
// member's roles, or 1.0 when none of their roles has one.
func (c *GuildConfig) RoleMultiplier(memberRoles []string) float64 {
	best := 0.0
	found := false
	for _, held := range memberRoles {
		if m, ok := c.RoleMultipliers[held]; ok {
			if !found || m > best {
				best = m
				found = true
			}
		}
	}
	if !found {
		return float64(shared.DefaultMultiplier)
	}
	return best
}

// ChannelMultiplier returns the channel's configured multiplier, or 1.0.
func (c *GuildConfig) ChannelMultiplier(channelID string) float64 {
	if m, ok := c.ChannelMultipliers[channelID]; ok {
		return m
	}
	return float64(shared.DefaultMultiplier)
}

// Clone returns a deep copy of the config.
func (c *GuildConfig) Clone() *GuildConfig {
	clone := *c

	clone.IgnoredRoleIDs = append([]string(nil), c.IgnoredRoleIDs...)
	clone.IgnoredChannelIDs = append([]string(nil), c.IgnoredChannelIDs...)

	clone.RoleMultipliers = make(map[string]float64, len(c.RoleMultipliers))
	for k, v := range c.RoleMultipliers {
		clone.RoleMultipliers[k] = v
	}
	clone.ChannelMultipliers = make(map[string]float64, len(c.ChannelMultipliers))
	for k, v := range c.ChannelMultipliers {
		clone.ChannelMultipliers[k] = v
	}
	clone.LevelRoleRewards = make(map[int]string, len(c.LevelRoleRewards))
	for k, v := range c.LevelRoleRewards {
		clone.LevelRoleRewards[k] = v
	}

	return &clone
}
