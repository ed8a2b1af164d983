package guildconfig

// ══════════════════════════════════════════════════════════════════════════════
// TWO-LAYER RESOLUTION
// The effective config for a guild is the process-wide default layer with
// the guild's stored override merged on top. The merge is an explicit
// function, not struct spreading, so the provenance of every effective
// field is testable.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultTemplate is the level-up announcement used when no custom
// template is configured. Placeholders: {user}, {level}, {xp}, {server}.
const DefaultTemplate = "{user} reached level {level}! 🎉"

// Defaults is the process-wide default layer, seeded from app configuration.
type Defaults struct {
	ExperiencePerMessage     int
	ExperiencePerVoiceMinute int
	MessageCooldownSeconds   int
	LeaderboardStyle         LeaderboardStyle
	LevelUpMessageTemplate   string
	NotifyLevelUp            bool
}

// NewDefaults returns the built-in default layer.
func NewDefaults() Defaults {
	return Defaults{
		ExperiencePerMessage:     15,
		ExperiencePerVoiceMinute: 5,
		MessageCooldownSeconds:   60,
		LeaderboardStyle:         DefaultLeaderboardStyle,
		LevelUpMessageTemplate:   DefaultTemplate,
		NotifyLevelUp:            true,
	}
}

// Config materializes the default layer as a full config for a guild.
// This is what a guild runs on before its first stored override.
func (d Defaults) Config(guildID string) *GuildConfig {
	cfg := &GuildConfig{
		GuildID:                  guildID,
		ExperiencePerMessage:     d.ExperiencePerMessage,
		ExperiencePerVoiceMinute: d.ExperiencePerVoiceMinute,
		MessageCooldownSeconds:   d.MessageCooldownSeconds,
		LeaderboardStyle:         d.LeaderboardStyle,
		RoleRemovalStrategy:      DefaultRoleRemovalStrategy,
		NotifyLevelUp:            d.NotifyLevelUp,
		LevelUpMessageTemplate:   d.LevelUpMessageTemplate,
	}
	cfg.Normalize()
	return cfg
}

// Resolve merges a guild's stored override on top of the default layer.
// A nil override yields the pure default config. Stored rows are full
// materialized configs (the first update pins the default layer), so every
// scalar comes from the override as-is: an admin-set zero rate disables
// that accrual path instead of resurrecting the default. Only empty enum
// and template strings fall back, covering rows written before those
// columns existed. The result is always normalized.
func Resolve(defaults Defaults, override *GuildConfig) *GuildConfig {
	if override == nil {
		return defaults.Config("")
	}

	effective := override.Clone()

	if effective.LeaderboardStyle == "" {
		effective.LeaderboardStyle = defaults.LeaderboardStyle
	}
	if effective.LevelUpMessageTemplate == "" {
		effective.LevelUpMessageTemplate = defaults.LevelUpMessageTemplate
	}

	effective.Normalize()
	return effective
}
