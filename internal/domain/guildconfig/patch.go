package guildconfig

// ══════════════════════════════════════════════════════════════════════════════
// PARTIAL UPDATES
// Configs are mutated field-by-field: a patch carries only the fields the
// admin touched, nil pointers mean "leave unchanged".
// ══════════════════════════════════════════════════════════════════════════════

// Patch is a partial update to a guild config.
type Patch struct {
	ExperiencePerMessage     *int
	ExperiencePerVoiceMinute *int
	MessageCooldownSeconds   *int
	LeaderboardStyle         *string
	IgnoredRoleIDs           *[]string
	IgnoredChannelIDs        *[]string
	RoleMultipliers          *map[string]float64
	ChannelMultipliers       *map[string]float64
	LevelRoleRewards         *map[int]string
	RoleRemovalStrategy      *string
	NotifyLevelUp            *bool
	NotifyChannelID          *string
	LevelUpMessageTemplate   *string
	PenaltySystemEnabled     *bool
}

// IsEmpty reports whether the patch touches no fields.
func (p Patch) IsEmpty() bool {
	return p.ExperiencePerMessage == nil &&
		p.ExperiencePerVoiceMinute == nil &&
		p.MessageCooldownSeconds == nil &&
		p.LeaderboardStyle == nil &&
		p.IgnoredRoleIDs == nil &&
		p.IgnoredChannelIDs == nil &&
		p.RoleMultipliers == nil &&
		p.ChannelMultipliers == nil &&
		p.LevelRoleRewards == nil &&
		p.RoleRemovalStrategy == nil &&
		p.NotifyLevelUp == nil &&
		p.NotifyChannelID == nil &&
		p.LevelUpMessageTemplate == nil &&
		p.PenaltySystemEnabled == nil
}

// Apply writes the patch onto a config and returns the names of the fields
// that were set. Enum fields go through coercion, so an invalid value
// lands as the safe default rather than an error. The config is normalized
// after the patch.
func (p Patch) Apply(cfg *GuildConfig) []string {
	changed := make([]string, 0, 4)

	if p.ExperiencePerMessage != nil {
		cfg.ExperiencePerMessage = *p.ExperiencePerMessage
		changed = append(changed, "experience_per_message")
	}
	if p.ExperiencePerVoiceMinute != nil {
		cfg.ExperiencePerVoiceMinute = *p.ExperiencePerVoiceMinute
		changed = append(changed, "experience_per_voice_minute")
	}
	if p.MessageCooldownSeconds != nil {
		cfg.MessageCooldownSeconds = *p.MessageCooldownSeconds
		changed = append(changed, "message_cooldown_seconds")
	}
	if p.LeaderboardStyle != nil {
		cfg.LeaderboardStyle = ParseLeaderboardStyle(*p.LeaderboardStyle)
		changed = append(changed, "leaderboard_style")
	}
	if p.IgnoredRoleIDs != nil {
		cfg.IgnoredRoleIDs = append([]string(nil), (*p.IgnoredRoleIDs)...)
		changed = append(changed, "ignored_role_ids")
	}
	if p.IgnoredChannelIDs != nil {
		cfg.IgnoredChannelIDs = append([]string(nil), (*p.IgnoredChannelIDs)...)
		changed = append(changed, "ignored_channel_ids")
	}
	if p.RoleMultipliers != nil {
		cfg.RoleMultipliers = copyFloatMap(*p.RoleMultipliers)
		changed = append(changed, "role_multipliers")
	}
	if p.ChannelMultipliers != nil {
		cfg.ChannelMultipliers = copyFloatMap(*p.ChannelMultipliers)
		changed = append(changed, "channel_multipliers")
	}
	if p.LevelRoleRewards != nil {
		rewards := make(map[int]string, len(*p.LevelRoleRewards))
		for lvl, roleID := range *p.LevelRoleRewards {
			rewards[lvl] = roleID
		}
		cfg.LevelRoleRewards = rewards
		changed = append(changed, "level_role_rewards")
	}
	if p.RoleRemovalStrategy != nil {
		cfg.RoleRemovalStrategy = ParseRoleRemovalStrategy(*p.RoleRemovalStrategy)
		changed = append(changed, "role_removal_strategy")
	}
	if p.NotifyLevelUp != nil {
		cfg.NotifyLevelUp = *p.NotifyLevelUp
		changed = append(changed, "notify_level_up")
	}
	if p.NotifyChannelID != nil {
		cfg.NotifyChannelID = *p.NotifyChannelID
		changed = append(changed, "notify_channel_id")
	}
	if p.LevelUpMessageTemplate != nil {
		cfg.LevelUpMessageTemplate = *p.LevelUpMessageTemplate
		changed = append(changed, "level_up_message_template")
	}
	if p.PenaltySystemEnabled != nil {
		cfg.PenaltySystemEnabled = *p.PenaltySystemEnabled
		changed = append(changed, "penalty_system_enabled")
	}

	cfg.Normalize()
	return changed
}

func copyFloatMap(src map[string]float64) map[string]float64 {
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
