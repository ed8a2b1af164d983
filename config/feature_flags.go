package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages process-level feature toggles with optional gradual
// rollout by guild. These are operator kill-switches, distinct from the
// per-guild settings admins control through the config commands: a flag
// turned off here wins regardless of what any guild configured.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	guildOverrides map[string]map[string]bool // guildID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Guilds are assigned based on a hash of their ID
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	GuildID string
}

// Predefined feature flag names.
const (
	// === Experience sources ===
	FeatureMessageExperience = "experience.messages" // Messages earn XP
	FeatureVoiceExperience   = "experience.voice"    // Voice time earns XP

	// === Side effects ===
	FeatureRoleRewards   = "rewards.roles"          // Reward role sync on level transitions
	FeatureAnnouncements = "notify.level_up"        // Level-up announcements
	FeaturePenalties     = "experience.penalties"   // Manual XP revocation
	FeatureLeaderboard   = "leaderboard.cache_warm" // Scheduled leaderboard warming
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:       make(map[string]*Feature),
		guildOverrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureMessageExperience] = &Feature{
		Name:           FeatureMessageExperience,
		Description:    "Grant experience for guild messages",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureVoiceExperience] = &Feature{
		Name:           FeatureVoiceExperience,
		Description:    "Grant experience for voice presence",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureRoleRewards] = &Feature{
		Name:           FeatureRoleRewards,
		Description:    "Sync reward roles on level transitions",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAnnouncements] = &Feature{
		Name:           FeatureAnnouncements,
		Description:    "Announce level-ups in text channels",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeaturePenalties] = &Feature{
		Name:           FeaturePenalties,
		Description:    "Allow manual experience revocation",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboard] = &Feature{
		Name:           FeatureLeaderboard,
		Description:    "Warm leaderboard caches on a schedule",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_EXPERIENCE_VOICE=false
// Example: FEATURE_REWARDS_ROLES=50 (50% rollout by guild)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "experience.voice" -> "FEATURE_EXPERIENCE_VOICE"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check guild overrides first
	if ctx != nil && ctx.GuildID != "" {
		if overrides, ok := ff.guildOverrides[ctx.GuildID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.GuildID != "" {
		return ff.isInRollout(ctx.GuildID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a guild is in the rollout percentage.
// Uses consistent hashing so guilds stay in their bucket.
func (ff *FeatureFlags) isInRollout(guildID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(guildID))
	hash := h.Sum32()

	bucket := int(hash % 100)
	return bucket < percent
}

// SetGuildOverride sets a feature override for a specific guild.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetGuildOverride(guildID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.guildOverrides[guildID]; !ok {
		ff.guildOverrides[guildID] = make(map[string]bool)
	}
	ff.guildOverrides[guildID][featureName] = enabled
}

// ClearGuildOverrides removes all overrides for a guild.
func (ff *FeatureFlags) ClearGuildOverrides(guildID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.guildOverrides, guildID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
