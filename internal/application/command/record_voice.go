package command

import (
	"context"
	"fmt"
	"math"

	"github.com/rankforge/rankforge-bot/internal/domain/guildconfig"
	"github.com/rankforge/rankforge-bot/internal/domain/level"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
	"github.com/rankforge/rankforge-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD VOICE COMMAND
// Converts a closed voice session into experience. The presence tracker
// measures sessions; this command owns the accounting and the grant.
// ══════════════════════════════════════════════════════════════════════════════

// RecordVoiceCommand describes one closed voice session.
type RecordVoiceCommand struct {
	// GuildID and UserID identify the member who held the session.
	GuildID string
	UserID  string

	// ChannelID is the voice channel the session was spent in.
	ChannelID string

	// DurationMs is the session length in milliseconds.
	DurationMs int64

	// MemberRoleIDs are the member's current role IDs, used for ignore
	// checks and the role multiplier.
	MemberRoleIDs []string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordVoiceCommand) Validate() error {
	if c.GuildID == "" {
		return shared.ErrMissingGuildID
	}
	if c.UserID == "" {
		return shared.ErrMissingUserID
	}
	if c.DurationMs <= 0 {
		return shared.ErrNonPositiveAmount
	}
	return nil
}

// RecordVoiceResult reports the accounting outcome.
type RecordVoiceResult struct {
	// Granted is true when the session earned experience.
	Granted bool

	// SkipReason names why no experience was granted. The session time is
	// still accounted either way.
	SkipReason string

	// Amount is the experience granted.
	Amount int

	// Grant is the underlying grant result, when one happened.
	Grant *GrantExperienceResult
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordVoiceHandler handles the RecordVoiceCommand.
type RecordVoiceHandler struct {
	levelRepo      level.Repository
	configProvider *guildconfig.Provider
	grantHandler   *GrantExperienceHandler
}

// NewRecordVoiceHandler creates a new RecordVoiceHandler.
func NewRecordVoiceHandler(
	levelRepo level.Repository,
	configProvider *guildconfig.Provider,
	grantHandler *GrantExperienceHandler,
) *RecordVoiceHandler {
	return &RecordVoiceHandler{
		levelRepo:      levelRepo,
		configProvider: configProvider,
		grantHandler:   grantHandler,
	}
}

// Handle accounts a closed voice session.
//
// The voice-time counter is bumped before the grant decision: a guild with
// voice experience disabled still keeps accurate voice statistics.
func (h *RecordVoiceHandler) Handle(ctx context.Context, cmd RecordVoiceCommand) (*RecordVoiceResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_voice: validation failed: %w", err)
	}

	if _, err := h.levelRepo.GetOrCreate(ctx, cmd.GuildID, cmd.UserID); err != nil {
		return nil, fmt.Errorf("record_voice: failed to load record: %w", err)
	}
	if err := h.levelRepo.AddVoiceMillis(ctx, cmd.GuildID, cmd.UserID, cmd.DurationMs); err != nil {
		return nil, fmt.Errorf("record_voice: failed to account voice time: %w", err)
	}

	cfg, err := h.configProvider.Effective(ctx, cmd.GuildID)
	if err != nil {
		return nil, fmt.Errorf("record_voice: failed to resolve config: %w", err)
	}
	if cfg.ExperiencePerVoiceMinute <= 0 {
		return &RecordVoiceResult{SkipReason: SkipZeroRate}, nil
	}
	if cfg.IsChannelIgnored(cmd.ChannelID) {
		return &RecordVoiceResult{SkipReason: SkipIgnoredChannel}, nil
	}
	if cfg.HasIgnoredRole(cmd.MemberRoleIDs) {
		return &RecordVoiceResult{SkipReason: SkipIgnoredRole}, nil
	}

	amount := voiceAmount(cfg, cmd.DurationMs, cmd.MemberRoleIDs)

	grant, err := h.grantHandler.Handle(ctx, GrantExperienceCommand{
		GuildID:       cmd.GuildID,
		UserID:        cmd.UserID,
		Amount:        amount,
		Source:        SourceVoice,
		ChannelID:     cmd.ChannelID,
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("record_voice: grant failed: %w", err)
	}

	return &RecordVoiceResult{
		Granted: true,
		Amount:  amount,
		Grant:   grant,
	}, nil
}

// voiceAmount computes the grant for a session: the per-minute rate scaled
// by the fractional minute count and the member's best role multiplier,
// floored, never below 1. Channel multipliers do not apply to voice.
func voiceAmount(cfg *guildconfig.GuildConfig, durationMs int64, roleIDs []string) int {
	minutes := timeutil.MillisToMinutes(durationMs)
	multiplier := float64(shared.Multiplier(cfg.RoleMultiplier(roleIDs)).Clamp())

	amount := int(math.Floor(float64(cfg.ExperiencePerVoiceMinute) * minutes * multiplier))
	if amount < 1 {
		amount = 1
	}
	return amount
}
