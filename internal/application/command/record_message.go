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
// RECORD MESSAGE COMMAND
// The message gatekeeper: every guild message flows through here, and the
// handler decides whether it earns experience. Rejections are the common
// case and must stay cheap.
// ══════════════════════════════════════════════════════════════════════════════

// Skip reasons reported on a rejected message.
const (
	SkipBot            = "bot_author"
	SkipUntracked      = "untracked"
	SkipEmptyContent   = "empty_content"
	SkipZeroRate       = "zero_rate"
	SkipIgnoredChannel = "ignored_channel"
	SkipIgnoredRole    = "ignored_role"
	SkipCooldown       = "cooldown"
)

// RecordMessageCommand describes one observed guild message.
type RecordMessageCommand struct {
	// GuildID, UserID and ChannelID locate the message. A message outside
	// a guild (DM) arrives with an empty GuildID and is never tracked.
	GuildID   string
	UserID    string
	ChannelID string

	// Content is the raw message text. Attachment-only and sticker-only
	// messages arrive with empty content and earn nothing.
	Content string

	// AuthorIsBot marks messages from bot accounts, which never earn
	// experience.
	AuthorIsBot bool

	// MemberRoleIDs are the author's current role IDs, used for ignore
	// checks and multipliers.
	MemberRoleIDs []string

	// NowMs is the observation timestamp in epoch milliseconds. Zero means
	// "now"; tests inject fixed values.
	NowMs int64

	// CorrelationID for tracing.
	CorrelationID string
}

// RecordMessageResult reports what the gatekeeper decided.
type RecordMessageResult struct {
	// Granted is true when the message earned experience.
	Granted bool

	// SkipReason names why the message earned nothing. Empty when granted.
	SkipReason string

	// Amount is the experience granted.
	Amount int

	// Grant is the underlying grant result, when one happened.
	Grant *GrantExperienceResult
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordMessageHandler handles the RecordMessageCommand.
type RecordMessageHandler struct {
	levelRepo      level.Repository
	configProvider *guildconfig.Provider
	grantHandler   *GrantExperienceHandler
}

// NewRecordMessageHandler creates a new RecordMessageHandler.
func NewRecordMessageHandler(
	levelRepo level.Repository,
	configProvider *guildconfig.Provider,
	grantHandler *GrantExperienceHandler,
) *RecordMessageHandler {
	return &RecordMessageHandler{
		levelRepo:      levelRepo,
		configProvider: configProvider,
		grantHandler:   grantHandler,
	}
}

// Handle runs the gatekeeper decision chain for one message.
//
// The activity touch happens before the grant and regardless of the grant's
// outcome: once a message passes the cooldown check, the cooldown clock
// restarts even if the grant itself later fails.
func (h *RecordMessageHandler) Handle(ctx context.Context, cmd RecordMessageCommand) (*RecordMessageResult, error) {
	if cmd.AuthorIsBot {
		return &RecordMessageResult{SkipReason: SkipBot}, nil
	}
	if cmd.GuildID == "" || cmd.UserID == "" {
		return &RecordMessageResult{SkipReason: SkipUntracked}, nil
	}
	if cmd.Content == "" {
		return &RecordMessageResult{SkipReason: SkipEmptyContent}, nil
	}

	cfg, err := h.configProvider.Effective(ctx, cmd.GuildID)
	if err != nil {
		return nil, fmt.Errorf("record_message: failed to resolve config: %w", err)
	}
	if cfg.ExperiencePerMessage <= 0 {
		return &RecordMessageResult{SkipReason: SkipZeroRate}, nil
	}
	if cfg.IsChannelIgnored(cmd.ChannelID) {
		return &RecordMessageResult{SkipReason: SkipIgnoredChannel}, nil
	}
	if cfg.HasIgnoredRole(cmd.MemberRoleIDs) {
		return &RecordMessageResult{SkipReason: SkipIgnoredRole}, nil
	}

	record, err := h.levelRepo.GetOrCreate(ctx, cmd.GuildID, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("record_message: failed to load record: %w", err)
	}

	nowMs := cmd.NowMs
	if nowMs == 0 {
		nowMs = timeutil.NowMillis()
	}

	if !timeutil.CooldownExpired(record.LastActivityMs, int64(cfg.MessageCooldownSeconds), nowMs) {
		return &RecordMessageResult{SkipReason: SkipCooldown}, nil
	}

	if err := h.levelRepo.TouchActivity(ctx, cmd.GuildID, cmd.UserID, nowMs); err != nil {
		return nil, fmt.Errorf("record_message: failed to touch activity: %w", err)
	}

	amount := messageAmount(cfg, cmd.ChannelID, cmd.MemberRoleIDs)

	grant, err := h.grantHandler.Handle(ctx, GrantExperienceCommand{
		GuildID:       cmd.GuildID,
		UserID:        cmd.UserID,
		Amount:        amount,
		Source:        SourceMessage,
		ChannelID:     cmd.ChannelID,
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("record_message: grant failed: %w", err)
	}

	return &RecordMessageResult{
		Granted: true,
		Amount:  amount,
		Grant:   grant,
	}, nil
}

// messageAmount computes the grant for one eligible message: the guild's
// base rate scaled by the member's best role multiplier and the channel
// multiplier, floored, never below 1.
func messageAmount(cfg *guildconfig.GuildConfig, channelID string, roleIDs []string) int {
	multiplier := cfg.RoleMultiplier(roleIDs) * cfg.ChannelMultiplier(channelID)
	multiplier = float64(shared.Multiplier(multiplier).Clamp())

	amount := int(math.Floor(float64(cfg.ExperiencePerMessage) * multiplier))
	if amount < 1 {
		amount = 1
	}
	return amount
}
