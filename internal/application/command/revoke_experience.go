package command

import (
	"context"
	"fmt"
	"time"

	"github.com/rankforge/rankforge-bot/internal/domain/guildconfig"
	"github.com/rankforge/rankforge-bot/internal/domain/level"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REVOKE EXPERIENCE COMMAND
// Manual experience removal. There is no automatic penalty trigger: this
// command only runs when an operator explicitly invokes it, and only in
// guilds that opted into the penalty system.
// ══════════════════════════════════════════════════════════════════════════════

// RevokeExperienceCommand contains the data to revoke experience.
type RevokeExperienceCommand struct {
	// GuildID and UserID identify the target record.
	GuildID string
	UserID  string

	// Amount is the experience to remove. Must be positive; the stored
	// total is floored at zero.
	Amount int

	// Reason documents why the revocation happened.
	Reason string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RevokeExperienceCommand) Validate() error {
	if c.GuildID == "" {
		return shared.ErrMissingGuildID
	}
	if c.UserID == "" {
		return shared.ErrMissingUserID
	}
	if c.Amount <= 0 {
		return shared.ErrNonPositiveAmount
	}
	return nil
}

// RevokeExperienceResult contains the result of a revocation.
type RevokeExperienceResult struct {
	OldLevel    int
	NewLevel    int
	NewTotal    int
	LeveledDown bool
	RevokedAt   time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RevokeExperienceHandler handles the RevokeExperienceCommand.
type RevokeExperienceHandler struct {
	levelRepo      level.Repository
	levelCache     level.Cache // optional
	configProvider *guildconfig.Provider
	eventPublisher shared.EventPublisher
}

// NewRevokeExperienceHandler creates a new RevokeExperienceHandler.
func NewRevokeExperienceHandler(
	levelRepo level.Repository,
	levelCache level.Cache,
	configProvider *guildconfig.Provider,
	eventPublisher shared.EventPublisher,
) *RevokeExperienceHandler {
	return &RevokeExperienceHandler{
		levelRepo:      levelRepo,
		levelCache:     levelCache,
		configProvider: configProvider,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the revocation. The guild's penalty gate is checked
// before any write; a disabled penalty system leaves the ledger untouched.
func (h *RevokeExperienceHandler) Handle(ctx context.Context, cmd RevokeExperienceCommand) (*RevokeExperienceResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("revoke_experience: validation failed: %w", err)
	}

	cfg, err := h.configProvider.Effective(ctx, cmd.GuildID)
	if err != nil {
		return nil, fmt.Errorf("revoke_experience: failed to resolve config: %w", err)
	}
	if !cfg.PenaltySystemEnabled {
		return nil, shared.ErrPenaltiesDisabled
	}

	record, err := h.levelRepo.Get(ctx, cmd.GuildID, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("revoke_experience: failed to load record: %w", err)
	}

	oldLevel := record.Level
	expectedTotal := record.XP - cmd.Amount
	if expectedTotal < 0 {
		expectedTotal = 0
	}
	computedLevel := level.LevelFromExperience(expectedTotal)

	storedTotal, err := h.levelRepo.ApplyDelta(ctx, cmd.GuildID, cmd.UserID, -cmd.Amount, computedLevel)
	if err != nil {
		return nil, fmt.Errorf("revoke_experience: failed to apply delta: %w", err)
	}

	newLevel := computedLevel
	if storedTotal != expectedTotal {
		actualLevel := level.LevelFromExperience(storedTotal)
		if actualLevel != computedLevel {
			if err := h.levelRepo.SetLevel(ctx, cmd.GuildID, cmd.UserID, actualLevel); err != nil {
				return nil, fmt.Errorf("revoke_experience: corrective level write failed: %w", err)
			}
		}
		newLevel = actualLevel
	}

	if h.levelCache != nil {
		_ = h.levelCache.DeleteRecord(ctx, cmd.GuildID, cmd.UserID)
		_ = h.levelCache.DeleteLeaderboards(ctx, cmd.GuildID)
	}

	revoked := shared.NewXPRevokedEvent(cmd.GuildID, cmd.UserID, cmd.Amount, storedTotal, cmd.Reason)
	if cmd.CorrelationID != "" {
		revoked.BaseEvent = revoked.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(revoked)

	leveledDown := newLevel < oldLevel
	if leveledDown {
		_ = h.eventPublisher.Publish(shared.NewLevelDownEvent(cmd.GuildID, cmd.UserID, oldLevel, newLevel, storedTotal))
	} else if newLevel > oldLevel {
		_ = h.eventPublisher.Publish(shared.NewLevelUpEvent(cmd.GuildID, cmd.UserID, oldLevel, newLevel, storedTotal, ""))
	}

	return &RevokeExperienceResult{
		OldLevel:    oldLevel,
		NewLevel:    newLevel,
		NewTotal:    storedTotal,
		LeveledDown: leveledDown,
		RevokedAt:   time.Now().UTC(),
	}, nil
}
