// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/rankforge/rankforge-bot/internal/domain/level"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRANT EXPERIENCE COMMAND
// The single write path for positive experience. Every source (message,
// voice, manual adjustment) converges here so the ledger invariants are
// enforced in one place.
// ══════════════════════════════════════════════════════════════════════════════

// Experience sources carried on xp.granted events.
const (
	SourceMessage = "message"
	SourceVoice   = "voice"
	SourceManual  = "manual"
)

// GrantExperienceCommand contains the data to grant experience to a member.
type GrantExperienceCommand struct {
	// GuildID and UserID identify the target record.
	GuildID string
	UserID  string

	// Amount is the experience to add. Must be positive.
	Amount int

	// Source identifies what earned the experience (message, voice, manual).
	Source string

	// ChannelID is the channel of the triggering activity, if any. Carried
	// on the level.up event for notification fallback.
	ChannelID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c GrantExperienceCommand) Validate() error {
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

// GrantExperienceResult contains the result of a grant.
type GrantExperienceResult struct {
	// OldLevel and NewLevel describe the transition; equal when the grant
	// stayed inside one level.
	OldLevel int
	NewLevel int

	// NewTotal is the experience total after the grant.
	NewTotal int

	// LeveledUp reports whether a level.up event was emitted.
	LeveledUp bool

	// GrantedAt is when the grant was applied.
	GrantedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GrantExperienceHandler handles the GrantExperienceCommand.
type GrantExperienceHandler struct {
	levelRepo      level.Repository
	levelCache     level.Cache // optional
	eventPublisher shared.EventPublisher
}

// NewGrantExperienceHandler creates a new GrantExperienceHandler.
func NewGrantExperienceHandler(
	levelRepo level.Repository,
	levelCache level.Cache,
	eventPublisher shared.EventPublisher,
) *GrantExperienceHandler {
	return &GrantExperienceHandler{
		levelRepo:      levelRepo,
		levelCache:     levelCache,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the grant.
//
// The experience delta and the recomputed level are written in one atomic
// update. The update returns the stored total; when a concurrent grant
// interleaved, the stored total differs from the one this handler computed
// and a corrective level write follows. No grant is ever dropped.
func (h *GrantExperienceHandler) Handle(ctx context.Context, cmd GrantExperienceCommand) (*GrantExperienceResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("grant_experience: validation failed: %w", err)
	}

	record, err := h.levelRepo.GetOrCreate(ctx, cmd.GuildID, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("grant_experience: failed to load record: %w", err)
	}

	oldLevel := record.Level
	expectedTotal := record.XP + cmd.Amount
	computedLevel := level.LevelFromExperience(expectedTotal)

	storedTotal, err := h.levelRepo.ApplyDelta(ctx, cmd.GuildID, cmd.UserID, cmd.Amount, computedLevel)
	if err != nil {
		return nil, fmt.Errorf("grant_experience: failed to apply delta: %w", err)
	}

	newLevel := computedLevel
	if storedTotal != expectedTotal {
		// Another writer interleaved. The delta itself is safe (the update
		// is relative) but the level we wrote may be stale.
		actualLevel := level.LevelFromExperience(storedTotal)
		if actualLevel != computedLevel {
			if err := h.levelRepo.SetLevel(ctx, cmd.GuildID, cmd.UserID, actualLevel); err != nil {
				return nil, fmt.Errorf("grant_experience: corrective level write failed: %w", err)
			}
		}
		newLevel = actualLevel
	}

	h.evictCaches(ctx, cmd.GuildID, cmd.UserID)

	granted := shared.NewXPGrantedEvent(cmd.GuildID, cmd.UserID, cmd.Amount, storedTotal, cmd.Source)
	if cmd.CorrelationID != "" {
		granted.BaseEvent = granted.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(granted)

	leveledUp := newLevel > oldLevel
	if leveledUp {
		up := shared.NewLevelUpEvent(cmd.GuildID, cmd.UserID, oldLevel, newLevel, storedTotal, cmd.ChannelID)
		if cmd.CorrelationID != "" {
			up.BaseEvent = up.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(up)
	} else if newLevel < oldLevel {
		// Possible only through a racing revocation; the transition is
		// still reported truthfully.
		_ = h.eventPublisher.Publish(shared.NewLevelDownEvent(cmd.GuildID, cmd.UserID, oldLevel, newLevel, storedTotal))
	}

	return &GrantExperienceResult{
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		NewTotal:  storedTotal,
		LeveledUp: leveledUp,
		GrantedAt: time.Now().UTC(),
	}, nil
}

// evictCaches drops the member's cached record and the guild's leaderboard
// pages. The next read repopulates from PostgreSQL.
func (h *GrantExperienceHandler) evictCaches(ctx context.Context, guildID, userID string) {
	if h.levelCache == nil {
		return
	}
	_ = h.levelCache.DeleteRecord(ctx, guildID, userID)
	_ = h.levelCache.DeleteLeaderboards(ctx, guildID)
}
