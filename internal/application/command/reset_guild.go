package command

import (
	"context"
	"fmt"
	"time"

	"github.com/rankforge/rankforge-bot/internal/domain/level"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET GUILD COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ResetGuildCommand removes every level record of a guild. Rows are deleted
// outright; members re-enter the ledger lazily on their next activity.
type ResetGuildCommand struct {
	GuildID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ResetGuildCommand) Validate() error {
	if c.GuildID == "" {
		return shared.ErrMissingGuildID
	}
	return nil
}

// ResetGuildResult contains the result of the reset.
type ResetGuildResult struct {
	RecordsRemoved int64
	ResetAt        time.Time
}

// ResetGuildHandler handles the ResetGuildCommand.
type ResetGuildHandler struct {
	levelRepo      level.Repository
	levelCache     level.Cache // optional
	eventPublisher shared.EventPublisher
}

// NewResetGuildHandler creates a new ResetGuildHandler.
func NewResetGuildHandler(
	levelRepo level.Repository,
	levelCache level.Cache,
	eventPublisher shared.EventPublisher,
) *ResetGuildHandler {
	return &ResetGuildHandler{
		levelRepo:      levelRepo,
		levelCache:     levelCache,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the reset. Resetting a guild with no records is a no-op
// that still succeeds; the event reports zero removals.
func (h *ResetGuildHandler) Handle(ctx context.Context, cmd ResetGuildCommand) (*ResetGuildResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("reset_guild: validation failed: %w", err)
	}

	removed, err := h.levelRepo.DeleteGuild(ctx, cmd.GuildID)
	if err != nil {
		return nil, fmt.Errorf("reset_guild: failed to delete records: %w", err)
	}

	if h.levelCache != nil {
		_ = h.levelCache.DeleteGuildRecords(ctx, cmd.GuildID)
		_ = h.levelCache.DeleteLeaderboards(ctx, cmd.GuildID)
	}

	event := shared.NewGuildResetEvent(cmd.GuildID, removed)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &ResetGuildResult{
		RecordsRemoved: removed,
		ResetAt:        time.Now().UTC(),
	}, nil
}
