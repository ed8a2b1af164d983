package command

import (
	"context"
	"fmt"
	"time"

	"github.com/rankforge/rankforge-bot/internal/domain/level"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET USER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ResetUserCommand zeroes one member's record. The row survives so the
// member keeps their place in lazy-creation terms; only the counters reset.
type ResetUserCommand struct {
	GuildID string
	UserID  string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ResetUserCommand) Validate() error {
	if c.GuildID == "" {
		return shared.ErrMissingGuildID
	}
	if c.UserID == "" {
		return shared.ErrMissingUserID
	}
	return nil
}

// ResetUserResult contains the result of the reset.
type ResetUserResult struct {
	ResetAt time.Time
}

// ResetUserHandler handles the ResetUserCommand.
type ResetUserHandler struct {
	levelRepo      level.Repository
	levelCache     level.Cache // optional
	eventPublisher shared.EventPublisher
}

// NewResetUserHandler creates a new ResetUserHandler.
func NewResetUserHandler(
	levelRepo level.Repository,
	levelCache level.Cache,
	eventPublisher shared.EventPublisher,
) *ResetUserHandler {
	return &ResetUserHandler{
		levelRepo:      levelRepo,
		levelCache:     levelCache,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the reset.
func (h *ResetUserHandler) Handle(ctx context.Context, cmd ResetUserCommand) (*ResetUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("reset_user: validation failed: %w", err)
	}

	if err := h.levelRepo.ResetUser(ctx, cmd.GuildID, cmd.UserID); err != nil {
		return nil, fmt.Errorf("reset_user: failed to reset record: %w", err)
	}

	if h.levelCache != nil {
		_ = h.levelCache.DeleteRecord(ctx, cmd.GuildID, cmd.UserID)
		_ = h.levelCache.DeleteLeaderboards(ctx, cmd.GuildID)
	}

	event := shared.NewUserResetEvent(cmd.GuildID, cmd.UserID)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &ResetUserResult{ResetAt: time.Now().UTC()}, nil
}
