package command

import (
	"context"
	"fmt"

	"github.com/rankforge/rankforge-bot/internal/domain/guildconfig"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE CONFIG COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DeleteConfigCommand removes a guild's config override, reverting the
// guild to the default layer.
type DeleteConfigCommand struct {
	GuildID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c DeleteConfigCommand) Validate() error {
	if c.GuildID == "" {
		return shared.ErrMissingGuildID
	}
	return nil
}

// DeleteConfigResult contains the result of the deletion.
type DeleteConfigResult struct {
	// Deleted is false when the guild had no override to remove.
	Deleted bool
}

// DeleteConfigHandler handles the DeleteConfigCommand.
type DeleteConfigHandler struct {
	configRepo     guildconfig.Repository
	configProvider *guildconfig.Provider
	eventPublisher shared.EventPublisher
}

// NewDeleteConfigHandler creates a new DeleteConfigHandler.
func NewDeleteConfigHandler(
	configRepo guildconfig.Repository,
	configProvider *guildconfig.Provider,
	eventPublisher shared.EventPublisher,
) *DeleteConfigHandler {
	return &DeleteConfigHandler{
		configRepo:     configRepo,
		configProvider: configProvider,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the deletion. Deleting a guild with no override succeeds
// and reports Deleted=false; no event is published in that case.
func (h *DeleteConfigHandler) Handle(ctx context.Context, cmd DeleteConfigCommand) (*DeleteConfigResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("delete_config: validation failed: %w", err)
	}

	deleted, err := h.configRepo.Delete(ctx, cmd.GuildID)
	if err != nil {
		return nil, fmt.Errorf("delete_config: failed to delete config: %w", err)
	}

	if deleted {
		h.configProvider.Invalidate(ctx, cmd.GuildID)

		event := shared.NewConfigDeletedEvent(cmd.GuildID)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(event)
	}

	return &DeleteConfigResult{Deleted: deleted}, nil
}
