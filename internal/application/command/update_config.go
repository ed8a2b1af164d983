package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rankforge/rankforge-bot/internal/domain/guildconfig"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE CONFIG COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateConfigCommand applies a partial update to a guild's config override.
type UpdateConfigCommand struct {
	GuildID string
	Patch   guildconfig.Patch

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c UpdateConfigCommand) Validate() error {
	if c.GuildID == "" {
		return shared.ErrMissingGuildID
	}
	if c.Patch.IsEmpty() {
		return shared.ErrEmptyPatch
	}
	return nil
}

// UpdateConfigResult contains the result of the update.
type UpdateConfigResult struct {
	Config        *guildconfig.GuildConfig
	ChangedFields []string
	UpdatedAt     time.Time
}

// UpdateConfigHandler handles the UpdateConfigCommand.
type UpdateConfigHandler struct {
	configRepo     guildconfig.Repository
	configProvider *guildconfig.Provider
	eventPublisher shared.EventPublisher
}

// NewUpdateConfigHandler creates a new UpdateConfigHandler.
func NewUpdateConfigHandler(
	configRepo guildconfig.Repository,
	configProvider *guildconfig.Provider,
	eventPublisher shared.EventPublisher,
) *UpdateConfigHandler {
	return &UpdateConfigHandler{
		configRepo:     configRepo,
		configProvider: configProvider,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the update.
//
// The patch lands on the stored override when one exists, otherwise on a
// materialized copy of the default layer: the first partial update a guild
// ever makes pins the defaults it was running on, so later default changes
// do not silently alter that guild.
func (h *UpdateConfigHandler) Handle(ctx context.Context, cmd UpdateConfigCommand) (*UpdateConfigResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_config: validation failed: %w", err)
	}

	cfg, err := h.configRepo.Get(ctx, cmd.GuildID)
	if err != nil {
		if !errors.Is(err, shared.ErrConfigNotFound) {
			return nil, fmt.Errorf("update_config: failed to load config: %w", err)
		}
		cfg = h.configProvider.DefaultLayer().Config(cmd.GuildID)
	}

	changed := cmd.Patch.Apply(cfg)
	cfg.UpdatedAt = time.Now().UTC()

	if err := h.configRepo.Upsert(ctx, cfg); err != nil {
		return nil, fmt.Errorf("update_config: failed to store config: %w", err)
	}

	h.configProvider.Invalidate(ctx, cmd.GuildID)

	event := shared.NewConfigUpdatedEvent(cmd.GuildID, changed)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &UpdateConfigResult{
		Config:        cfg,
		ChangedFields: changed,
		UpdatedAt:     cfg.UpdatedAt,
	}, nil
}
