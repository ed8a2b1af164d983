package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rankforge/rankforge-bot/internal/domain/guildconfig"
	"github.com/rankforge/rankforge-bot/internal/domain/reward"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON LEVEL DOWN HANDLER
// Strips reward roles the member no longer earns after a level decrease.
// Runs regardless of the guild's removal strategy: a role whose tier is no
// longer reached is not earned under any strategy.
// ═══════════════════════════════════════════════════════════════════════════

// OnLevelDownHandler reacts to level.down events.
type OnLevelDownHandler struct {
	configProvider *guildconfig.Provider
	roleManager    RoleManager
	memberRoles    MemberRolesProvider
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
}

// NewOnLevelDownHandler creates a new OnLevelDownHandler.
func NewOnLevelDownHandler(
	configProvider *guildconfig.Provider,
	roleManager RoleManager,
	memberRoles MemberRolesProvider,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *OnLevelDownHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnLevelDownHandler{
		configProvider: configProvider,
		roleManager:    roleManager,
		memberRoles:    memberRoles,
		eventPublisher: eventPublisher,
		logger:         logger.With("handler", "on_level_down"),
	}
}

// EventType returns the event type this handler subscribes to.
func (h *OnLevelDownHandler) EventType() shared.EventType {
	return shared.EventLevelDown
}

// Handle removes the roles of tiers above the member's new level.
func (h *OnLevelDownHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	down, ok := event.(shared.LevelDownEvent)
	if !ok {
		h.logger.Warn("received non-LevelDownEvent", "event_type", event.EventType())
		return nil
	}

	cfg, err := h.configProvider.Effective(ctx, down.GuildID)
	if err != nil {
		h.logger.Error("failed to resolve config",
			"guild_id", down.GuildID,
			"error", err,
		)
		return fmt.Errorf("resolve config: %w", err)
	}
	if len(cfg.LevelRoleRewards) == 0 {
		return nil
	}

	currentRoles, err := h.memberRoles.MemberRoles(ctx, down.GuildID, down.UserID)
	if err != nil {
		h.logger.Error("failed to read member roles",
			"guild_id", down.GuildID,
			"user_id", down.UserID,
			"error", err,
		)
		return fmt.Errorf("read member roles: %w", err)
	}

	removals := reward.ResolveLevelDown(down.NewLevel, cfg.LevelRoleRewards, currentRoles)
	for _, removal := range removals {
		auditReason := fmt.Sprintf("No longer earned at level %d", down.NewLevel)
		if err := h.roleManager.RemoveRole(ctx, down.GuildID, down.UserID, removal.RoleID, auditReason); err != nil {
			h.logger.Warn("failed to remove reward role",
				"guild_id", down.GuildID,
				"user_id", down.UserID,
				"role_id", removal.RoleID,
				"error", err,
			)
			continue
		}
		_ = h.eventPublisher.Publish(shared.NewRoleRemovedEvent(down.GuildID, down.UserID, removal.RoleID, removal.Reason))
	}

	return nil
}
