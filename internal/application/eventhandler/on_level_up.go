// Package eventhandler contains the subscribers wired to the domain event
// bus. Handlers are the reactive part of the system: a level transition is
// committed to the ledger first, and these handlers carry out the side
// effects (role mutations, announcements) afterwards. A failed side effect
// never rolls back the ledger.
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
// GATEWAY INTERFACES
// Narrow views of the Discord session, defined here so handlers can be
// tested without a live gateway.
// ═══════════════════════════════════════════════════════════════════════════

// RoleManager mutates a member's roles.
type RoleManager interface {
	// AddRole adds a role to a member. The reason lands in the audit log.
	AddRole(ctx context.Context, guildID, userID, roleID, reason string) error

	// RemoveRole removes a role from a member.
	RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error
}

// MemberRolesProvider reads a member's current role IDs.
type MemberRolesProvider interface {
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
}

// ═══════════════════════════════════════════════════════════════════════════
// ON LEVEL UP HANDLER
// Applies the reward role diff for a level-up. Role mutations are
// best-effort and independent: one denied mutation does not stop the rest,
// and an event is published only for mutations that actually landed.
// ═══════════════════════════════════════════════════════════════════════════

// OnLevelUpHandler reacts to level.up events by syncing reward roles.
type OnLevelUpHandler struct {
	configProvider *guildconfig.Provider
	roleManager    RoleManager
	memberRoles    MemberRolesProvider
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
}

// NewOnLevelUpHandler creates a new OnLevelUpHandler.
func NewOnLevelUpHandler(
	configProvider *guildconfig.Provider,
	roleManager RoleManager,
	memberRoles MemberRolesProvider,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *OnLevelUpHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnLevelUpHandler{
		configProvider: configProvider,
		roleManager:    roleManager,
		memberRoles:    memberRoles,
		eventPublisher: eventPublisher,
		logger:         logger.With("handler", "on_level_up"),
	}
}

// EventType returns the event type this handler subscribes to.
func (h *OnLevelUpHandler) EventType() shared.EventType {
	return shared.EventLevelUp
}

// Handle implements the role sync for one level-up.
func (h *OnLevelUpHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	up, ok := event.(shared.LevelUpEvent)
	if !ok {
		h.logger.Warn("received non-LevelUpEvent", "event_type", event.EventType())
		return nil
	}

	cfg, err := h.configProvider.Effective(ctx, up.GuildID)
	if err != nil {
		h.logger.Error("failed to resolve config",
			"guild_id", up.GuildID,
			"error", err,
		)
		return fmt.Errorf("resolve config: %w", err)
	}
	if len(cfg.LevelRoleRewards) == 0 {
		return nil
	}

	currentRoles, err := h.memberRoles.MemberRoles(ctx, up.GuildID, up.UserID)
	if err != nil {
		h.logger.Error("failed to read member roles",
			"guild_id", up.GuildID,
			"user_id", up.UserID,
			"error", err,
		)
		return fmt.Errorf("read member roles: %w", err)
	}

	diff := reward.Resolve(up.OldLevel, up.NewLevel, cfg.LevelRoleRewards, currentRoles, cfg.RoleRemovalStrategy)
	if diff.IsEmpty() {
		return nil
	}

	h.applyDiff(ctx, up.GuildID, up.UserID, diff)
	return nil
}

// applyDiff carries out the role mutations. Additions run before removals
// so a role that appears on both sides ends up removed, which is the final
// state the resolver intends.
func (h *OnLevelUpHandler) applyDiff(ctx context.Context, guildID, userID string, diff reward.Diff) {
	for _, award := range diff.Add {
		auditReason := fmt.Sprintf("Level %d reward", award.Level)
		if err := h.roleManager.AddRole(ctx, guildID, userID, award.RoleID, auditReason); err != nil {
			h.logger.Warn("failed to add reward role",
				"guild_id", guildID,
				"user_id", userID,
				"role_id", award.RoleID,
				"error", err,
			)
			continue
		}
		_ = h.eventPublisher.Publish(shared.NewRoleAwardedEvent(guildID, userID, award.RoleID, award.Level))
	}

	for _, removal := range diff.Remove {
		if err := h.roleManager.RemoveRole(ctx, guildID, userID, removal.RoleID, "Reward role superseded"); err != nil {
			h.logger.Warn("failed to remove reward role",
				"guild_id", guildID,
				"user_id", userID,
				"role_id", removal.RoleID,
				"error", err,
			)
			continue
		}
		_ = h.eventPublisher.Publish(shared.NewRoleRemovedEvent(guildID, userID, removal.RoleID, removal.Reason))
	}
}
