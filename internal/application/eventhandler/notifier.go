package eventhandler

import (
	"context"
	"log/slog"

	"github.com/rankforge/rankforge-bot/internal/domain/guildconfig"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// LEVEL UP NOTIFIER
// Announces level-ups in a text channel. Announcements are fire-and-forget:
// a failed send is logged and dropped, never retried against the ledger.
// ═══════════════════════════════════════════════════════════════════════════

// Messenger sends a plain message to a text channel.
type Messenger interface {
	SendMessage(ctx context.Context, channelID, content string) error
}

// GuildNamer resolves a guild's display name for the {server} placeholder.
type GuildNamer interface {
	GuildName(guildID string) string
}

// LevelUpNotifier reacts to level.up events by rendering and sending the
// guild's announcement template.
type LevelUpNotifier struct {
	configProvider *guildconfig.Provider
	messenger      Messenger
	guildNamer     GuildNamer
	logger         *slog.Logger
}

// NewLevelUpNotifier creates a new LevelUpNotifier.
func NewLevelUpNotifier(
	configProvider *guildconfig.Provider,
	messenger Messenger,
	guildNamer GuildNamer,
	logger *slog.Logger,
) *LevelUpNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LevelUpNotifier{
		configProvider: configProvider,
		messenger:      messenger,
		guildNamer:     guildNamer,
		logger:         logger.With("handler", "level_up_notifier"),
	}
}

// EventType returns the event type this handler subscribes to.
func (n *LevelUpNotifier) EventType() shared.EventType {
	return shared.EventLevelUp
}

// Handle renders and sends the announcement. The configured announcement
// channel wins; without one the message falls back to the channel of the
// triggering activity. Voice-driven level-ups carry no text channel, so a
// guild without a configured channel announces only message-driven ones.
func (n *LevelUpNotifier) Handle(event shared.Event) error {
	ctx := context.Background()

	up, ok := event.(shared.LevelUpEvent)
	if !ok {
		n.logger.Warn("received non-LevelUpEvent", "event_type", event.EventType())
		return nil
	}

	cfg, err := n.configProvider.Effective(ctx, up.GuildID)
	if err != nil {
		n.logger.Error("failed to resolve config",
			"guild_id", up.GuildID,
			"error", err,
		)
		return nil
	}
	if !cfg.NotifyLevelUp {
		return nil
	}

	channelID := cfg.NotifyChannelID
	if channelID == "" {
		channelID = up.ChannelID
	}
	if channelID == "" {
		return nil
	}

	serverName := ""
	if n.guildNamer != nil {
		serverName = n.guildNamer.GuildName(up.GuildID)
	}

	content := guildconfig.RenderTemplate(cfg.LevelUpMessageTemplate, guildconfig.TemplateVars{
		UserMention: "<@" + up.UserID + ">",
		Level:       up.NewLevel,
		XP:          up.XP,
		ServerName:  serverName,
	})

	if err := n.messenger.SendMessage(ctx, channelID, content); err != nil {
		n.logger.Warn("failed to send level up announcement",
			"guild_id", up.GuildID,
			"channel_id", channelID,
			"error", err,
		)
	}
	return nil
}
