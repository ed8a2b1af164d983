package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/rankforge/rankforge-bot/internal/domain/shared"
	"github.com/rankforge/rankforge-bot/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHANNEL MESSENGER
// ══════════════════════════════════════════════════════════════════════════════

// ChannelMessenger sends plain messages to text channels. Implements the
// application layer's Messenger interface.
type ChannelMessenger struct {
	session *discordgo.Session
	retrier *retry.Retrier
	logger  *slog.Logger
}

// NewChannelMessenger creates a ChannelMessenger.
func NewChannelMessenger(session *discordgo.Session, logger *slog.Logger) *ChannelMessenger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelMessenger{
		session: session,
		retrier: retry.DiscordRetrier(),
		logger:  logger.With("component", "discord_messenger"),
	}
}

// SendMessage sends a message to a channel.
func (m *ChannelMessenger) SendMessage(ctx context.Context, channelID, content string) error {
	err := m.retrier.Do(ctx, func(context.Context) error {
		_, sendErr := m.session.ChannelMessageSend(channelID, content)
		return classifyRESTError(sendErr)
	})
	if err != nil {
		m.logger.Warn("channel send failed",
			"channel_id", channelID,
			"error", err,
		)
		return shared.ErrChannelSendFailed
	}
	return nil
}
