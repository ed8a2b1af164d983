package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/rankforge/rankforge-bot/internal/application/command"
	"github.com/rankforge/rankforge-bot/internal/application/presence"
)

// ══════════════════════════════════════════════════════════════════════════════
// GATEWAY
// Binds gateway events to the application layer. discordgo dispatches each
// handler on its own goroutine, so handlers only need per-event timeouts.
// ══════════════════════════════════════════════════════════════════════════════

// handlerTimeout bounds one event's trip through the application layer.
const handlerTimeout = 10 * time.Second

// Gateway owns the session lifecycle and the event bindings.
type Gateway struct {
	session  *discordgo.Session
	messages *command.RecordMessageHandler
	tracker  *presence.Tracker
	logger   *slog.Logger
}

// NewGateway wires the event handlers onto the session. The session is not
// opened; call Open.
func NewGateway(
	session *discordgo.Session,
	messages *command.RecordMessageHandler,
	tracker *presence.Tracker,
	logger *slog.Logger,
) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gateway{
		session:  session,
		messages: messages,
		tracker:  tracker,
		logger:   logger.With("component", "discord_gateway"),
	}

	session.AddHandler(g.onReady)
	session.AddHandler(g.onMessageCreate)
	session.AddHandler(g.onVoiceStateUpdate)

	return g
}

// Open connects to the gateway.
func (g *Gateway) Open() error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("discord: failed to open gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (g *Gateway) Close() error {
	return g.session.Close()
}

// onReady fires on connect and reconnect. Voice sessions are rebuilt from
// the fresh state snapshot so members already in voice start earning.
func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	g.logger.Info("gateway ready",
		"username", r.User.Username,
		"guilds", len(r.Guilds),
	)
	g.tracker.Rebuild()
}

func (g *Gateway) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}

	var roleIDs []string
	if m.Member != nil {
		roleIDs = m.Member.Roles
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	_, err := g.messages.Handle(ctx, command.RecordMessageCommand{
		GuildID:       m.GuildID,
		UserID:        m.Author.ID,
		ChannelID:     m.ChannelID,
		Content:       m.Content,
		AuthorIsBot:   m.Author.Bot,
		MemberRoleIDs: roleIDs,
	})
	if err != nil {
		g.logger.Error("failed to record message",
			"guild_id", m.GuildID,
			"user_id", m.Author.ID,
			"error", err,
		)
	}
}

func (g *Gateway) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State.User != nil && v.UserID == s.State.User.ID {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	g.tracker.HandleVoiceState(ctx, presence.VoiceState{
		GuildID:    v.GuildID,
		UserID:     v.UserID,
		ChannelID:  v.ChannelID,
		Deafened:   v.Deaf || v.SelfDeaf,
		Suppressed: v.Suppress,
	})
}
