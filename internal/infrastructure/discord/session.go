// Package discord wraps the gateway session and the REST surface the bot
// needs: role mutations, channel messages, and state lookups. Application
// code never touches discordgo directly; it sees the narrow interfaces
// defined in the application layer.
package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// NewSession creates a configured but unopened gateway session.
//
// The intent set is the minimum the bot needs: guild metadata, guild
// messages for the message gatekeeper, voice states for the presence
// tracker, and members for role reads. GuildMembers is a privileged
// intent and must be enabled in the developer portal.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: failed to create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMembers

	session.StateEnabled = true
	session.State.TrackVoice = true
	session.State.TrackMembers = true
	session.State.TrackRoles = true
	session.State.TrackChannels = true

	return session, nil
}
