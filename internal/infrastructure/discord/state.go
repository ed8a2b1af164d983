package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/rankforge/rankforge-bot/internal/application/presence"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATE ADAPTER
// Read-only views over the gateway state cache. Implements the presence
// tracker's StateReader, the refresh job's GuildLister, and the notifier's
// GuildNamer.
// ══════════════════════════════════════════════════════════════════════════════

// StateAdapter reads the session's in-memory gateway state.
type StateAdapter struct {
	session *discordgo.Session
}

// NewStateAdapter creates a StateAdapter.
func NewStateAdapter(session *discordgo.Session) *StateAdapter {
	return &StateAdapter{session: session}
}

// VoiceStates returns every live voice state across all guilds. The bot's
// own states are skipped; it earns nothing for sitting in a channel.
func (a *StateAdapter) VoiceStates() []presence.VoiceState {
	a.session.State.RLock()
	defer a.session.State.RUnlock()

	selfID := ""
	if a.session.State.User != nil {
		selfID = a.session.State.User.ID
	}

	var states []presence.VoiceState
	for _, guild := range a.session.State.Guilds {
		for _, vs := range guild.VoiceStates {
			if vs.UserID == selfID {
				continue
			}
			states = append(states, presence.VoiceState{
				GuildID:    guild.ID,
				UserID:     vs.UserID,
				ChannelID:  vs.ChannelID,
				Deafened:   vs.Deaf || vs.SelfDeaf,
				Suppressed: vs.Suppress,
			})
		}
	}
	return states
}

// GuildIDs returns the IDs of every guild the bot is in.
func (a *StateAdapter) GuildIDs() []string {
	a.session.State.RLock()
	defer a.session.State.RUnlock()

	ids := make([]string, 0, len(a.session.State.Guilds))
	for _, guild := range a.session.State.Guilds {
		ids = append(ids, guild.ID)
	}
	return ids
}

// GuildName returns a guild's display name, or "" when unknown.
func (a *StateAdapter) GuildName(guildID string) string {
	guild, err := a.session.State.Guild(guildID)
	if err != nil {
		return ""
	}
	return guild.Name
}
