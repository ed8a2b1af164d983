package eventhandler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankforge/rankforge-bot/internal/domain/guildconfig"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type sentMessage struct {
	channelID string
	content   string
}

type fakeMessenger struct {
	sent    []sentMessage
	sendErr error
}

func (m *fakeMessenger) SendMessage(_ context.Context, channelID, content string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMessage{channelID: channelID, content: content})
	return nil
}

type fakeGuildNamer struct{ name string }

func (n *fakeGuildNamer) GuildName(string) string { return n.name }

type staticConfigRepo struct {
	cfg *guildconfig.GuildConfig
}

func (r *staticConfigRepo) Get(_ context.Context, guildID string) (*guildconfig.GuildConfig, error) {
	if r.cfg == nil {
		return nil, shared.ErrConfigNotFound
	}
	return r.cfg.Clone(), nil
}

func (r *staticConfigRepo) Upsert(context.Context, *guildconfig.GuildConfig) error { return nil }
func (r *staticConfigRepo) Delete(context.Context, string) (bool, error)          { return false, nil }

func providerWith(cfg *guildconfig.GuildConfig) *guildconfig.Provider {
	return guildconfig.NewProvider(&staticConfigRepo{cfg: cfg}, nil, guildconfig.NewDefaults(), time.Minute)
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestNotifier_RendersDefaultTemplate(t *testing.T) {
	messenger := &fakeMessenger{}
	n := NewLevelUpNotifier(providerWith(nil), messenger, &fakeGuildNamer{name: "Testers"}, nil)

	up := shared.NewLevelUpEvent("g1", "u1", 0, 3, 500, "c1")
	require.NoError(t, n.Handle(up))

	require.Len(t, messenger.sent, 1)
	assert.Equal(t, "c1", messenger.sent[0].channelID)
	assert.Equal(t, "<@u1> reached level 3! 🎉", messenger.sent[0].content)
}

func TestNotifier_CustomTemplatePlaceholders(t *testing.T) {
	cfg := guildconfig.NewDefaults().Config("g1")
	cfg.LevelUpMessageTemplate = "{user} hit {level} with {xp} XP on {server}"

	messenger := &fakeMessenger{}
	n := NewLevelUpNotifier(providerWith(cfg), messenger, &fakeGuildNamer{name: "Testers"}, nil)

	require.NoError(t, n.Handle(shared.NewLevelUpEvent("g1", "u1", 1, 2, 475, "c1")))

	require.Len(t, messenger.sent, 1)
	assert.Equal(t, "<@u1> hit 2 with 475 XP on Testers", messenger.sent[0].content)
}

func TestNotifier_ConfiguredChannelWinsOverOrigin(t *testing.T) {
	cfg := guildconfig.NewDefaults().Config("g1")
	cfg.NotifyChannelID = "announcements"

	messenger := &fakeMessenger{}
	n := NewLevelUpNotifier(providerWith(cfg), messenger, &fakeGuildNamer{}, nil)

	require.NoError(t, n.Handle(shared.NewLevelUpEvent("g1", "u1", 0, 1, 155, "general")))

	require.Len(t, messenger.sent, 1)
	assert.Equal(t, "announcements", messenger.sent[0].channelID)
}

func TestNotifier_VoiceLevelUpWithoutChannelIsSilent(t *testing.T) {
	// Voice-driven level-ups carry no origin channel. Without a configured
	// announcement channel there is nowhere to post.
	messenger := &fakeMessenger{}
	n := NewLevelUpNotifier(providerWith(nil), messenger, &fakeGuildNamer{}, nil)

	require.NoError(t, n.Handle(shared.NewLevelUpEvent("g1", "u1", 0, 1, 155, "")))

	assert.Empty(t, messenger.sent)
}

func TestNotifier_DisabledGateSkips(t *testing.T) {
	cfg := guildconfig.NewDefaults().Config("g1")
	cfg.NotifyLevelUp = false
	cfg.NotifyChannelID = "announcements"

	messenger := &fakeMessenger{}
	n := NewLevelUpNotifier(providerWith(cfg), messenger, &fakeGuildNamer{}, nil)

	require.NoError(t, n.Handle(shared.NewLevelUpEvent("g1", "u1", 0, 1, 155, "c1")))

	assert.Empty(t, messenger.sent)
}

func TestNotifier_SendFailureIsSwallowed(t *testing.T) {
	messenger := &fakeMessenger{sendErr: shared.ErrChannelSendFailed}
	n := NewLevelUpNotifier(providerWith(nil), messenger, &fakeGuildNamer{}, nil)

	err := n.Handle(shared.NewLevelUpEvent("g1", "u1", 0, 1, 155, "c1"))

	assert.NoError(t, err, "announcement failures never propagate")
}
