package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankforge/rankforge-bot/internal/domain/guildconfig"
	"github.com/rankforge/rankforge-bot/internal/domain/level"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

func newMessageHandler(levelRepo *fakeLevelRepo, configRepo *fakeConfigRepo, defaults guildconfig.Defaults) (*RecordMessageHandler, *fakePublisher) {
	pub := &fakePublisher{}
	provider := newTestProvider(configRepo, defaults)
	grant := NewGrantExperienceHandler(levelRepo, nil, pub)
	return NewRecordMessageHandler(levelRepo, provider, grant), pub
}

func TestRecordMessage_BotAuthorSkipped(t *testing.T) {
	h, pub := newMessageHandler(newFakeLevelRepo(), newFakeConfigRepo(), guildconfig.NewDefaults())

	res, err := h.Handle(context.Background(), RecordMessageCommand{
		GuildID: "g1", UserID: "u1", ChannelID: "c1", AuthorIsBot: true,
	})

	require.NoError(t, err)
	assert.False(t, res.Granted)
	assert.Equal(t, SkipBot, res.SkipReason)
	assert.Empty(t, pub.events)
}

func TestRecordMessage_DirectMessageSkipped(t *testing.T) {
	h, _ := newMessageHandler(newFakeLevelRepo(), newFakeConfigRepo(), guildconfig.NewDefaults())

	res, err := h.Handle(context.Background(), RecordMessageCommand{
		GuildID: "", UserID: "u1", ChannelID: "c1", Content: "hi",
	})

	require.NoError(t, err)
	assert.Equal(t, SkipUntracked, res.SkipReason)
}

func TestRecordMessage_EmptyContentSkipped(t *testing.T) {
	// Sticker-only and attachment-only messages carry no text.
	h, pub := newMessageHandler(newFakeLevelRepo(), newFakeConfigRepo(), guildconfig.NewDefaults())

	res, err := h.Handle(context.Background(), RecordMessageCommand{
		GuildID: "g1", UserID: "u1", ChannelID: "c1",
	})

	require.NoError(t, err)
	assert.Equal(t, SkipEmptyContent, res.SkipReason)
	assert.Empty(t, pub.events)
}

func TestRecordMessage_ZeroRateSkipped(t *testing.T) {
	defaults := guildconfig.NewDefaults()
	defaults.ExperiencePerMessage = 0
	h, _ := newMessageHandler(newFakeLevelRepo(), newFakeConfigRepo(), defaults)

	res, err := h.Handle(context.Background(), RecordMessageCommand{
		GuildID: "g1", UserID: "u1", ChannelID: "c1", Content: "hi",
	})

	require.NoError(t, err)
	assert.Equal(t, SkipZeroRate, res.SkipReason)
}

func TestRecordMessage_StoredZeroRateStaysDisabled(t *testing.T) {
	// An admin sets the guild's message rate to 0 while the process
	// defaults are nonzero. The stored zero must win, not the default.
	configRepo := newFakeConfigRepo()
	cfg := guildconfig.NewDefaults().Config("g1")
	cfg.ExperiencePerMessage = 0
	require.NoError(t, configRepo.Upsert(context.Background(), cfg))

	h, pub := newMessageHandler(newFakeLevelRepo(), configRepo, guildconfig.NewDefaults())

	res, err := h.Handle(context.Background(), RecordMessageCommand{
		GuildID: "g1", UserID: "u1", ChannelID: "c1", Content: "hi",
	})

	require.NoError(t, err)
	assert.Equal(t, SkipZeroRate, res.SkipReason)
	assert.Empty(t, pub.events)
}

func TestRecordMessage_IgnoredChannelSkipped(t *testing.T) {
	configRepo := newFakeConfigRepo()
	cfg := guildconfig.NewDefaults().Config("g1")
	cfg.IgnoredChannelIDs = []string{"afk-channel"}
	require.NoError(t, configRepo.Upsert(context.Background(), cfg))

	h, _ := newMessageHandler(newFakeLevelRepo(), configRepo, guildconfig.NewDefaults())

	res, err := h.Handle(context.Background(), RecordMessageCommand{
		GuildID: "g1", UserID: "u1", ChannelID: "afk-channel", Content: "hi",
	})

	require.NoError(t, err)
	assert.Equal(t, SkipIgnoredChannel, res.SkipReason)
}

func TestRecordMessage_IgnoredRoleSkipped(t *testing.T) {
	configRepo := newFakeConfigRepo()
	cfg := guildconfig.NewDefaults().Config("g1")
	cfg.IgnoredRoleIDs = []string{"muted"}
	require.NoError(t, configRepo.Upsert(context.Background(), cfg))

	h, _ := newMessageHandler(newFakeLevelRepo(), configRepo, guildconfig.NewDefaults())

	res, err := h.Handle(context.Background(), RecordMessageCommand{
		GuildID: "g1", UserID: "u1", ChannelID: "c1", Content: "hi",
		MemberRoleIDs: []string{"member", "muted"},
	})

	require.NoError(t, err)
	assert.Equal(t, SkipIgnoredRole, res.SkipReason)
}

func TestRecordMessage_CooldownBoundary(t *testing.T) {
	// Default cooldown is 60s. One millisecond short of the boundary is
	// rejected; exactly at the boundary earns.
	levelRepo := newFakeLevelRepo()
	rec := level.NewRecord("g1", "u1")
	rec.LastActivityMs = 1_000
	levelRepo.seed(rec)

	h, _ := newMessageHandler(levelRepo, newFakeConfigRepo(), guildconfig.NewDefaults())

	res, err := h.Handle(context.Background(), RecordMessageCommand{
		GuildID: "g1", UserID: "u1", ChannelID: "c1", Content: "hi", NowMs: 1_000 + 60_000 - 1,
	})
	require.NoError(t, err)
	assert.Equal(t, SkipCooldown, res.SkipReason)

	res, err = h.Handle(context.Background(), RecordMessageCommand{
		GuildID: "g1", UserID: "u1", ChannelID: "c1", Content: "hi", NowMs: 1_000 + 60_000,
	})
	require.NoError(t, err)
	assert.True(t, res.Granted)
}

func TestRecordMessage_GrantTouchesActivityFirst(t *testing.T) {
	levelRepo := newFakeLevelRepo()
	h, pub := newMessageHandler(levelRepo, newFakeConfigRepo(), guildconfig.NewDefaults())

	res, err := h.Handle(context.Background(), RecordMessageCommand{
		GuildID: "g1", UserID: "u1", ChannelID: "c1", Content: "hi", NowMs: 5_000,
	})

	require.NoError(t, err)
	assert.True(t, res.Granted)
	assert.Equal(t, 15, res.Amount)
	assert.Equal(t, 1, levelRepo.touchCalls)

	rec, err := levelRepo.Get(context.Background(), "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), rec.LastActivityMs)
	assert.Equal(t, int64(1), rec.TotalMessages)
	assert.Equal(t, 15, rec.XP)

	assert.Len(t, pub.byType(shared.EventXPGranted), 1)
}

func TestRecordMessage_MultipliersCompound(t *testing.T) {
	configRepo := newFakeConfigRepo()
	cfg := guildconfig.NewDefaults().Config("g1")
	cfg.RoleMultipliers = map[string]float64{"bronze": 1.5, "gold": 2.0}
	cfg.ChannelMultipliers = map[string]float64{"events": 1.5}
	require.NoError(t, configRepo.Upsert(context.Background(), cfg))

	h, _ := newMessageHandler(newFakeLevelRepo(), configRepo, guildconfig.NewDefaults())

	// Best role multiplier wins (2.0), compounded with the channel (1.5):
	// 15 * 3.0 = 45.
	res, err := h.Handle(context.Background(), RecordMessageCommand{
		GuildID: "g1", UserID: "u1", ChannelID: "events", Content: "hi",
		MemberRoleIDs: []string{"bronze", "gold"},
	})

	require.NoError(t, err)
	assert.Equal(t, 45, res.Amount)
}

func TestRecordMessage_AmountNeverBelowOne(t *testing.T) {
	configRepo := newFakeConfigRepo()
	cfg := guildconfig.NewDefaults().Config("g1")
	cfg.ChannelMultipliers = map[string]float64{"slow": 0.01}
	require.NoError(t, configRepo.Upsert(context.Background(), cfg))

	h, _ := newMessageHandler(newFakeLevelRepo(), configRepo, guildconfig.NewDefaults())

	res, err := h.Handle(context.Background(), RecordMessageCommand{
		GuildID: "g1", UserID: "u1", ChannelID: "slow", Content: "hi",
	})

	require.NoError(t, err)
	assert.True(t, res.Granted)
	assert.Equal(t, 1, res.Amount)
}
