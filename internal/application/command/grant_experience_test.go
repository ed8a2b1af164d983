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

func TestGrantExperience_ValidationRejectsNonPositiveAmount(t *testing.T) {
	h := NewGrantExperienceHandler(newFakeLevelRepo(), nil, &fakePublisher{})

	_, err := h.Handle(context.Background(), GrantExperienceCommand{
		GuildID: "g1", UserID: "u1", Amount: 0, Source: SourceManual,
	})

	assert.ErrorIs(t, err, shared.ErrNonPositiveAmount)
}

func TestGrantExperience_CreatesRecordOnFirstGrant(t *testing.T) {
	levelRepo := newFakeLevelRepo()
	pub := &fakePublisher{}
	h := NewGrantExperienceHandler(levelRepo, nil, pub)

	res, err := h.Handle(context.Background(), GrantExperienceCommand{
		GuildID: "g1", UserID: "u1", Amount: 50, Source: SourceManual,
	})

	require.NoError(t, err)
	assert.Equal(t, 50, res.NewTotal)
	assert.Equal(t, 0, res.NewLevel)
	assert.False(t, res.LeveledUp)
	assert.Len(t, pub.byType(shared.EventXPGranted), 1)
	assert.Empty(t, pub.byType(shared.EventLevelUp))
}

func TestGrantExperience_CrossingThresholdEmitsLevelUp(t *testing.T) {
	// Level 1 starts at 155 XP. 150 + 5 lands exactly on the threshold.
	levelRepo := newFakeLevelRepo()
	rec := level.NewRecord("g1", "u1")
	rec.XP = 150
	levelRepo.seed(rec)

	pub := &fakePublisher{}
	h := NewGrantExperienceHandler(levelRepo, nil, pub)

	res, err := h.Handle(context.Background(), GrantExperienceCommand{
		GuildID: "g1", UserID: "u1", Amount: 5, Source: SourceMessage, ChannelID: "c1",
	})

	require.NoError(t, err)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 0, res.OldLevel)
	assert.Equal(t, 1, res.NewLevel)
	assert.Equal(t, 155, res.NewTotal)

	ups := pub.byType(shared.EventLevelUp)
	require.Len(t, ups, 1)
	up := ups[0].(shared.LevelUpEvent)
	assert.Equal(t, 1, up.NewLevel)
	assert.Equal(t, "c1", up.ChannelID)
}

func TestGrantExperience_OneBelowThresholdStaysLevelZero(t *testing.T) {
	levelRepo := newFakeLevelRepo()
	rec := level.NewRecord("g1", "u1")
	rec.XP = 150
	levelRepo.seed(rec)

	pub := &fakePublisher{}
	h := NewGrantExperienceHandler(levelRepo, nil, pub)

	res, err := h.Handle(context.Background(), GrantExperienceCommand{
		GuildID: "g1", UserID: "u1", Amount: 4, Source: SourceMessage,
	})

	require.NoError(t, err)
	assert.False(t, res.LeveledUp)
	assert.Equal(t, 154, res.NewTotal)
	assert.Equal(t, 0, res.NewLevel)
	assert.Empty(t, pub.byType(shared.EventLevelUp))
}

func TestGrantExperience_RapidGrantsNetSum(t *testing.T) {
	// Two back-to-back grants go through the relative delta path, so the
	// totals add up regardless of what each handler read beforehand.
	levelRepo := newFakeLevelRepo()
	pub := &fakePublisher{}
	h := NewGrantExperienceHandler(levelRepo, nil, pub)

	_, err := h.Handle(context.Background(), GrantExperienceCommand{
		GuildID: "g1", UserID: "u1", Amount: 60, Source: SourceMessage,
	})
	require.NoError(t, err)

	res, err := h.Handle(context.Background(), GrantExperienceCommand{
		GuildID: "g1", UserID: "u1", Amount: 40, Source: SourceVoice,
	})
	require.NoError(t, err)

	assert.Equal(t, 100, res.NewTotal)
	assert.Len(t, pub.byType(shared.EventXPGranted), 2)

	stored, err := levelRepo.Get(context.Background(), "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, stored.XP)
	assert.Equal(t, level.LevelFromExperience(100), stored.Level)
}

func TestGrantExperience_InterleavedWriterGetsCorrectiveLevel(t *testing.T) {
	// A concurrent grant lands between this handler's read and write. The
	// stored total then disagrees with the computed one; the handler must
	// recompute the level from the stored total and write it.
	levelRepo := newFakeLevelRepo()
	rec := level.NewRecord("g1", "u1")
	rec.XP = 100
	levelRepo.seed(rec)
	levelRepo.interleaveDelta = 500

	pub := &fakePublisher{}
	h := NewGrantExperienceHandler(levelRepo, nil, pub)

	res, err := h.Handle(context.Background(), GrantExperienceCommand{
		GuildID: "g1", UserID: "u1", Amount: 10, Source: SourceMessage,
	})

	require.NoError(t, err)
	assert.Equal(t, 610, res.NewTotal)
	assert.Equal(t, level.LevelFromExperience(610), res.NewLevel)
	assert.Equal(t, 1, levelRepo.setLevelCalls)

	stored, err := levelRepo.Get(context.Background(), "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, level.LevelFromExperience(610), stored.Level)
}

// ─────────────────────────────────────────────────────────────────────────────
// REVOCATION
// ─────────────────────────────────────────────────────────────────────────────

func newRevokeHandler(levelRepo *fakeLevelRepo, configRepo *fakeConfigRepo) (*RevokeExperienceHandler, *fakePublisher) {
	pub := &fakePublisher{}
	provider := newTestProvider(configRepo, guildconfig.NewDefaults())
	return NewRevokeExperienceHandler(levelRepo, nil, provider, pub), pub
}

func penaltyEnabledConfig(t *testing.T, configRepo *fakeConfigRepo, guildID string) {
	t.Helper()
	cfg := guildconfig.NewDefaults().Config(guildID)
	cfg.PenaltySystemEnabled = true
	require.NoError(t, configRepo.Upsert(context.Background(), cfg))
}

func TestRevokeExperience_DisabledPenaltyGateBlocks(t *testing.T) {
	levelRepo := newFakeLevelRepo()
	rec := level.NewRecord("g1", "u1")
	rec.XP = 200
	levelRepo.seed(rec)

	h, pub := newRevokeHandler(levelRepo, newFakeConfigRepo())

	_, err := h.Handle(context.Background(), RevokeExperienceCommand{
		GuildID: "g1", UserID: "u1", Amount: 50, Reason: "spam",
	})

	assert.ErrorIs(t, err, shared.ErrPenaltiesDisabled)
	assert.Empty(t, pub.events)

	stored, err := levelRepo.Get(context.Background(), "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 200, stored.XP, "gate must block before any write")
}

func TestRevokeExperience_DropBelowThresholdEmitsLevelDown(t *testing.T) {
	levelRepo := newFakeLevelRepo()
	rec := level.NewRecord("g1", "u1")
	rec.XP = 200
	rec.Level = 1
	levelRepo.seed(rec)

	configRepo := newFakeConfigRepo()
	penaltyEnabledConfig(t, configRepo, "g1")
	h, pub := newRevokeHandler(levelRepo, configRepo)

	res, err := h.Handle(context.Background(), RevokeExperienceCommand{
		GuildID: "g1", UserID: "u1", Amount: 100, Reason: "spam",
	})

	require.NoError(t, err)
	assert.True(t, res.LeveledDown)
	assert.Equal(t, 1, res.OldLevel)
	assert.Equal(t, 0, res.NewLevel)
	assert.Equal(t, 100, res.NewTotal)
	assert.Len(t, pub.byType(shared.EventXPRevoked), 1)
	assert.Len(t, pub.byType(shared.EventLevelDown), 1)
}

func TestRevokeExperience_FlooredAtZero(t *testing.T) {
	levelRepo := newFakeLevelRepo()
	rec := level.NewRecord("g1", "u1")
	rec.XP = 30
	levelRepo.seed(rec)

	configRepo := newFakeConfigRepo()
	penaltyEnabledConfig(t, configRepo, "g1")
	h, _ := newRevokeHandler(levelRepo, configRepo)

	res, err := h.Handle(context.Background(), RevokeExperienceCommand{
		GuildID: "g1", UserID: "u1", Amount: 500, Reason: "rollback",
	})

	require.NoError(t, err)
	assert.Equal(t, 0, res.NewTotal)
}

func TestRevokeExperience_MissingRecordFails(t *testing.T) {
	configRepo := newFakeConfigRepo()
	penaltyEnabledConfig(t, configRepo, "g1")
	h, _ := newRevokeHandler(newFakeLevelRepo(), configRepo)

	_, err := h.Handle(context.Background(), RevokeExperienceCommand{
		GuildID: "g1", UserID: "ghost", Amount: 10, Reason: "spam",
	})

	assert.ErrorIs(t, err, shared.ErrRecordNotFound)
}
