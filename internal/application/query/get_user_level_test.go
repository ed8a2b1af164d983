package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankforge/rankforge-bot/internal/domain/level"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeLevelRepo struct {
	records map[string]*level.UserLevelRecord
}

func newFakeLevelRepo() *fakeLevelRepo {
	return &fakeLevelRepo{records: make(map[string]*level.UserLevelRecord)}
}

func (f *fakeLevelRepo) key(guildID, userID string) string { return guildID + ":" + userID }

func (f *fakeLevelRepo) seed(rec *level.UserLevelRecord) {
	f.records[f.key(rec.GuildID, rec.UserID)] = rec
}

func (f *fakeLevelRepo) Get(_ context.Context, guildID, userID string) (*level.UserLevelRecord, error) {
	rec, ok := f.records[f.key(guildID, userID)]
	if !ok {
		return nil, shared.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (f *fakeLevelRepo) GetOrCreate(ctx context.Context, guildID, userID string) (*level.UserLevelRecord, error) {
	if _, ok := f.records[f.key(guildID, userID)]; !ok {
		f.seed(level.NewRecord(guildID, userID))
	}
	return f.Get(ctx, guildID, userID)
}

func (f *fakeLevelRepo) ApplyDelta(_ context.Context, guildID, userID string, delta, newLevel int) (int, error) {
	rec, ok := f.records[f.key(guildID, userID)]
	if !ok {
		return 0, shared.ErrRecordNotFound
	}
	rec.XP += delta
	if rec.XP < 0 {
		rec.XP = 0
	}
	rec.Level = newLevel
	return rec.XP, nil
}

func (f *fakeLevelRepo) SetLevel(_ context.Context, guildID, userID string, newLevel int) error {
	rec, ok := f.records[f.key(guildID, userID)]
	if !ok {
		return shared.ErrRecordNotFound
	}
	rec.Level = newLevel
	return nil
}

func (f *fakeLevelRepo) TouchActivity(_ context.Context, guildID, userID string, atMs int64) error {
	rec, ok := f.records[f.key(guildID, userID)]
	if !ok {
		return shared.ErrRecordNotFound
	}
	rec.LastActivityMs = atMs
	rec.TotalMessages++
	return nil
}

func (f *fakeLevelRepo) AddVoiceMillis(_ context.Context, guildID, userID string, millis int64) error {
	rec, ok := f.records[f.key(guildID, userID)]
	if !ok {
		return shared.ErrRecordNotFound
	}
	rec.TotalVoiceMillis += millis
	return nil
}

func (f *fakeLevelRepo) Rank(_ context.Context, guildID, userID string) (int, error) {
	rec, ok := f.records[f.key(guildID, userID)]
	if !ok {
		return 0, shared.ErrRecordNotFound
	}
	if rec.XP == 0 {
		return int(shared.Unranked), nil
	}
	position := 1
	for _, other := range f.records {
		if other.GuildID == guildID && other.XP > rec.XP {
			position++
		}
	}
	return position, nil
}

func (f *fakeLevelRepo) Leaderboard(_ context.Context, guildID string, limit int) ([]*level.UserLevelRecord, error) {
	var out []*level.UserLevelRecord
	for _, rec := range f.records {
		if rec.GuildID == guildID && rec.XP > 0 && len(out) < limit {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (f *fakeLevelRepo) CountRanked(_ context.Context, guildID string) (int, error) {
	count := 0
	for _, rec := range f.records {
		if rec.GuildID == guildID && rec.XP > 0 {
			count++
		}
	}
	return count, nil
}

func (f *fakeLevelRepo) ResetUser(_ context.Context, guildID, userID string) error {
	rec, ok := f.records[f.key(guildID, userID)]
	if !ok {
		return shared.ErrRecordNotFound
	}
	rec.Reset()
	return nil
}

func (f *fakeLevelRepo) DeleteGuild(_ context.Context, guildID string) (int64, error) {
	var deleted int64
	for key, rec := range f.records {
		if rec.GuildID == guildID {
			delete(f.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestGetUserLevel_NeverActiveMemberReadsZero(t *testing.T) {
	// The record lifecycle is upsert-on-read: a member nobody has seen
	// before gets a zero record and an unranked position, never an error.
	repo := newFakeLevelRepo()
	h := NewGetUserLevelHandler(repo, nil, time.Minute)

	res, err := h.Handle(context.Background(), GetUserLevelQuery{GuildID: "g1", UserID: "ghost"})

	require.NoError(t, err)
	assert.Equal(t, 0, res.User.XP)
	assert.Equal(t, 0, res.User.Level)
	assert.Equal(t, int(shared.Unranked), res.User.Rank)

	// The read materialized the row.
	_, err = repo.Get(context.Background(), "g1", "ghost")
	assert.NoError(t, err)
}

func TestGetUserLevel_RankAndProgress(t *testing.T) {
	repo := newFakeLevelRepo()

	top := level.NewRecord("g1", "u1")
	top.XP = 500
	top.Level = level.LevelFromExperience(500)
	repo.seed(top)

	second := level.NewRecord("g1", "u2")
	second.XP = 200
	second.Level = level.LevelFromExperience(200)
	repo.seed(second)

	h := NewGetUserLevelHandler(repo, nil, time.Minute)

	res, err := h.Handle(context.Background(), GetUserLevelQuery{GuildID: "g1", UserID: "u2"})

	require.NoError(t, err)
	assert.Equal(t, 200, res.User.XP)
	assert.Equal(t, 2, res.User.Rank)
	assert.Equal(t, level.LevelFromExperience(200), res.User.Level)

	progress := second.Progress()
	assert.Equal(t, progress.IntoLevel, res.User.XPIntoLevel)
	assert.Equal(t, progress.Needed, res.User.XPToNextLevel)
}

func TestGetUserLevel_ValidationRequiresIdentity(t *testing.T) {
	h := NewGetUserLevelHandler(newFakeLevelRepo(), nil, time.Minute)

	_, err := h.Handle(context.Background(), GetUserLevelQuery{GuildID: "", UserID: "u1"})
	assert.ErrorIs(t, err, shared.ErrMissingGuildID)

	_, err = h.Handle(context.Background(), GetUserLevelQuery{GuildID: "g1", UserID: ""})
	assert.ErrorIs(t, err, shared.ErrMissingUserID)
}
