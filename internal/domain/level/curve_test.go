package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExperienceForLevel_Formula(t *testing.T) {
	assert.Equal(t, 0, ExperienceForLevel(0))
	assert.Equal(t, 155, ExperienceForLevel(1)) // 5 + 50 + 100
	assert.Equal(t, 220, ExperienceForLevel(2)) // 20 + 100 + 100
	assert.Equal(t, 295, ExperienceForLevel(3))
	assert.Equal(t, 1100, ExperienceForLevel(10))
	assert.Equal(t, 0, ExperienceForLevel(-5))
}

func TestLevelFromExperience_Boundaries(t *testing.T) {
	assert.Equal(t, 0, LevelFromExperience(0))
	assert.Equal(t, 0, LevelFromExperience(154))
	assert.Equal(t, 1, LevelFromExperience(155))
	assert.Equal(t, 1, LevelFromExperience(219))
	assert.Equal(t, 2, LevelFromExperience(220))
	assert.Equal(t, 0, LevelFromExperience(-10))
}

func TestLevelCurve_RoundTrip(t *testing.T) {
	// Boundary exactness: reaching exactly the requirement yields the level,
	// one point short yields the level below.
	for l := 1; l <= 100; l++ {
		req := ExperienceForLevel(l)
		assert.Equal(t, l, LevelFromExperience(req), "level %d at exact requirement", l)
		assert.Equal(t, l-1, LevelFromExperience(req-1), "level %d one point short", l)
	}
}

func TestLevelFromExperience_Monotonic(t *testing.T) {
	prev := 0
	for xp := 0; xp <= 5000; xp++ {
		lvl := LevelFromExperience(xp)
		assert.GreaterOrEqual(t, lvl, prev, "xp=%d", xp)
		prev = lvl
	}
}

func TestProgressWithinLevel(t *testing.T) {
	p := ProgressWithinLevel(0)
	assert.Equal(t, 0, p.Level)
	assert.Equal(t, 0, p.CurrentFloor)
	assert.Equal(t, 155, p.NextRequired)
	assert.Equal(t, 155, p.Needed)
	assert.Equal(t, 0, p.Percent)

	p = ProgressWithinLevel(155)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 155, p.CurrentFloor)
	assert.Equal(t, 220, p.NextRequired)
	assert.Equal(t, 0, p.IntoLevel)
	assert.Equal(t, 65, p.Needed)

	p = ProgressWithinLevel(219)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 64, p.IntoLevel)
	assert.Equal(t, 1, p.Needed)
	assert.Equal(t, 98, p.Percent)

	// Negative input is clamped.
	p = ProgressWithinLevel(-42)
	assert.Equal(t, 0, p.Level)
	assert.Equal(t, 0, p.IntoLevel)
}

func TestRecord_SyncLevel(t *testing.T) {
	rec := NewRecord("100000000000000001", "200000000000000002")
	rec.XP = 155

	changed := rec.SyncLevel()
	assert.True(t, changed)
	assert.Equal(t, 1, rec.Level)

	changed = rec.SyncLevel()
	assert.False(t, changed)
}

func TestRecord_ResetAndFreshness(t *testing.T) {
	rec := NewRecord("100000000000000001", "200000000000000002")
	assert.True(t, rec.IsFresh())
	assert.False(t, rec.IsRanked())

	rec.XP = 500
	rec.SyncLevel()
	rec.TotalMessages = 12
	rec.TotalVoiceMillis = 90000
	rec.LastActivityMs = 1700000000000
	assert.False(t, rec.IsFresh())
	assert.True(t, rec.IsRanked())

	rec.Reset()
	assert.True(t, rec.IsFresh())
	assert.Equal(t, 0, rec.XP)
	assert.Equal(t, 0, rec.Level)
	assert.Equal(t, int64(0), rec.LastActivityMs)
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	rec := NewRecord("100000000000000001", "200000000000000002")
	rec.XP = 300

	clone := rec.Clone()
	clone.XP = 999

	assert.Equal(t, 300, rec.XP)
	assert.Equal(t, 999, clone.XP)
}

func TestRecord_Validate(t *testing.T) {
	rec := NewRecord("", "200000000000000002")
	assert.Error(t, rec.Validate())

	rec = NewRecord("100000000000000001", "")
	assert.Error(t, rec.Validate())

	rec = NewRecord("100000000000000001", "200000000000000002")
	assert.NoError(t, rec.Validate())
}
