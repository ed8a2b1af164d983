// Package level contains the experience ledger: the per-member experience
// record, the level curve, and the repository contracts the ledger is
// persisted through.
package level

import (
	"time"

	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER LEVEL RECORD
// One record per (guild, member) pair. The composite identity is unique;
// that uniqueness is the invariant protecting against duplicate ledgers
// for the same member.
// ══════════════════════════════════════════════════════════════════════════════

// UserLevelRecord is the authoritative per-member leveling state.
type UserLevelRecord struct {
	// GuildID and UserID form the composite identity.
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`

	// XP is the accumulated experience. Non-negative; mutated only through
	// the ledger operations.
	XP int `json:"xp"`

	// Level is always LevelFromExperience(XP) for the current record,
	// except in the window between an applied delta and its corrective
	// level write when two grants race.
	Level int `json:"level"`

	// LastActivityMs is the epoch-millisecond timestamp of the last
	// experience-eligible message. Drives the message cooldown.
	LastActivityMs int64 `json:"last_activity_ms"`

	// TotalMessages and TotalVoiceMillis are informational monotonic
	// counters. They never feed back into experience math.
	TotalMessages    int64 `json:"total_messages"`
	TotalVoiceMillis int64 `json:"total_voice_millis"`

	// UpdatedAt orders leaderboard ties (most recently updated first).
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecord creates a fresh zero-state record for a member.
func NewRecord(guildID, userID string) *UserLevelRecord {
	return &UserLevelRecord{
		GuildID:   guildID,
		UserID:    userID,
		UpdatedAt: time.Now().UTC(),
	}
}

// Validate checks the record's identity fields.
func (r *UserLevelRecord) Validate() error {
	if r.GuildID == "" {
		return shared.ErrMissingGuildID
	}
	if r.UserID == "" {
		return shared.ErrMissingUserID
	}
	return nil
}

// IsFresh reports whether the record is in zero state.
func (r *UserLevelRecord) IsFresh() bool {
	return r.XP == 0 && r.Level == 0 &&
		r.TotalMessages == 0 && r.TotalVoiceMillis == 0
}

// IsRanked reports whether the member holds a leaderboard position.
// Zero-XP members are unranked, never "last place".
func (r *UserLevelRecord) IsRanked() bool {
	return r.XP > 0
}

// SyncLevel recomputes the level from the current experience total and
// reports whether the stored level changed.
func (r *UserLevelRecord) SyncLevel() bool {
	lvl := LevelFromExperience(r.XP)
	if lvl == r.Level {
		return false
	}
	r.Level = lvl
	r.UpdatedAt = time.Now().UTC()
	return true
}

// Progress returns the record's position between level boundaries.
func (r *UserLevelRecord) Progress() Progress {
	return ProgressWithinLevel(r.XP)
}

// Reset wipes the record back to zero state in place. Identity and the
// row itself survive; only a whole-guild reset removes rows.
func (r *UserLevelRecord) Reset() {
	r.XP = 0
	r.Level = 0
	r.LastActivityMs = 0
	r.TotalMessages = 0
	r.TotalVoiceMillis = 0
	r.UpdatedAt = time.Now().UTC()
}

// Clone returns a copy of the record. Cached entries are replaced whole,
// never mutated in place, so callers hand out clones.
func (r *UserLevelRecord) Clone() *UserLevelRecord {
	c := *r
	return &c
}
