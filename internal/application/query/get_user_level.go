// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/rankforge/rankforge-bot/internal/domain/level"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER LEVEL QUERY
// Backs the /rank command: one member's experience, level, progress and
// leaderboard position.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserLevelQuery contains the parameters for a member lookup.
type GetUserLevelQuery struct {
	GuildID string
	UserID  string
}

// Validate validates the query.
func (q GetUserLevelQuery) Validate() error {
	if q.GuildID == "" {
		return shared.ErrMissingGuildID
	}
	if q.UserID == "" {
		return shared.ErrMissingUserID
	}
	return nil
}

// UserLevelDTO is the read model for one member's standing.
type UserLevelDTO struct {
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`

	XP    int `json:"xp"`
	Level int `json:"level"`

	// Rank is the 1-based leaderboard position; 0 means unranked.
	Rank int `json:"rank"`

	// Progress through the current level span.
	XPIntoLevel    int `json:"xp_into_level"`
	XPToNextLevel  int `json:"xp_to_next_level"`
	LevelPercent   int `json:"level_percent"`
	NextLevelTotal int `json:"next_level_total"`

	TotalMessages    int64 `json:"total_messages"`
	TotalVoiceMillis int64 `json:"total_voice_millis"`
}

// GetUserLevelResult contains the result of the lookup.
type GetUserLevelResult struct {
	User        UserLevelDTO `json:"user"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// GetUserLevelHandler handles the GetUserLevelQuery.
type GetUserLevelHandler struct {
	levelRepo  level.Repository
	levelCache level.Cache // optional
	recordTTL  time.Duration
}

// NewGetUserLevelHandler creates a new GetUserLevelHandler. A nil cache
// disables the read shield; recordTTL bounds how stale a cached record
// may get.
func NewGetUserLevelHandler(levelRepo level.Repository, levelCache level.Cache, recordTTL time.Duration) *GetUserLevelHandler {
	return &GetUserLevelHandler{
		levelRepo:  levelRepo,
		levelCache: levelCache,
		recordTTL:  recordTTL,
	}
}

// Handle executes the lookup. The record itself is cache-shielded; the rank
// is always computed against PostgreSQL because a cached position goes
// stale with every grant anywhere in the guild.
func (h *GetUserLevelHandler) Handle(ctx context.Context, q GetUserLevelQuery) (*GetUserLevelResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_user_level: validation failed: %w", err)
	}

	record, err := h.loadRecord(ctx, q.GuildID, q.UserID)
	if err != nil {
		return nil, err
	}

	rank, err := h.levelRepo.Rank(ctx, q.GuildID, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_user_level: failed to compute rank: %w", err)
	}

	progress := record.Progress()

	return &GetUserLevelResult{
		User: UserLevelDTO{
			GuildID:          record.GuildID,
			UserID:           record.UserID,
			XP:               record.XP,
			Level:            record.Level,
			Rank:             rank,
			XPIntoLevel:      progress.IntoLevel,
			XPToNextLevel:    progress.Needed,
			LevelPercent:     progress.Percent,
			NextLevelTotal:   progress.NextRequired,
			TotalMessages:    record.TotalMessages,
			TotalVoiceMillis: record.TotalVoiceMillis,
		},
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (h *GetUserLevelHandler) loadRecord(ctx context.Context, guildID, userID string) (*level.UserLevelRecord, error) {
	if h.levelCache != nil {
		if record, err := h.levelCache.GetRecord(ctx, guildID, userID); err == nil {
			return record, nil
		}
	}

	// Upsert-on-read: a member nobody has seen before reads back as a
	// zero record, not an error.
	record, err := h.levelRepo.GetOrCreate(ctx, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("get_user_level: failed to load record: %w", err)
	}

	if h.levelCache != nil {
		_ = h.levelCache.SetRecord(ctx, record, h.recordTTL)
	}
	return record, nil
}
