package query

import (
	"context"
	"fmt"
	"time"

	"github.com/rankforge/rankforge-bot/internal/domain/level"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery contains the parameters for a leaderboard page.
type GetLeaderboardQuery struct {
	GuildID string

	// Limit is the requested page size. Out-of-range values are clamped,
	// never rejected; zero means the default page size.
	Limit int
}

// Validate validates the query.
func (q GetLeaderboardQuery) Validate() error {
	if q.GuildID == "" {
		return shared.ErrMissingGuildID
	}
	return nil
}

// LeaderboardEntryDTO is one row of the leaderboard read model.
type LeaderboardEntryDTO struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	XP     int    `json:"xp"`
	Level  int    `json:"level"`
}

// GetLeaderboardResult contains the leaderboard page.
type GetLeaderboardResult struct {
	GuildID string                `json:"guild_id"`
	Entries []LeaderboardEntryDTO `json:"entries"`

	// TotalRanked is the count of members holding a leaderboard position,
	// which may exceed the page size.
	TotalRanked int `json:"total_ranked"`

	GeneratedAt time.Time `json:"generated_at"`
}

// GetLeaderboardHandler handles the GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	levelRepo      level.Repository
	levelCache     level.Cache // optional
	leaderboardTTL time.Duration
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler.
func NewGetLeaderboardHandler(levelRepo level.Repository, levelCache level.Cache, leaderboardTTL time.Duration) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{
		levelRepo:      levelRepo,
		levelCache:     levelCache,
		leaderboardTTL: leaderboardTTL,
	}
}

// Handle executes the query. Pages are cached per (guild, limit); the TTL
// is short because every grant in the guild can reorder the board.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_leaderboard: validation failed: %w", err)
	}

	limit := q.Limit
	if limit == 0 {
		limit = shared.DefaultLeaderboardLimit.Int()
	}
	limit = shared.LeaderboardLimit(limit).Clamp().Int()

	records, err := h.loadPage(ctx, q.GuildID, limit)
	if err != nil {
		return nil, err
	}

	totalRanked, err := h.levelRepo.CountRanked(ctx, q.GuildID)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: failed to count ranked members: %w", err)
	}

	entries := make([]LeaderboardEntryDTO, len(records))
	for i, r := range records {
		entries[i] = LeaderboardEntryDTO{
			Rank:   i + 1,
			UserID: r.UserID,
			XP:     r.XP,
			Level:  r.Level,
		}
	}

	return &GetLeaderboardResult{
		GuildID:     q.GuildID,
		Entries:     entries,
		TotalRanked: totalRanked,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (h *GetLeaderboardHandler) loadPage(ctx context.Context, guildID string, limit int) ([]*level.UserLevelRecord, error) {
	if h.levelCache != nil {
		if records, err := h.levelCache.GetLeaderboard(ctx, guildID, limit); err == nil {
			return records, nil
		}
	}

	records, err := h.levelRepo.Leaderboard(ctx, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: failed to load page: %w", err)
	}

	if h.levelCache != nil {
		_ = h.levelCache.SetLeaderboard(ctx, guildID, limit, records, h.leaderboardTTL)
	}
	return records, nil
}
