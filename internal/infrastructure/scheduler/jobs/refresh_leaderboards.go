package jobs

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rankforge/rankforge-bot/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH LEADERBOARDS JOB
// ══════════════════════════════════════════════════════════════════════════════

// GuildLister exposes the IDs of the guilds the bot is currently in.
// Backed by the gateway session state.
type GuildLister interface {
	GuildIDs() []string
}

// RefreshLeaderboardsJob warms the default leaderboard page of every guild
// so the common /leaderboard call is served from cache. Warming goes
// through the normal query path, which caches as a side effect.
type RefreshLeaderboardsJob struct {
	guilds      GuildLister
	leaderboard *query.GetLeaderboardHandler
	logger      *slog.Logger

	config RefreshLeaderboardsConfig

	lastRun atomic.Value // *RefreshStats
}

// RefreshLeaderboardsConfig contains configuration for the refresh job.
type RefreshLeaderboardsConfig struct {
	// PageSize is the leaderboard page size to warm.
	PageSize int

	// Timeout bounds one full refresh pass.
	Timeout time.Duration
}

// DefaultRefreshLeaderboardsConfig returns sensible defaults.
func DefaultRefreshLeaderboardsConfig() RefreshLeaderboardsConfig {
	return RefreshLeaderboardsConfig{
		PageSize: 10,
		Timeout:  30 * time.Second,
	}
}

// RefreshStats contains statistics from a refresh run.
type RefreshStats struct {
	StartedAt       time.Time
	Duration        time.Duration
	GuildsRefreshed int
	GuildsFailed    int
}

// NewRefreshLeaderboardsJob creates a new refresh job.
func NewRefreshLeaderboardsJob(
	guilds GuildLister,
	leaderboard *query.GetLeaderboardHandler,
	logger *slog.Logger,
	config RefreshLeaderboardsConfig,
) *RefreshLeaderboardsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshLeaderboardsJob{
		guilds:      guilds,
		leaderboard: leaderboard,
		logger:      logger.With("job", "refresh_leaderboards"),
		config:      config,
	}
}

// Name implements scheduler.Job.
func (j *RefreshLeaderboardsJob) Name() string {
	return "refresh_leaderboards"
}

// Description implements scheduler.Job.
func (j *RefreshLeaderboardsJob) Description() string {
	return "Warms the default leaderboard page for every guild"
}

// Run implements scheduler.Job.
func (j *RefreshLeaderboardsJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	stats := RefreshStats{StartedAt: time.Now().UTC()}

	for _, guildID := range j.guilds.GuildIDs() {
		if ctx.Err() != nil {
			break
		}
		_, err := j.leaderboard.Handle(ctx, query.GetLeaderboardQuery{
			GuildID: guildID,
			Limit:   j.config.PageSize,
		})
		if err != nil {
			stats.GuildsFailed++
			j.logger.Warn("failed to refresh leaderboard",
				"guild_id", guildID,
				"error", err,
			)
			continue
		}
		stats.GuildsRefreshed++
	}

	stats.Duration = time.Since(stats.StartedAt)
	j.lastRun.Store(&stats)

	j.logger.Debug("leaderboard refresh completed",
		"guilds_refreshed", stats.GuildsRefreshed,
		"guilds_failed", stats.GuildsFailed,
		"duration", stats.Duration,
	)
	return nil
}

// LastRun returns statistics from the most recent run, or nil.
func (j *RefreshLeaderboardsJob) LastRun() *RefreshStats {
	if v := j.lastRun.Load(); v != nil {
		return v.(*RefreshStats)
	}
	return nil
}
