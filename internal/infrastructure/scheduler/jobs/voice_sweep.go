// Package jobs contains the scheduled jobs run by the bot.
package jobs

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rankforge/rankforge-bot/internal/application/presence"
)

// ══════════════════════════════════════════════════════════════════════════════
// VOICE SWEEP JOB
// ══════════════════════════════════════════════════════════════════════════════

// VoiceSweepJob periodically checkpoints long-running voice sessions so a
// crash or restart loses at most one sweep interval of voice time. It also
// evicts sessions the gateway no longer reports.
type VoiceSweepJob struct {
	tracker *presence.Tracker
	logger  *slog.Logger

	lastRun atomic.Value // *VoiceSweepStats
}

// VoiceSweepStats contains statistics from a sweep run.
type VoiceSweepStats struct {
	StartedAt      time.Time
	Duration       time.Duration
	SessionsBefore int
	SessionsAfter  int
}

// NewVoiceSweepJob creates a new voice sweep job.
func NewVoiceSweepJob(tracker *presence.Tracker, logger *slog.Logger) *VoiceSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoiceSweepJob{
		tracker: tracker,
		logger:  logger.With("job", "voice_sweep"),
	}
}

// Name implements scheduler.Job.
func (j *VoiceSweepJob) Name() string {
	return "voice_sweep"
}

// Description implements scheduler.Job.
func (j *VoiceSweepJob) Description() string {
	return "Checkpoints long-running voice sessions and drops stale entries"
}

// Run implements scheduler.Job.
func (j *VoiceSweepJob) Run(ctx context.Context) error {
	stats := VoiceSweepStats{
		StartedAt:      time.Now().UTC(),
		SessionsBefore: j.tracker.ActiveSessions(),
	}

	j.tracker.Sweep(ctx)

	stats.SessionsAfter = j.tracker.ActiveSessions()
	stats.Duration = time.Since(stats.StartedAt)
	j.lastRun.Store(&stats)

	j.logger.Debug("voice sweep completed",
		"sessions_before", stats.SessionsBefore,
		"sessions_after", stats.SessionsAfter,
		"duration", stats.Duration,
	)
	return nil
}

// LastRun returns statistics from the most recent run, or nil.
func (j *VoiceSweepJob) LastRun() *VoiceSweepStats {
	if v := j.lastRun.Load(); v != nil {
		return v.(*VoiceSweepStats)
	}
	return nil
}
