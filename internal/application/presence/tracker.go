// Package presence tracks live voice sessions in memory. The gateway feeds
// voice state updates in; the tracker measures how long each member stays
// eligible and hands closed sessions to the voice accounting command.
//
// Sessions are process-local by design: a restart loses at most the
// in-flight interval, and the periodic sweep bounds that loss.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rankforge/rankforge-bot/internal/application/command"
	"github.com/rankforge/rankforge-bot/pkg/timeutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// GATEWAY INTERFACES
// ═══════════════════════════════════════════════════════════════════════════

// VoiceState is one member's live voice presence.
type VoiceState struct {
	GuildID    string
	UserID     string
	ChannelID  string
	Deafened   bool
	Suppressed bool
}

// StateReader exposes the gateway's current voice states. Used to rebuild
// sessions after a (re)connect and to detect entries the gateway no longer
// knows about.
type StateReader interface {
	VoiceStates() []VoiceState
}

// MemberRolesProvider reads a member's current role IDs at flush time.
type MemberRolesProvider interface {
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
}

// VoiceRecorder accounts a closed voice session. Satisfied by
// command.RecordVoiceHandler.
type VoiceRecorder interface {
	Handle(ctx context.Context, cmd command.RecordVoiceCommand) (*command.RecordVoiceResult, error)
}

// ═══════════════════════════════════════════════════════════════════════════
// CONFIG
// ═══════════════════════════════════════════════════════════════════════════

// Config tunes the tracker.
type Config struct {
	// SweepInterval is how often long-running sessions are flushed
	// mid-flight so a crash cannot lose unbounded voice time.
	SweepInterval time.Duration

	// MinFlushMs is the shortest session worth accounting on a normal
	// close or channel move. Hopping in and out of a channel earns nothing.
	MinFlushMs int64

	// MinShutdownFlushMs is the shorter guard used when the process shuts
	// down and every open session is force-closed.
	MinShutdownFlushMs int64
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() Config {
	return Config{
		SweepInterval:      5 * time.Minute,
		MinFlushMs:         10_000,
		MinShutdownFlushMs: 1_000,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// TRACKER
// ═══════════════════════════════════════════════════════════════════════════

type sessionKey struct {
	guildID string
	userID  string
}

type session struct {
	channelID string
	startMs   int64
}

// Tracker owns the in-memory session table.
type Tracker struct {
	mu       sync.Mutex
	sessions map[sessionKey]session

	recorder VoiceRecorder
	roles    MemberRolesProvider
	states   StateReader

	config Config
	logger *slog.Logger

	// nowMs is swappable for tests.
	nowMs func() int64
}

// NewTracker creates a Tracker. The state reader may be nil; stale-entry
// detection and Rebuild are then disabled.
func NewTracker(recorder VoiceRecorder, roles MemberRolesProvider, states StateReader, config Config, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultConfig().SweepInterval
	}
	return &Tracker{
		sessions: make(map[sessionKey]session),
		recorder: recorder,
		roles:    roles,
		states:   states,
		config:   config,
		logger:   logger.With("component", "presence_tracker"),
		nowMs:    timeutil.NowMillis,
	}
}

// HandleVoiceState processes one gateway voice state update for a member.
// An empty channelID means the member left voice. Deafened or suppressed
// members are treated as absent: their running session closes and no new
// one starts until they become audible again.
func (t *Tracker) HandleVoiceState(ctx context.Context, state VoiceState) {
	key := sessionKey{guildID: state.GuildID, userID: state.UserID}
	eligible := state.ChannelID != "" && !state.Deafened && !state.Suppressed
	now := t.nowMs()

	t.mu.Lock()
	current, active := t.sessions[key]

	switch {
	case active && !eligible:
		delete(t.sessions, key)
		t.mu.Unlock()
		t.flush(ctx, key, current, now, t.config.MinFlushMs)
		return

	case active && eligible && state.ChannelID != current.channelID:
		// Channel move: close the old session and start fresh so the
		// accounting carries the channel it was actually spent in.
		t.sessions[key] = session{channelID: state.ChannelID, startMs: now}
		t.mu.Unlock()
		t.flush(ctx, key, current, now, t.config.MinFlushMs)
		return

	case !active && eligible:
		t.sessions[key] = session{channelID: state.ChannelID, startMs: now}
	}
	t.mu.Unlock()
}

// Sweep flushes sessions that have been running for most of a sweep
// interval, restarting their clock, and drops sessions the gateway no
// longer reports. Registered as a scheduler job.
func (t *Tracker) Sweep(ctx context.Context) {
	now := t.nowMs()
	intervalMs := t.config.SweepInterval.Milliseconds()
	// Flush anything at ≥95% of the interval so a session started just
	// after the previous sweep is not skipped twice in a row.
	threshold := intervalMs * 95 / 100

	live := t.liveKeys()

	t.mu.Lock()
	type flushItem struct {
		key  sessionKey
		sess session
		min  int64
	}
	var toFlush []flushItem

	for key, sess := range t.sessions {
		if live != nil {
			if _, ok := live[key]; !ok {
				// The member is no longer eligible per the gateway: gone
				// from voice, deafened, suppressed, or the disconnect
				// event was missed. Account what we saw and drop the
				// entry.
				delete(t.sessions, key)
				toFlush = append(toFlush, flushItem{key: key, sess: sess, min: t.config.MinFlushMs})
				continue
			}
		}
		if now-sess.startMs >= threshold {
			t.sessions[key] = session{channelID: sess.channelID, startMs: now}
			toFlush = append(toFlush, flushItem{key: key, sess: sess, min: 0})
		}
	}
	t.mu.Unlock()

	for _, item := range toFlush {
		t.flush(ctx, item.key, item.sess, now, item.min)
	}
}

// FlushAll closes every open session. Called on shutdown; the guard is
// shorter than the normal one so a clean stop loses as little as possible.
func (t *Tracker) FlushAll(ctx context.Context) {
	now := t.nowMs()

	t.mu.Lock()
	drained := t.sessions
	t.sessions = make(map[sessionKey]session)
	t.mu.Unlock()

	for key, sess := range drained {
		t.flush(ctx, key, sess, now, t.config.MinShutdownFlushMs)
	}
}

// Rebuild replaces the session table from the gateway's live voice states.
// Called on Ready so members already in voice when the bot connects start
// earning from that moment.
func (t *Tracker) Rebuild() {
	if t.states == nil {
		return
	}
	now := t.nowMs()
	fresh := make(map[sessionKey]session)
	for _, state := range t.states.VoiceStates() {
		if state.ChannelID == "" || state.Deafened || state.Suppressed {
			continue
		}
		key := sessionKey{guildID: state.GuildID, userID: state.UserID}
		fresh[key] = session{channelID: state.ChannelID, startMs: now}
	}

	t.mu.Lock()
	t.sessions = fresh
	count := len(fresh)
	t.mu.Unlock()

	t.logger.Info("rebuilt voice sessions", "count", count)
}

// ActiveSessions returns the number of open sessions.
func (t *Tracker) ActiveSessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// flush accounts one closed (or checkpointed) session. A session must run
// strictly longer than minMs to be accounted; exactly at the guard it is
// discarded.
func (t *Tracker) flush(ctx context.Context, key sessionKey, sess session, nowMs, minMs int64) {
	duration := nowMs - sess.startMs
	if duration <= minMs || duration <= 0 {
		return
	}

	var roleIDs []string
	if t.roles != nil {
		ids, err := t.roles.MemberRoles(ctx, key.guildID, key.userID)
		if err != nil {
			t.logger.Warn("failed to read member roles for voice flush",
				"guild_id", key.guildID,
				"user_id", key.userID,
				"error", err,
			)
		} else {
			roleIDs = ids
		}
	}

	_, err := t.recorder.Handle(ctx, command.RecordVoiceCommand{
		GuildID:       key.guildID,
		UserID:        key.userID,
		ChannelID:     sess.channelID,
		DurationMs:    duration,
		MemberRoleIDs: roleIDs,
	})
	if err != nil {
		t.logger.Error("failed to account voice session",
			"guild_id", key.guildID,
			"user_id", key.userID,
			"duration_ms", duration,
			"error", err,
		)
	}
}

// liveKeys returns the members the gateway currently reports as eligible.
// The same predicate as HandleVoiceState applies: a deafened or suppressed
// member is as absent as a departed one, so the sweep reconciles them out
// instead of checkpointing them forever.
func (t *Tracker) liveKeys() map[sessionKey]struct{} {
	if t.states == nil {
		return nil
	}
	live := make(map[sessionKey]struct{})
	for _, state := range t.states.VoiceStates() {
		if state.ChannelID == "" || state.Deafened || state.Suppressed {
			continue
		}
		live[sessionKey{guildID: state.GuildID, userID: state.UserID}] = struct{}{}
	}
	return live
}
