package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankforge/rankforge-bot/internal/application/command"
)

// ═══════════════════════════════════════════════════════════════════════════
// FAKES
// ═══════════════════════════════════════════════════════════════════════════

type fakeRecorder struct {
	calls []command.RecordVoiceCommand
}

func (f *fakeRecorder) Handle(_ context.Context, cmd command.RecordVoiceCommand) (*command.RecordVoiceResult, error) {
	f.calls = append(f.calls, cmd)
	return &command.RecordVoiceResult{Granted: true}, nil
}

type fakeStates struct {
	states []VoiceState
}

func (f *fakeStates) VoiceStates() []VoiceState {
	return f.states
}

type fakeClock struct {
	ms int64
}

func (c *fakeClock) now() int64 { return c.ms }

func (c *fakeClock) advance(d time.Duration) { c.ms += d.Milliseconds() }

func newTestTracker(states StateReader) (*Tracker, *fakeRecorder, *fakeClock) {
	recorder := &fakeRecorder{}
	clock := &fakeClock{ms: 1_000_000}
	tracker := NewTracker(recorder, nil, states, DefaultConfig(), nil)
	tracker.nowMs = clock.now
	return tracker, recorder, clock
}

// ═══════════════════════════════════════════════════════════════════════════
// SESSION LIFECYCLE
// ═══════════════════════════════════════════════════════════════════════════

func TestTracker_JoinThenLeave_AccountsDuration(t *testing.T) {
	tracker, recorder, clock := newTestTracker(nil)
	ctx := context.Background()

	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "vc1"})
	assert.Equal(t, 1, tracker.ActiveSessions())

	clock.advance(3 * time.Minute)
	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: ""})

	require.Len(t, recorder.calls, 1)
	call := recorder.calls[0]
	assert.Equal(t, "g1", call.GuildID)
	assert.Equal(t, "u1", call.UserID)
	assert.Equal(t, "vc1", call.ChannelID)
	assert.Equal(t, (3 * time.Minute).Milliseconds(), call.DurationMs)
	assert.Equal(t, 0, tracker.ActiveSessions())
}

func TestTracker_ShortHop_IsDiscarded(t *testing.T) {
	tracker, recorder, clock := newTestTracker(nil)
	ctx := context.Background()

	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "vc1"})
	clock.advance(5 * time.Second) // below the 10s guard
	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: ""})

	assert.Empty(t, recorder.calls)
	assert.Equal(t, 0, tracker.ActiveSessions())
}

func TestTracker_ChannelMove_FlushesAndRestarts(t *testing.T) {
	tracker, recorder, clock := newTestTracker(nil)
	ctx := context.Background()

	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "vc1"})
	clock.advance(2 * time.Minute)
	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "vc2"})

	require.Len(t, recorder.calls, 1)
	assert.Equal(t, "vc1", recorder.calls[0].ChannelID)
	assert.Equal(t, (2 * time.Minute).Milliseconds(), recorder.calls[0].DurationMs)

	// The new session keeps running in the new channel.
	assert.Equal(t, 1, tracker.ActiveSessions())

	clock.advance(1 * time.Minute)
	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: ""})

	require.Len(t, recorder.calls, 2)
	assert.Equal(t, "vc2", recorder.calls[1].ChannelID)
	assert.Equal(t, (1 * time.Minute).Milliseconds(), recorder.calls[1].DurationMs)
}

func TestTracker_DeafenedCloses_UndeafenedRestarts(t *testing.T) {
	tracker, recorder, clock := newTestTracker(nil)
	ctx := context.Background()

	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "vc1"})
	clock.advance(1 * time.Minute)

	// Deafening closes the session.
	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "vc1", Deafened: true})
	require.Len(t, recorder.calls, 1)
	assert.Equal(t, 0, tracker.ActiveSessions())

	// While deafened, further updates start nothing.
	clock.advance(10 * time.Minute)
	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "vc1", Deafened: true})
	assert.Equal(t, 0, tracker.ActiveSessions())

	// Undeafening starts a fresh session; the deafened stretch earned nothing.
	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "vc1"})
	clock.advance(1 * time.Minute)
	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: ""})

	require.Len(t, recorder.calls, 2)
	assert.Equal(t, (1 * time.Minute).Milliseconds(), recorder.calls[1].DurationMs)
}

func TestTracker_SuppressedNeverStarts(t *testing.T) {
	tracker, recorder, _ := newTestTracker(nil)
	ctx := context.Background()

	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "stage1", Suppressed: true})

	assert.Equal(t, 0, tracker.ActiveSessions())
	assert.Empty(t, recorder.calls)
}

// ═══════════════════════════════════════════════════════════════════════════
// SWEEP
// ═══════════════════════════════════════════════════════════════════════════

func TestTracker_Sweep_CheckpointsLongSessions(t *testing.T) {
	tracker, recorder, clock := newTestTracker(nil)
	ctx := context.Background()

	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "vc1"})

	// Just under the 95% threshold: nothing flushes.
	clock.advance(4 * time.Minute)
	tracker.Sweep(ctx)
	assert.Empty(t, recorder.calls)

	// Past the threshold: the session is checkpointed and keeps running.
	clock.advance(1 * time.Minute)
	tracker.Sweep(ctx)
	require.Len(t, recorder.calls, 1)
	assert.Equal(t, (5 * time.Minute).Milliseconds(), recorder.calls[0].DurationMs)
	assert.Equal(t, 1, tracker.ActiveSessions())

	// The clock restarted at the sweep, so leaving right after accounts
	// only the tail.
	clock.advance(30 * time.Second)
	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: ""})
	require.Len(t, recorder.calls, 2)
	assert.Equal(t, (30 * time.Second).Milliseconds(), recorder.calls[1].DurationMs)
}

func TestTracker_Sweep_ReconcilesDeafenedMember(t *testing.T) {
	// The member deafened but the gateway update never reached us. The
	// sweep must stop their clock: eligible time up to the sweep is
	// accounted once and the session is dropped.
	states := &fakeStates{states: []VoiceState{
		{GuildID: "g1", UserID: "u1", ChannelID: "vc1", Deafened: true},
	}}
	tracker, recorder, clock := newTestTracker(states)
	ctx := context.Background()

	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "vc1"})
	clock.advance(2 * time.Minute)

	tracker.Sweep(ctx)
	require.Len(t, recorder.calls, 1)
	assert.Equal(t, (2 * time.Minute).Milliseconds(), recorder.calls[0].DurationMs)
	assert.Equal(t, 0, tracker.ActiveSessions())

	// Staying deafened earns nothing on later sweeps.
	clock.advance(10 * time.Minute)
	tracker.Sweep(ctx)
	assert.Len(t, recorder.calls, 1)
}

func TestTracker_Sweep_DropsSessionsGatewayForgot(t *testing.T) {
	states := &fakeStates{}
	tracker, recorder, clock := newTestTracker(states)
	ctx := context.Background()

	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "vc1"})
	clock.advance(2 * time.Minute)

	// The gateway reports nobody in voice: the entry is stale.
	tracker.Sweep(ctx)

	require.Len(t, recorder.calls, 1)
	assert.Equal(t, (2 * time.Minute).Milliseconds(), recorder.calls[0].DurationMs)
	assert.Equal(t, 0, tracker.ActiveSessions())
}

// ═══════════════════════════════════════════════════════════════════════════
// SHUTDOWN AND REBUILD
// ═══════════════════════════════════════════════════════════════════════════

func TestTracker_FlushAll_UsesShutdownGuard(t *testing.T) {
	tracker, recorder, clock := newTestTracker(nil)
	ctx := context.Background()

	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "vc1"})
	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u2", ChannelID: "vc1"})

	// 5s is below the normal 10s guard but above the 1s shutdown guard.
	clock.advance(5 * time.Second)
	tracker.FlushAll(ctx)

	assert.Len(t, recorder.calls, 2)
	assert.Equal(t, 0, tracker.ActiveSessions())
}

func TestTracker_FlushAll_StillDiscardsInstantSessions(t *testing.T) {
	tracker, recorder, clock := newTestTracker(nil)
	ctx := context.Background()

	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "vc1"})
	clock.advance(500 * time.Millisecond)
	tracker.FlushAll(ctx)

	assert.Empty(t, recorder.calls)
}

func TestTracker_FlushGuardIsStrict(t *testing.T) {
	tracker, recorder, clock := newTestTracker(nil)
	ctx := context.Background()

	// Exactly at the 10s guard: discarded.
	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "vc1"})
	clock.advance(10 * time.Second)
	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: ""})
	assert.Empty(t, recorder.calls)

	// One millisecond past the guard: accounted.
	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: "vc1"})
	clock.advance(10*time.Second + time.Millisecond)
	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: ""})

	require.Len(t, recorder.calls, 1)
	assert.Equal(t, int64(10_001), recorder.calls[0].DurationMs)
}

func TestTracker_Rebuild_SeedsFromLiveStates(t *testing.T) {
	states := &fakeStates{states: []VoiceState{
		{GuildID: "g1", UserID: "u1", ChannelID: "vc1"},
		{GuildID: "g1", UserID: "u2", ChannelID: "vc1", Deafened: true},
		{GuildID: "g2", UserID: "u3", ChannelID: "stage1", Suppressed: true},
		{GuildID: "g2", UserID: "u4", ChannelID: "vc2"},
	}}
	tracker, recorder, clock := newTestTracker(states)
	ctx := context.Background()

	tracker.Rebuild()

	// Only audible members got sessions.
	assert.Equal(t, 2, tracker.ActiveSessions())

	clock.advance(1 * time.Minute)
	tracker.HandleVoiceState(ctx, VoiceState{GuildID: "g1", UserID: "u1", ChannelID: ""})

	require.Len(t, recorder.calls, 1)
	assert.Equal(t, (1 * time.Minute).Milliseconds(), recorder.calls[0].DurationMs)
}
