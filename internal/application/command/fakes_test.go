package command

import (
	"context"
	"sync"
	"time"

	"github.com/rankforge/rankforge-bot/internal/domain/guildconfig"
	"github.com/rankforge/rankforge-bot/internal/domain/level"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY FAKES
// Shared by the command handler tests. The fake repository mirrors the
// contract of the PostgreSQL implementation: relative deltas floored at
// zero, upsert-on-read, rank by descending experience.
// ══════════════════════════════════════════════════════════════════════════════

type fakeLevelRepo struct {
	mu      sync.Mutex
	records map[string]*level.UserLevelRecord

	// interleaveDelta is added inside ApplyDelta before the caller's delta,
	// simulating a concurrent writer landing between read and write.
	interleaveDelta int

	touchCalls    int
	setLevelCalls int
}

func newFakeLevelRepo() *fakeLevelRepo {
	return &fakeLevelRepo{records: make(map[string]*level.UserLevelRecord)}
}

func (r *fakeLevelRepo) key(guildID, userID string) string {
	return guildID + ":" + userID
}

func (r *fakeLevelRepo) seed(rec *level.UserLevelRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[r.key(rec.GuildID, rec.UserID)] = rec
}

func (r *fakeLevelRepo) Get(_ context.Context, guildID, userID string) (*level.UserLevelRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[r.key(guildID, userID)]
	if !ok {
		return nil, shared.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (r *fakeLevelRepo) GetOrCreate(_ context.Context, guildID, userID string) (*level.UserLevelRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := r.key(guildID, userID)
	rec, ok := r.records[k]
	if !ok {
		rec = level.NewRecord(guildID, userID)
		r.records[k] = rec
	}
	return rec.Clone(), nil
}

func (r *fakeLevelRepo) ApplyDelta(_ context.Context, guildID, userID string, delta, newLevel int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[r.key(guildID, userID)]
	if !ok {
		return 0, shared.ErrRecordNotFound
	}
	rec.XP += r.interleaveDelta
	r.interleaveDelta = 0
	rec.XP += delta
	if rec.XP < 0 {
		rec.XP = 0
	}
	rec.Level = newLevel
	rec.UpdatedAt = time.Now().UTC()
	return rec.XP, nil
}

func (r *fakeLevelRepo) SetLevel(_ context.Context, guildID, userID string, newLevel int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setLevelCalls++
	rec, ok := r.records[r.key(guildID, userID)]
	if !ok {
		return shared.ErrRecordNotFound
	}
	rec.Level = newLevel
	return nil
}

func (r *fakeLevelRepo) TouchActivity(_ context.Context, guildID, userID string, atMs int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchCalls++
	rec, ok := r.records[r.key(guildID, userID)]
	if !ok {
		return shared.ErrRecordNotFound
	}
	rec.LastActivityMs = atMs
	rec.TotalMessages++
	return nil
}

func (r *fakeLevelRepo) AddVoiceMillis(_ context.Context, guildID, userID string, millis int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[r.key(guildID, userID)]
	if !ok {
		return shared.ErrRecordNotFound
	}
	rec.TotalVoiceMillis += millis
	return nil
}

func (r *fakeLevelRepo) Rank(_ context.Context, guildID, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.records[r.key(guildID, userID)]
	if !ok || target.XP == 0 {
		return 0, nil
	}
	rank := 1
	for _, rec := range r.records {
		if rec.GuildID == guildID && rec.XP > target.XP {
			rank++
		}
	}
	return rank, nil
}

func (r *fakeLevelRepo) Leaderboard(_ context.Context, guildID string, limit int) ([]*level.UserLevelRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*level.UserLevelRecord
	for _, rec := range r.records {
		if rec.GuildID == guildID && rec.XP > 0 {
			out = append(out, rec.Clone())
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].XP > out[i].XP {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeLevelRepo) CountRanked(_ context.Context, guildID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.GuildID == guildID && rec.XP > 0 {
			n++
		}
	}
	return n, nil
}

func (r *fakeLevelRepo) ResetUser(_ context.Context, guildID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[r.key(guildID, userID)]
	if !ok {
		return shared.ErrRecordNotFound
	}
	rec.Reset()
	return nil
}

func (r *fakeLevelRepo) DeleteGuild(_ context.Context, guildID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, rec := range r.records {
		if rec.GuildID == guildID {
			delete(r.records, k)
			n++
		}
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────

type fakeConfigRepo struct {
	mu      sync.Mutex
	configs map[string]*guildconfig.GuildConfig
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{configs: make(map[string]*guildconfig.GuildConfig)}
}

func (r *fakeConfigRepo) Get(_ context.Context, guildID string) (*guildconfig.GuildConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[guildID]
	if !ok {
		return nil, shared.ErrConfigNotFound
	}
	return cfg.Clone(), nil
}

func (r *fakeConfigRepo) Upsert(_ context.Context, cfg *guildconfig.GuildConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.GuildID] = cfg.Clone()
	return nil
}

func (r *fakeConfigRepo) Delete(_ context.Context, guildID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.configs[guildID]
	delete(r.configs, guildID)
	return ok, nil
}

// ─────────────────────────────────────────────────────────────────────────────

type fakePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *fakePublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) byType(et shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == et {
			out = append(out, e)
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────

// newTestProvider builds a cache-less provider over the fake config repo.
func newTestProvider(repo *fakeConfigRepo, defaults guildconfig.Defaults) *guildconfig.Provider {
	return guildconfig.NewProvider(repo, nil, defaults, time.Minute)
}
