package postgres

import (
	"context"
	"fmt"

	"github.com/rankforge/rankforge-bot/internal/domain/level"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER LEVEL REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserLevelRepository implements level.Repository for PostgreSQL.
type UserLevelRepository struct {
	conn *Connection
}

// NewUserLevelRepository creates a new UserLevelRepository.
func NewUserLevelRepository(conn *Connection) *UserLevelRepository {
	return &UserLevelRepository{conn: conn}
}

const userLevelColumns = `guild_id, user_id, xp, level, last_activity_ms,
	   total_messages, total_voice_ms, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// Record Access
// ─────────────────────────────────────────────────────────────────────────────

// Get returns the record for a guild member.
func (r *UserLevelRepository) Get(ctx context.Context, guildID, userID string) (*level.UserLevelRecord, error) {
	query := `
		SELECT ` + userLevelColumns + `
		FROM user_levels
		WHERE guild_id = $1 AND user_id = $2
	`

	row := r.conn.QueryRow(ctx, query, guildID, userID)
	return r.scanRecord(row)
}

// GetOrCreate returns the record for a guild member, inserting a zero-valued
// row if none exists yet. The insert is conflict-safe so concurrent first
// messages from the same member converge on a single row.
func (r *UserLevelRepository) GetOrCreate(ctx context.Context, guildID, userID string) (*level.UserLevelRecord, error) {
	insert := `
		INSERT INTO user_levels (guild_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (guild_id, user_id) DO NOTHING
	`

	if _, err := r.conn.Exec(ctx, insert, guildID, userID); err != nil {
		return nil, fmt.Errorf("failed to ensure user level row: %w", err)
	}

	return r.Get(ctx, guildID, userID)
}

// ─────────────────────────────────────────────────────────────────────────────
// Experience Mutations
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDelta atomically adjusts a member's XP by delta, floors the result at
// zero, and writes the caller-computed level in the same statement. It returns
// the XP value actually stored so the caller can detect a concurrent write
// that invalidated the level it computed.
func (r *UserLevelRepository) ApplyDelta(ctx context.Context, guildID, userID string, delta, newLevel int) (int, error) {
	query := `
		UPDATE user_levels
		SET xp = GREATEST(xp + $3, 0),
		    level = $4,
		    updated_at = NOW()
		WHERE guild_id = $1 AND user_id = $2
		RETURNING xp
	`

	var storedXP int
	err := r.conn.QueryRow(ctx, query, guildID, userID, delta, newLevel).Scan(&storedXP)
	if IsNoRows(err) {
		return 0, shared.ErrRecordNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to apply xp delta: %w", err)
	}

	return storedXP, nil
}

// SetLevel writes a corrected level for a member. Used when ApplyDelta
// reports a stored XP that no longer matches the level the caller computed.
func (r *UserLevelRepository) SetLevel(ctx context.Context, guildID, userID string, newLevel int) error {
	query := `
		UPDATE user_levels
		SET level = $3, updated_at = NOW()
		WHERE guild_id = $1 AND user_id = $2
	`

	result, err := r.conn.Exec(ctx, query, guildID, userID, newLevel)
	if err != nil {
		return fmt.Errorf("failed to set level: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrRecordNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Activity Counters
// ─────────────────────────────────────────────────────────────────────────────

// TouchActivity records a message at the given timestamp: the activity clock
// moves forward and the message counter increments. The row's updated_at is
// deliberately left alone so pure activity touches do not reshuffle
// leaderboard tie-breaks.
func (r *UserLevelRepository) TouchActivity(ctx context.Context, guildID, userID string, atMs int64) error {
	query := `
		UPDATE user_levels
		SET last_activity_ms = $3,
		    total_messages = total_messages + 1
		WHERE guild_id = $1 AND user_id = $2
	`

	result, err := r.conn.Exec(ctx, query, guildID, userID, atMs)
	if err != nil {
		return fmt.Errorf("failed to touch activity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrRecordNotFound
	}

	return nil
}

// AddVoiceMillis adds accumulated voice-connected time to a member's counter.
func (r *UserLevelRepository) AddVoiceMillis(ctx context.Context, guildID, userID string, millis int64) error {
	query := `
		UPDATE user_levels
		SET total_voice_ms = total_voice_ms + $3
		WHERE guild_id = $1 AND user_id = $2
	`

	result, err := r.conn.Exec(ctx, query, guildID, userID, millis)
	if err != nil {
		return fmt.Errorf("failed to add voice time: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrRecordNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Ranking
// ─────────────────────────────────────────────────────────────────────────────

// Rank returns the member's 1-based position among ranked members of the
// guild. Members with zero XP are unranked and get position 0.
func (r *UserLevelRepository) Rank(ctx context.Context, guildID, userID string) (int, error) {
	query := `
		SELECT xp,
		       (SELECT COUNT(*) FROM user_levels o
		        WHERE o.guild_id = u.guild_id AND o.xp > u.xp) + 1
		FROM user_levels u
		WHERE guild_id = $1 AND user_id = $2
	`

	var xp, position int
	err := r.conn.QueryRow(ctx, query, guildID, userID).Scan(&xp, &position)
	if IsNoRows(err) {
		return 0, shared.ErrRecordNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to compute rank: %w", err)
	}

	if xp == 0 {
		return int(shared.Unranked), nil
	}
	return position, nil
}

// Leaderboard returns the guild's top members ordered by XP descending, ties
// broken by most recent update. Zero-XP members never appear.
func (r *UserLevelRepository) Leaderboard(ctx context.Context, guildID string, limit int) ([]*level.UserLevelRecord, error) {
	query := `
		SELECT ` + userLevelColumns + `
		FROM user_levels
		WHERE guild_id = $1 AND xp > 0
		ORDER BY xp DESC, updated_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

// CountRanked returns the number of members in the guild with positive XP.
func (r *UserLevelRepository) CountRanked(ctx context.Context, guildID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM user_levels WHERE guild_id = $1 AND xp > 0",
		guildID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ranked members: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Resets
// ─────────────────────────────────────────────────────────────────────────────

// ResetUser zeroes a member's progression while keeping the row.
func (r *UserLevelRepository) ResetUser(ctx context.Context, guildID, userID string) error {
	query := `
		UPDATE user_levels
		SET xp = 0,
		    level = 0,
		    last_activity_ms = 0,
		    total_messages = 0,
		    total_voice_ms = 0,
		    updated_at = NOW()
		WHERE guild_id = $1 AND user_id = $2
	`

	result, err := r.conn.Exec(ctx, query, guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to reset user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrRecordNotFound
	}

	return nil
}

// DeleteGuild removes every record for a guild and returns how many rows
// were deleted. Deleting an untracked guild is not an error.
func (r *UserLevelRepository) DeleteGuild(ctx context.Context, guildID string) (int64, error) {
	result, err := r.conn.Exec(ctx, "DELETE FROM user_levels WHERE guild_id = $1", guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete guild records: %w", err)
	}
	return result.RowsAffected(), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// scanRecord scans a single user level record from a row.
func (r *UserLevelRepository) scanRecord(row pgx.Row) (*level.UserLevelRecord, error) {
	var rec level.UserLevelRecord

	err := row.Scan(
		&rec.GuildID,
		&rec.UserID,
		&rec.XP,
		&rec.Level,
		&rec.LastActivityMs,
		&rec.TotalMessages,
		&rec.TotalVoiceMillis,
		&rec.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user level record: %w", err)
	}

	return &rec, nil
}

// scanRecords scans multiple user level records from rows.
func (r *UserLevelRepository) scanRecords(rows pgx.Rows) ([]*level.UserLevelRecord, error) {
	var records []*level.UserLevelRecord

	for rows.Next() {
		var rec level.UserLevelRecord

		err := rows.Scan(
			&rec.GuildID,
			&rec.UserID,
			&rec.XP,
			&rec.Level,
			&rec.LastActivityMs,
			&rec.TotalMessages,
			&rec.TotalVoiceMillis,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user level record: %w", err)
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}
