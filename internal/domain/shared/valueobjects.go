// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// Snowflake Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Snowflake represents a Discord snowflake identifier (guild, user, channel
// or role). Snowflakes are 64-bit integers transported as decimal strings.
type Snowflake string

// Discord snowflakes are 17-20 decimal digits for any realistic timestamp.
var snowflakeRegex = regexp.MustCompile(`^\d{17,20}$`)

// IsValid checks if the snowflake has a plausible format.
func (s Snowflake) IsValid() bool {
	return snowflakeRegex.MatchString(string(s))
}

// String returns the string representation.
func (s Snowflake) String() string {
	return string(s)
}

// IsEmpty checks if the snowflake is empty.
func (s Snowflake) IsEmpty() bool {
	return s == ""
}

// NewSnowflake creates a new Snowflake with validation.
func NewSnowflake(id string) (Snowflake, error) {
	sf := Snowflake(strings.TrimSpace(id))
	if !sf.IsValid() {
		return "", NewDomainError("shared", "NewSnowflake", ErrInvalidID, "invalid snowflake format")
	}
	return sf, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Multiplier Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Multiplier is a scaling factor applied to base XP rates, configured
// per role or per channel.
type Multiplier float64

// DefaultMultiplier is applied when no multiplier is configured.
const DefaultMultiplier Multiplier = 1.0

// Clamp floors the multiplier at zero. Negative factors would turn grants
// into silent revocations, so they are treated as "earns nothing".
func (m Multiplier) Clamp() Multiplier {
	if m < 0 {
		return 0
	}
	return m
}

// Float64 returns the underlying float64 value.
func (m Multiplier) Float64() float64 {
	return float64(m)
}

// ═══════════════════════════════════════════════════════════════════════════
// Rank Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Rank represents a member's position in a guild leaderboard.
type Rank int

const (
	MinRank Rank = 1
	// Unranked is the rank of a member with zero experience. Zero-XP members
	// are never "last place"; they simply have no place yet.
	Unranked Rank = 0
)

// IsValid checks if the rank is a real leaderboard position.
func (r Rank) IsValid() bool {
	return r >= MinRank
}

// Int returns the underlying int value.
func (r Rank) Int() int {
	return int(r)
}

// IsUnranked checks if the member holds no leaderboard position.
func (r Rank) IsUnranked() bool {
	return r == Unranked
}

// IsTop returns true if the rank is in the top N.
func (r Rank) IsTop(n int) bool {
	return r.IsValid() && int(r) <= n
}

// Medal returns a medal emoji for podium ranks.
func (r Rank) Medal() string {
	switch r {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return ""
	}
}

// NewRank creates a new Rank with validation.
func NewRank(position int) (Rank, error) {
	if position < 0 {
		return Unranked, NewDomainError("shared", "NewRank", ErrNegativeValue, "rank cannot be negative")
	}
	return Rank(position), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Leaderboard Limit Value Object
// ═══════════════════════════════════════════════════════════════════════════

// LeaderboardLimit is the number of entries requested from a leaderboard.
type LeaderboardLimit int

const (
	MinLeaderboardLimit     LeaderboardLimit = 1
	MaxLeaderboardLimit     LeaderboardLimit = 50
	DefaultLeaderboardLimit LeaderboardLimit = 10
)

// Clamp coerces the limit into the supported [1, 50] range.
// Out-of-range requests are adjusted, never rejected.
func (l LeaderboardLimit) Clamp() LeaderboardLimit {
	if l < MinLeaderboardLimit {
		return MinLeaderboardLimit
	}
	if l > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return l
}

// Int returns the underlying int value.
func (l LeaderboardLimit) Int() int {
	return int(l)
}
