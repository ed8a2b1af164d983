package level

import "math"

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL CURVE
// The experience→level mapping is a fixed quadratic threshold function.
// Level boundaries are compared for equality in the UI, so both directions
// must be exact integer arithmetic, never a float approximation.
// ══════════════════════════════════════════════════════════════════════════════

// ExperienceForLevel returns the total experience required to reach level l.
// The requirement is 5l² + 50l + 100 for l ≥ 1, and 0 for level 0.
// Level 1 therefore starts at exactly 155 XP.
func ExperienceForLevel(l int) int {
	if l <= 0 {
		return 0
	}
	return 5*l*l + 50*l + 100
}

// LevelFromExperience returns the largest level whose requirement is covered
// by the given experience total. The mapping is a monotonic, strictly
// increasing step function: xp 154 is still level 0, xp 155 is level 1.
func LevelFromExperience(xp int) int {
	if xp < ExperienceForLevel(1) {
		return 0
	}

	// Closed-form inverse of 5l² + 50l + 100 ≤ xp, then an integer
	// correction pass so float rounding can never shift a boundary.
	l := int((-50 + math.Sqrt(float64(500+20*xp))) / 10)
	if l < 1 {
		l = 1
	}
	for ExperienceForLevel(l+1) <= xp {
		l++
	}
	for l > 0 && ExperienceForLevel(l) > xp {
		l--
	}
	return l
}

// Progress describes where an experience total sits between two level
// boundaries. Used by rank-card rendering collaborators.
type Progress struct {
	Level        int // current level
	CurrentFloor int // total XP required for the current level
	NextRequired int // total XP required for the next level
	IntoLevel    int // XP earned past the current floor
	Needed       int // XP remaining until the next level
	Percent      int // 0-100 progress through the current level span
}

// ProgressWithinLevel computes level progress for an experience total.
func ProgressWithinLevel(xp int) Progress {
	if xp < 0 {
		xp = 0
	}

	lvl := LevelFromExperience(xp)
	floor := ExperienceForLevel(lvl)
	next := ExperienceForLevel(lvl + 1)

	span := next - floor
	into := xp - floor

	percent := 0
	if span > 0 {
		percent = into * 100 / span
	}

	return Progress{
		Level:        lvl,
		CurrentFloor: floor,
		NextRequired: next,
		IntoLevel:    into,
		Needed:       next - xp,
		Percent:      percent,
	}
}
