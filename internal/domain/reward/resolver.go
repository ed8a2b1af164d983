// Package reward computes role-membership diffs for level transitions.
// The resolver is pure: it proposes additions and removals from the guild's
// reward table and the member's current roles, and never talks to Discord.
package reward

import (
	"sort"

	"github.com/rankforge/rankforge-bot/internal/domain/guildconfig"
)

// Removal reasons carried on role.removed events.
const (
	ReasonStrategy  = "strategy"
	ReasonLevelDown = "level_down"
)

// Award is a role to add, tagged with the tier that earned it.
type Award struct {
	RoleID string
	Level  int
}

// Removal is a role to remove, tagged with why.
type Removal struct {
	RoleID string
	Reason string
}

// Diff is the proposed role-membership change for one level transition.
// Additions and removals may overlap under remove_previous: a skipped tier's
// role is granted and then stripped within the same transition, so the
// removal wins for the member's final state.
type Diff struct {
	Add    []Award
	Remove []Removal
}

// IsEmpty reports whether the diff proposes no changes.
func (d Diff) IsEmpty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL-UP RESOLUTION
// ══════════════════════════════════════════════════════════════════════════════

// Resolve computes the role diff for a level-up from oldLevel to newLevel.
// Returns an empty diff when newLevel does not exceed oldLevel; the
// level-down path is ResolveLevelDown.
//
// Addition rule: every tier crossed by this transition whose role the member
// does not already hold is granted. A multi-level jump re-awards every tier
// skipped over in one grant.
func Resolve(oldLevel, newLevel int, rewards map[int]string, currentRoles []string, strategy guildconfig.RoleRemovalStrategy) Diff {
	if newLevel <= oldLevel || len(rewards) == 0 {
		return Diff{}
	}

	held := make(map[string]bool, len(currentRoles))
	for _, id := range currentRoles {
		held[id] = true
	}

	// Additions: newLevel ≥ required, oldLevel < required, not already held.
	adding := make(map[string]int) // roleID → tier that granted it
	for required, roleID := range rewards {
		if newLevel >= required && oldLevel < required && !held[roleID] {
			if prev, ok := adding[roleID]; !ok || required > prev {
				adding[roleID] = required
			}
		}
	}

	var removals map[string]string // roleID → reason
	switch strategy {
	case guildconfig.StrategyHighestOnly:
		// Only the current tier's role is ever granted; lower tiers crossed
		// by the jump are skipped outright instead of granted-then-stripped.
		tierRole := highestTierRole(newLevel, rewards)
		for roleID := range adding {
			if roleID != tierRole {
				delete(adding, roleID)
			}
		}
		removals = resolveHighestOnly(tierRole, rewards, held)
	case guildconfig.StrategyRemovePrevious:
		removals = resolveRemovePrevious(newLevel, rewards, held, adding)
	default:
		// keep_all: no removals.
	}

	return buildDiff(adding, removals)
}

// highestTierRole returns the role for the highest reward tier at or below
// the given level, or "" when no tier is reached.
func highestTierRole(level int, rewards map[int]string) string {
	currentTier := 0
	for required := range rewards {
		if required <= level && required > currentTier {
			currentTier = required
		}
	}
	if currentTier == 0 {
		return ""
	}
	return rewards[currentTier]
}

// resolveHighestOnly marks every reward-mapped role the member currently
// holds, other than the current tier's role, for removal.
func resolveHighestOnly(tierRole string, rewards map[int]string, held map[string]bool) map[string]string {
	removals := make(map[string]string)
	for _, roleID := range rewards {
		if roleID == tierRole {
			continue
		}
		if held[roleID] {
			removals[roleID] = ReasonStrategy
		}
	}
	return removals
}

// resolveRemovePrevious strips roles from tiers below the highest tier the
// member has now reached, unless the same role is also that tier's reward
// (a role reused across tiers must survive). Unlike highest_only, tiers the
// member holds from elsewhere above the current tier are left alone.
func resolveRemovePrevious(newLevel int, rewards map[int]string, held map[string]bool, adding map[string]int) map[string]string {
	currentTier := 0
	for required := range rewards {
		if required <= newLevel && required > currentTier {
			currentTier = required
		}
	}
	if currentTier == 0 {
		return nil
	}
	keepRole := rewards[currentTier]

	removals := make(map[string]string)
	for required, roleID := range rewards {
		if required >= currentTier || roleID == keepRole {
			continue
		}
		if _, granted := adding[roleID]; held[roleID] || granted {
			removals[roleID] = ReasonStrategy
		}
	}
	return removals
}

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL-DOWN RESOLUTION
// ══════════════════════════════════════════════════════════════════════════════

// ResolveLevelDown computes removals after a level decrease: every held
// reward role whose tier now exceeds the member's level is stripped,
// independent of the removal strategy, since those roles are no longer
// earned.
func ResolveLevelDown(newLevel int, rewards map[int]string, currentRoles []string) []Removal {
	held := make(map[string]bool, len(currentRoles))
	for _, id := range currentRoles {
		held[id] = true
	}

	// A role may be mapped at several tiers; it survives if any tier the
	// member still satisfies maps to it.
	earned := make(map[string]bool)
	for required, roleID := range rewards {
		if required <= newLevel {
			earned[roleID] = true
		}
	}

	removals := make(map[string]string)
	for required, roleID := range rewards {
		if required > newLevel && held[roleID] && !earned[roleID] {
			removals[roleID] = ReasonLevelDown
		}
	}

	return sortRemovals(removals)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func buildDiff(adding map[string]int, removals map[string]string) Diff {
	diff := Diff{}

	if len(adding) > 0 {
		diff.Add = make([]Award, 0, len(adding))
		for roleID, tier := range adding {
			diff.Add = append(diff.Add, Award{RoleID: roleID, Level: tier})
		}
		// Grant lower tiers first so the member's role list reads in
		// progression order.
		sort.Slice(diff.Add, func(i, j int) bool {
			if diff.Add[i].Level != diff.Add[j].Level {
				return diff.Add[i].Level < diff.Add[j].Level
			}
			return diff.Add[i].RoleID < diff.Add[j].RoleID
		})
	}

	diff.Remove = sortRemovals(removals)
	return diff
}

func sortRemovals(removals map[string]string) []Removal {
	if len(removals) == 0 {
		return nil
	}
	out := make([]Removal, 0, len(removals))
	for roleID, reason := range removals {
		out = append(out, Removal{RoleID: roleID, Reason: reason})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleID < out[j].RoleID })
	return out
}
