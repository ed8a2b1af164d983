package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rankforge/rankforge-bot/internal/domain/guildconfig"
)

// Shared fixture: three tiers, distinct roles.
var tieredRewards = map[int]string{
	5:  "roleA",
	10: "roleB",
	15: "roleC",
}

func addedRoles(d Diff) []string {
	out := make([]string, 0, len(d.Add))
	for _, a := range d.Add {
		out = append(out, a.RoleID)
	}
	return out
}

func removedRoles(removals []Removal) []string {
	out := make([]string, 0, len(removals))
	for _, r := range removals {
		out = append(out, r.RoleID)
	}
	return out
}

func TestResolve_KeepAll_MultiLevelJump(t *testing.T) {
	// A jump over several tiers re-awards every crossed tier.
	diff := Resolve(4, 12, tieredRewards, nil, guildconfig.StrategyKeepAll)

	assert.Equal(t, []string{"roleA", "roleB"}, addedRoles(diff))
	assert.Empty(t, diff.Remove)

	// Tier 15 is above the new level; roleC is never added.
	assert.NotContains(t, addedRoles(diff), "roleC")
}

func TestResolve_AdditionIsIdempotent(t *testing.T) {
	held := []string{"roleA", "roleB"}

	diff := Resolve(4, 12, tieredRewards, held, guildconfig.StrategyKeepAll)
	assert.True(t, diff.IsEmpty(), "held roles must never be re-proposed")

	// Same inputs, same result.
	again := Resolve(4, 12, tieredRewards, held, guildconfig.StrategyKeepAll)
	assert.Equal(t, diff, again)
}

func TestResolve_NoTransition(t *testing.T) {
	assert.True(t, Resolve(12, 12, tieredRewards, nil, guildconfig.StrategyKeepAll).IsEmpty())
	assert.True(t, Resolve(12, 4, tieredRewards, nil, guildconfig.StrategyKeepAll).IsEmpty())
	assert.True(t, Resolve(4, 12, nil, nil, guildconfig.StrategyKeepAll).IsEmpty())
}

func TestResolve_HighestOnly(t *testing.T) {
	// Jump 4→12 while holding roleA: the member lands on tier 10 only.
	diff := Resolve(4, 12, tieredRewards, []string{"roleA"}, guildconfig.StrategyHighestOnly)

	assert.Equal(t, []string{"roleB"}, addedRoles(diff))
	assert.Equal(t, []string{"roleA"}, removedRoles(diff.Remove))
	assert.Equal(t, ReasonStrategy, diff.Remove[0].Reason)
}

func TestResolve_HighestOnly_NothingHeld(t *testing.T) {
	// Skipped tiers are suppressed, not granted-then-stripped: no phantom
	// removal of a role the member never had.
	diff := Resolve(4, 12, tieredRewards, nil, guildconfig.StrategyHighestOnly)

	assert.Equal(t, []string{"roleB"}, addedRoles(diff))
	assert.Empty(t, diff.Remove)
}

func TestResolve_HighestOnly_TierRoleAlreadyHeld(t *testing.T) {
	diff := Resolve(9, 12, tieredRewards, []string{"roleB"}, guildconfig.StrategyHighestOnly)
	assert.True(t, diff.IsEmpty())
}

func TestResolve_RemovePrevious(t *testing.T) {
	// Jump 4→12: both crossed tiers are granted, then the below-tier role
	// is stripped in the same transition. Net holds: roleB.
	diff := Resolve(4, 12, tieredRewards, nil, guildconfig.StrategyRemovePrevious)

	assert.Equal(t, []string{"roleA", "roleB"}, addedRoles(diff))
	assert.Equal(t, []string{"roleA"}, removedRoles(diff.Remove))
}

func TestResolve_RemovePrevious_ReusedRoleSurvives(t *testing.T) {
	// The same role rewarded at two tiers must not be stripped when the
	// member moves between them.
	reused := map[int]string{
		5:  "roleX",
		10: "roleX",
		15: "roleC",
	}

	diff := Resolve(4, 12, reused, nil, guildconfig.StrategyRemovePrevious)
	assert.Equal(t, []string{"roleX"}, addedRoles(diff))
	assert.Empty(t, diff.Remove)
}

func TestResolve_RemovePrevious_SingleStep(t *testing.T) {
	diff := Resolve(9, 10, tieredRewards, []string{"roleA"}, guildconfig.StrategyRemovePrevious)

	assert.Equal(t, []string{"roleB"}, addedRoles(diff))
	assert.Equal(t, []string{"roleA"}, removedRoles(diff.Remove))
}

func TestResolveLevelDown(t *testing.T) {
	// Dropping to level 7 strips tier-10's role but keeps tier-5's.
	removals := ResolveLevelDown(7, tieredRewards, []string{"roleA", "roleB"})

	assert.Equal(t, []string{"roleB"}, removedRoles(removals))
	assert.Equal(t, ReasonLevelDown, removals[0].Reason)
}

func TestResolveLevelDown_ReusedRoleSurvives(t *testing.T) {
	reused := map[int]string{
		5:  "roleX",
		10: "roleX",
	}

	// Level 7 still satisfies tier 5, which maps the same role.
	removals := ResolveLevelDown(7, reused, []string{"roleX"})
	assert.Empty(t, removals)
}

func TestResolveLevelDown_OnlyHeldRoles(t *testing.T) {
	removals := ResolveLevelDown(0, tieredRewards, []string{"roleC"})
	assert.Equal(t, []string{"roleC"}, removedRoles(removals))
}
