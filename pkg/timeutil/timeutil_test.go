package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownExpired_StrictBoundary(t *testing.T) {
	// 60s cooldown started at 1000ms.
	assert.False(t, CooldownExpired(1_000, 60, 60_999), "one ms before the boundary is still cooling down")
	assert.True(t, CooldownExpired(1_000, 60, 61_000), "exactly at the boundary is expired")
	assert.True(t, CooldownExpired(1_000, 60, 61_001))
}

func TestCooldownExpired_NeverActiveHasNoCooldown(t *testing.T) {
	// A fresh record carries last_activity_ms = 0. The member's first
	// message must earn regardless of how the clock relates to the epoch.
	assert.True(t, CooldownExpired(0, 60, 5_000))
	assert.True(t, CooldownExpired(0, 60, 0))
}

func TestCooldownExpired_ZeroCooldown(t *testing.T) {
	assert.True(t, CooldownExpired(1_000, 0, 1_000))
}

func TestMillisRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, at, FromMillis(ToMillis(at)))
}

func TestMillisToMinutes(t *testing.T) {
	assert.Equal(t, 1.0, MillisToMinutes(60_000))
	assert.Equal(t, 2.5, MillisToMinutes(150_000))
}
