// Package timeutil provides epoch-millisecond time utilities for RankForge.
// Discord snowflake timestamps, message cooldowns, and voice session intervals
// are all tracked in milliseconds since the Unix epoch.
// No external dependencies - uses only standard library.
package timeutil

import "time"

// NowMillis returns the current time as milliseconds since the Unix epoch.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// ToMillis converts a time to milliseconds since the Unix epoch.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts epoch milliseconds to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// MillisSince returns the number of milliseconds elapsed since the given
// epoch-millisecond timestamp. Negative results are clamped to 0 so clock
// skew never produces negative durations.
func MillisSince(ms int64) int64 {
	elapsed := NowMillis() - ms
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// DurationToMillis converts a duration to whole milliseconds.
func DurationToMillis(d time.Duration) int64 {
	return d.Milliseconds()
}

// MillisToDuration converts epoch-relative milliseconds to a duration.
func MillisToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// MillisToMinutes converts milliseconds to fractional minutes.
// Voice XP rates are expressed per minute of eligible presence.
func MillisToMinutes(ms int64) float64 {
	return float64(ms) / 60000.0
}

// CooldownExpired reports whether a cooldown window has fully elapsed.
// The window is strict: exactly at the boundary counts as expired, one
// millisecond before it does not. A zero lastActivityMs means the member
// has never been active, so no cooldown applies.
func CooldownExpired(lastActivityMs, cooldownSeconds, nowMs int64) bool {
	if lastActivityMs <= 0 {
		return true
	}
	return nowMs >= lastActivityMs+cooldownSeconds*1000
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
)

// FormatUTC formats a time in UTC with the given layout.
func FormatUTC(t time.Time, layout string) string {
	return t.UTC().Format(layout)
}

// FormatMillis formats an epoch-millisecond timestamp as a UTC datetime string.
func FormatMillis(ms int64, layout string) string {
	return FromMillis(ms).Format(layout)
}
