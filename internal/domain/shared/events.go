// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Experience events
	EventXPGranted EventType = "xp.granted"
	EventXPRevoked EventType = "xp.revoked"

	// Level transition events
	EventLevelUp   EventType = "level.up"
	EventLevelDown EventType = "level.down"

	// Role reward events
	EventRoleAwarded EventType = "role.awarded"
	EventRoleRemoved EventType = "role.removed"

	// Guild configuration events
	EventConfigUpdated EventType = "config.updated"
	EventConfigDeleted EventType = "config.deleted"

	// Reset events
	EventUserReset  EventType = "user.reset"
	EventGuildReset EventType = "guild.reset"

	// System events
	EventOperationFailed EventType = "system.operation_failed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// MemberAggregateID builds the aggregate ID for a (guild, member) pair.
// All per-member events share this form so subscribers can partition by it.
func MemberAggregateID(guildID, userID string) string {
	return guildID + ":" + userID
}

// ═══════════════════════════════════════════════════════════════════════════
// Experience Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGrantedEvent is emitted every time a member gains experience,
// regardless of whether a level transition occurred.
type XPGrantedEvent struct {
	BaseEvent
	GuildID  string `json:"guild_id"`
	UserID   string `json:"user_id"`
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Source   string `json:"source"` // e.g., "message", "voice", "manual"
}

// Payload implements Event interface.
func (e XPGrantedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"guild_id":  e.GuildID,
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"source":    e.Source,
	}
}

// NewXPGrantedEvent creates a new XPGrantedEvent.
func NewXPGrantedEvent(guildID, userID string, amount, newTotal int, source string) XPGrantedEvent {
	return XPGrantedEvent{
		BaseEvent: NewBaseEvent(EventXPGranted, MemberAggregateID(guildID, userID)),
		GuildID:   guildID,
		UserID:    userID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// XPRevokedEvent is emitted when experience is taken away from a member.
type XPRevokedEvent struct {
	BaseEvent
	GuildID  string `json:"guild_id"`
	UserID   string `json:"user_id"`
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Reason   string `json:"reason,omitempty"`
}

// Payload implements Event interface.
func (e XPRevokedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"guild_id":  e.GuildID,
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"reason":    e.Reason,
	}
}

// NewXPRevokedEvent creates a new XPRevokedEvent.
func NewXPRevokedEvent(guildID, userID string, amount, newTotal int, reason string) XPRevokedEvent {
	return XPRevokedEvent{
		BaseEvent: NewBaseEvent(EventXPRevoked, MemberAggregateID(guildID, userID)),
		GuildID:   guildID,
		UserID:    userID,
		Amount:    amount,
		NewTotal:  newTotal,
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Transition Events
// ═══════════════════════════════════════════════════════════════════════════

// LevelUpEvent is emitted when a grant pushes a member past a level boundary.
// ChannelID carries the channel of the triggering activity so notification
// renderers can fall back to it when no announcement channel is configured.
type LevelUpEvent struct {
	BaseEvent
	GuildID   string `json:"guild_id"`
	UserID    string `json:"user_id"`
	OldLevel  int    `json:"old_level"`
	NewLevel  int    `json:"new_level"`
	XP        int    `json:"xp"`
	ChannelID string `json:"channel_id,omitempty"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"guild_id":   e.GuildID,
		"user_id":    e.UserID,
		"old_level":  e.OldLevel,
		"new_level":  e.NewLevel,
		"xp":         e.XP,
		"channel_id": e.ChannelID,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(guildID, userID string, oldLevel, newLevel, xp int, channelID string) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, MemberAggregateID(guildID, userID)),
		GuildID:   guildID,
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		XP:        xp,
		ChannelID: channelID,
	}
}

// LevelDownEvent is emitted when a revocation drops a member below
// a level boundary.
type LevelDownEvent struct {
	BaseEvent
	GuildID  string `json:"guild_id"`
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	XP       int    `json:"xp"`
}

// Payload implements Event interface.
func (e LevelDownEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"guild_id":  e.GuildID,
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"xp":        e.XP,
	}
}

// NewLevelDownEvent creates a new LevelDownEvent.
func NewLevelDownEvent(guildID, userID string, oldLevel, newLevel, xp int) LevelDownEvent {
	return LevelDownEvent{
		BaseEvent: NewBaseEvent(EventLevelDown, MemberAggregateID(guildID, userID)),
		GuildID:   guildID,
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		XP:        xp,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Role Reward Events
// ═══════════════════════════════════════════════════════════════════════════

// RoleAwardedEvent is emitted after a reward role has been added to a member.
type RoleAwardedEvent struct {
	BaseEvent
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`
	RoleID  string `json:"role_id"`
	Level   int    `json:"level"`
}

// Payload implements Event interface.
func (e RoleAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"guild_id": e.GuildID,
		"user_id":  e.UserID,
		"role_id":  e.RoleID,
		"level":    e.Level,
	}
}

// NewRoleAwardedEvent creates a new RoleAwardedEvent.
func NewRoleAwardedEvent(guildID, userID, roleID string, level int) RoleAwardedEvent {
	return RoleAwardedEvent{
		BaseEvent: NewBaseEvent(EventRoleAwarded, MemberAggregateID(guildID, userID)),
		GuildID:   guildID,
		UserID:    userID,
		RoleID:    roleID,
		Level:     level,
	}
}

// RoleRemovedEvent is emitted after a reward role has been removed
// from a member.
type RoleRemovedEvent struct {
	BaseEvent
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`
	RoleID  string `json:"role_id"`
	Reason  string `json:"reason"` // e.g., "strategy", "level_down"
}

// Payload implements Event interface.
func (e RoleRemovedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"guild_id": e.GuildID,
		"user_id":  e.UserID,
		"role_id":  e.RoleID,
		"reason":   e.Reason,
	}
}

// NewRoleRemovedEvent creates a new RoleRemovedEvent.
func NewRoleRemovedEvent(guildID, userID, roleID, reason string) RoleRemovedEvent {
	return RoleRemovedEvent{
		BaseEvent: NewBaseEvent(EventRoleRemoved, MemberAggregateID(guildID, userID)),
		GuildID:   guildID,
		UserID:    userID,
		RoleID:    roleID,
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Guild Configuration Events
// ═══════════════════════════════════════════════════════════════════════════

// ConfigUpdatedEvent is emitted when a guild's leveling configuration changes.
type ConfigUpdatedEvent struct {
	BaseEvent
	GuildID       string   `json:"guild_id"`
	ChangedFields []string `json:"changed_fields"`
}

// Payload implements Event interface.
func (e ConfigUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"guild_id":       e.GuildID,
		"changed_fields": e.ChangedFields,
	}
}

// NewConfigUpdatedEvent creates a new ConfigUpdatedEvent.
func NewConfigUpdatedEvent(guildID string, changedFields []string) ConfigUpdatedEvent {
	return ConfigUpdatedEvent{
		BaseEvent:     NewBaseEvent(EventConfigUpdated, guildID),
		GuildID:       guildID,
		ChangedFields: changedFields,
	}
}

// ConfigDeletedEvent is emitted when a guild's configuration is removed,
// reverting the guild to the built-in defaults.
type ConfigDeletedEvent struct {
	BaseEvent
	GuildID string `json:"guild_id"`
}

// Payload implements Event interface.
func (e ConfigDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"guild_id": e.GuildID,
	}
}

// NewConfigDeletedEvent creates a new ConfigDeletedEvent.
func NewConfigDeletedEvent(guildID string) ConfigDeletedEvent {
	return ConfigDeletedEvent{
		BaseEvent: NewBaseEvent(EventConfigDeleted, guildID),
		GuildID:   guildID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Reset Events
// ═══════════════════════════════════════════════════════════════════════════

// UserResetEvent is emitted when a single member's progress is wiped.
type UserResetEvent struct {
	BaseEvent
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`
}

// Payload implements Event interface.
func (e UserResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"guild_id": e.GuildID,
		"user_id":  e.UserID,
	}
}

// NewUserResetEvent creates a new UserResetEvent.
func NewUserResetEvent(guildID, userID string) UserResetEvent {
	return UserResetEvent{
		BaseEvent: NewBaseEvent(EventUserReset, MemberAggregateID(guildID, userID)),
		GuildID:   guildID,
		UserID:    userID,
	}
}

// GuildResetEvent is emitted when every record for a guild is deleted.
type GuildResetEvent struct {
	BaseEvent
	GuildID        string `json:"guild_id"`
	RecordsRemoved int64  `json:"records_removed"`
}

// Payload implements Event interface.
func (e GuildResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"guild_id":        e.GuildID,
		"records_removed": e.RecordsRemoved,
	}
}

// NewGuildResetEvent creates a new GuildResetEvent.
func NewGuildResetEvent(guildID string, recordsRemoved int64) GuildResetEvent {
	return GuildResetEvent{
		BaseEvent:      NewBaseEvent(EventGuildReset, guildID),
		GuildID:        guildID,
		RecordsRemoved: recordsRemoved,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// System Events
// ═══════════════════════════════════════════════════════════════════════════

// OperationFailedEvent is emitted when an operation could not complete,
// for example when a record vanished between read and write, or when
// persistence is unreachable. The ledger stays unchanged; observers decide
// how to surface the failure.
type OperationFailedEvent struct {
	BaseEvent
	GuildID   string `json:"guild_id"`
	UserID    string `json:"user_id,omitempty"`
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}

// Payload implements Event interface.
func (e OperationFailedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"guild_id":  e.GuildID,
		"user_id":   e.UserID,
		"operation": e.Operation,
		"reason":    e.Reason,
	}
}

// NewOperationFailedEvent creates a new OperationFailedEvent.
func NewOperationFailedEvent(guildID, userID, operation, reason string) OperationFailedEvent {
	aggregate := guildID
	if userID != "" {
		aggregate = MemberAggregateID(guildID, userID)
	}
	return OperationFailedEvent{
		BaseEvent: NewBaseEvent(EventOperationFailed, aggregate),
		GuildID:   guildID,
		UserID:    userID,
		Operation: operation,
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
