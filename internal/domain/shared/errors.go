// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrExpired         = errors.New("expired")

	// Authorization errors
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPermissionDenied = errors.New("permission denied")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "level", "guildconfig", "reward"
	Op      string // Operation that failed, e.g., "Grant", "Update"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Level ledger domain errors
var (
	ErrRecordNotFound     = NewDomainError("level", "Find", ErrNotFound, "level record not found")
	ErrNonPositiveAmount  = NewDomainError("level", "Validate", ErrValueOutOfRange, "amount must be positive")
	ErrMissingGuildID     = NewDomainError("level", "Validate", ErrEmptyValue, "guild ID is required")
	ErrMissingUserID      = NewDomainError("level", "Validate", ErrEmptyValue, "user ID is required")
	ErrRecordRace         = NewDomainError("level", "Apply", ErrConcurrentModification, "record changed between read and write")
	ErrPenaltiesDisabled  = NewDomainError("level", "Revoke", ErrInvalidState, "penalty system is disabled for this guild")
	ErrRecordAlreadyFresh = NewDomainError("level", "Reset", ErrInvalidState, "record is already in zero state")
)

// Guild configuration domain errors
var (
	ErrConfigNotFound  = NewDomainError("guildconfig", "Find", ErrNotFound, "guild config not found")
	ErrInvalidCooldown = NewDomainError("guildconfig", "Validate", ErrValueOutOfRange, "message cooldown must be at least 1 second")
	ErrEmptyPatch      = NewDomainError("guildconfig", "Update", ErrInvalidInput, "no fields to update")
)

// Reward resolver domain errors
var (
	ErrInvalidLevelRange = NewDomainError("reward", "Resolve", ErrInvalidInput, "new level must exceed old level")
)

// Discord collaborator errors
var (
	ErrRoleMutationDenied = NewDomainError("discord", "MutateRole", ErrPermissionDenied, "missing permissions or role hierarchy forbids mutation")
	ErrMemberNotFound     = NewDomainError("discord", "FetchMember", ErrNotFound, "guild member not found")
	ErrDiscordUnavailable = NewDomainError("discord", "Request", ErrServiceUnavailable, "Discord API is unavailable")
	ErrChannelSendFailed  = NewDomainError("discord", "SendMessage", ErrExternalService, "failed to send channel message")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsPermissionDenied checks if the error is a permission/hierarchy failure.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrUnauthorized)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
