package discord

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/rankforge/rankforge-bot/internal/domain/shared"
	"github.com/rankforge/rankforge-bot/pkg/circuitbreaker"
	"github.com/rankforge/rankforge-bot/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROLE SERVICE
// REST role mutations behind a retrier and a circuit breaker. Transient
// REST failures are retried; permission and hierarchy failures are not,
// and enough of them open the breaker so a misconfigured guild does not
// burn the rate limit on calls that cannot succeed.
// ══════════════════════════════════════════════════════════════════════════════

// RoleService mutates and reads member roles. Implements the application
// layer's RoleManager and MemberRolesProvider interfaces.
type RoleService struct {
	session *discordgo.Session
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewRoleService creates a RoleService with the standard Discord retry and
// breaker profiles.
func NewRoleService(session *discordgo.Session, logger *slog.Logger) *RoleService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "discord_roles")

	breaker := circuitbreaker.DiscordRoleBreaker(func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	})

	return &RoleService{
		session: session,
		retrier: retry.DiscordRetrier(),
		breaker: breaker,
		logger:  logger,
	}
}

// AddRole adds a role to a member. The reason lands in the guild audit log.
func (s *RoleService) AddRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return s.mutate(ctx, func() error {
		return s.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithAuditLogReason(reason))
	})
}

// RemoveRole removes a role from a member.
func (s *RoleService) RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return s.mutate(ctx, func() error {
		return s.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithAuditLogReason(reason))
	})
}

// MemberRoles returns a member's current role IDs, served from the gateway
// state cache when possible and from REST otherwise.
func (s *RoleService) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	if member, err := s.session.State.Member(guildID, userID); err == nil {
		return append([]string(nil), member.Roles...), nil
	}

	member, err := retry.DoWithData(ctx, func(context.Context) (*discordgo.Member, error) {
		m, err := s.session.GuildMember(guildID, userID)
		if err != nil {
			return nil, classifyRESTError(err)
		}
		return m, nil
	})
	if err != nil {
		return nil, mapRESTError(err)
	}
	return append([]string(nil), member.Roles...), nil
}

// mutate runs one role mutation through the breaker and the retrier.
func (s *RoleService) mutate(ctx context.Context, call func() error) error {
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.retrier.Do(ctx, func(context.Context) error {
			return classifyRESTError(call())
		})
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return shared.ErrDiscordUnavailable
	}
	return mapRESTError(err)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// classifyRESTError tags a discordgo error for the retrier: permission and
// not-found failures are permanent, server-side failures are retryable.
func classifyRESTError(err error) error {
	if err == nil {
		return nil
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			switch restErr.Message.Code {
			case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess,
				discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownRole,
				discordgo.ErrCodeUnknownChannel:
				return retry.Permanent(err)
			}
		}
		if restErr.Response != nil && restErr.Response.StatusCode >= http.StatusInternalServerError {
			return retry.Retryable(err)
		}
		return retry.Permanent(err)
	}

	// Network-level failures are worth retrying.
	return retry.Retryable(err)
}

// mapRESTError translates a settled REST failure into a domain error.
func mapRESTError(err error) error {
	if err == nil {
		return nil
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return shared.ErrRoleMutationDenied
		case discordgo.ErrCodeUnknownMember:
			return shared.ErrMemberNotFound
		}
	}
	return err
}
