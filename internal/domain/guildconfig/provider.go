package guildconfig

import (
	"context"
	"errors"
	"time"

	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// Provider resolves the effective config for a guild: stored override
// layered over built-in defaults, cached for the gatekeeper hot path.
type Provider struct {
	repo     Repository
	cache    Cache // optional
	defaults Defaults
	ttl      time.Duration
}

// NewProvider creates a Provider. A nil cache disables caching.
func NewProvider(repo Repository, cache Cache, defaults Defaults, ttl time.Duration) *Provider {
	return &Provider{
		repo:     repo,
		cache:    cache,
		defaults: defaults,
		ttl:      ttl,
	}
}

// Effective returns the guild's effective config. A guild with no stored
// override resolves to the default layer; that is not an error.
func (p *Provider) Effective(ctx context.Context, guildID string) (*GuildConfig, error) {
	if p.cache != nil {
		if cfg, err := p.cache.Get(ctx, guildID); err == nil {
			return cfg, nil
		}
	}

	override, err := p.repo.Get(ctx, guildID)
	if err != nil && !errors.Is(err, shared.ErrConfigNotFound) {
		return nil, err
	}

	effective := Resolve(p.defaults, override)
	effective.GuildID = guildID

	if p.cache != nil {
		_ = p.cache.Set(ctx, effective, p.ttl)
	}

	return effective, nil
}

// Invalidate evicts the cached effective config after a write.
func (p *Provider) Invalidate(ctx context.Context, guildID string) {
	if p.cache != nil {
		_ = p.cache.Delete(ctx, guildID)
	}
}

// DefaultLayer returns the provider's default layer.
func (p *Provider) DefaultLayer() Defaults {
	return p.defaults
}
