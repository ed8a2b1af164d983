package query

import (
	"context"
	"fmt"
	"time"

	"github.com/rankforge/rankforge-bot/internal/domain/guildconfig"
	"github.com/rankforge/rankforge-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CONFIG QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetConfigQuery requests a guild's effective leveling configuration.
type GetConfigQuery struct {
	GuildID string
}

// Validate validates the query.
func (q GetConfigQuery) Validate() error {
	if q.GuildID == "" {
		return shared.ErrMissingGuildID
	}
	return nil
}

// GetConfigResult contains the effective config.
type GetConfigResult struct {
	// Config is the resolved effective config: stored override layered
	// over the defaults. Guilds with no override still get a full config.
	Config *guildconfig.GuildConfig `json:"config"`

	GeneratedAt time.Time `json:"generated_at"`
}

// GetConfigHandler handles the GetConfigQuery.
type GetConfigHandler struct {
	configProvider *guildconfig.Provider
}

// NewGetConfigHandler creates a new GetConfigHandler.
func NewGetConfigHandler(configProvider *guildconfig.Provider) *GetConfigHandler {
	return &GetConfigHandler{configProvider: configProvider}
}

// Handle executes the query.
func (h *GetConfigHandler) Handle(ctx context.Context, q GetConfigQuery) (*GetConfigResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_config: validation failed: %w", err)
	}

	cfg, err := h.configProvider.Effective(ctx, q.GuildID)
	if err != nil {
		return nil, fmt.Errorf("get_config: failed to resolve config: %w", err)
	}

	return &GetConfigResult{
		Config:      cfg,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
