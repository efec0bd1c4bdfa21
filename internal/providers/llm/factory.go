package llm

import (
	"github.com/sandevgo/crmchat/internal/config"
	"github.com/sandevgo/crmchat/internal/core"
)

// TierPicker hands out a provider for a named model tier. Providers are
// built once and reused; they are safe for concurrent use.
type TierPicker struct {
	providers map[string]core.AIProvider
	light     core.AIProvider
}

func NewTierPicker(cfg *config.OpenRouterConfig) *TierPicker {
	light := NewOpenRouter(cfg.APIKey, cfg.LightModel)
	return &TierPicker{
		providers: map[string]core.AIProvider{
			core.TierLight:  light,
			core.TierMedium: NewOpenRouter(cfg.APIKey, cfg.MediumModel),
			core.TierHigh:   NewOpenRouter(cfg.APIKey, cfg.HighModel),
		},
		light: light,
	}
}

// ForTier resolves a tier to its provider; unknown or empty tiers get
// the light provider.
func (p *TierPicker) ForTier(tier string) core.AIProvider {
	if prov, ok := p.providers[tier]; ok {
		return prov
	}
	return p.light
}
