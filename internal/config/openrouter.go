package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/crmchat/pkg/log"
)

// OpenRouterConfig maps model tiers to OpenRouter slugs. A tier is a
// named quality/cost level; the slugs must match what the account has
// access to.
type OpenRouterConfig struct {
	APIKey      string `env:"OPENROUTER_API_KEY,required,notEmpty"`
	LightModel  string `env:"OPENROUTER_MODEL_LIGHT" envDefault:"google/gemini-2.0-flash-001"`
	MediumModel string `env:"OPENROUTER_MODEL_MEDIUM" envDefault:"google/gemini-2.5-flash"`
	HighModel   string `env:"OPENROUTER_MODEL_HIGH" envDefault:"openai/gpt-5-chat"`
}

func NewOpenRouterConfig(ctx context.Context) *OpenRouterConfig {
	c := &OpenRouterConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse OpenRouter config")
	}
	return c
}

// ModelForTier resolves a tier name to a model slug. Unknown or empty
// tiers fall back to the light model.
func (c OpenRouterConfig) ModelForTier(tier string) string {
	switch tier {
	case "medium":
		return c.MediumModel
	case "high":
		return c.HighModel
	default:
		return c.LightModel
	}
}
