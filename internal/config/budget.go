package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/crmchat/pkg/log"
)

// BudgetConfig centralizes every context/prompt budget knob so the
// context builder and the dispatcher cannot silently diverge.
type BudgetConfig struct {
	// Context window inputs.
	MaxContextMessages int `env:"CONTEXT_MAX_MESSAGES" envDefault:"50"`
	LookbackDays       int `env:"CONTEXT_LOOKBACK_DAYS" envDefault:"120"`
	MaxContextOrders   int `env:"CONTEXT_MAX_ORDERS" envDefault:"5"`

	// Per-message body cap in characters; longer bodies are cut with a
	// single ellipsis marker.
	MessageCharBudget int `env:"CONTEXT_MESSAGE_CHAR_BUDGET" envDefault:"1000"`

	// Prompt token ceilings per tier.
	LightTokenLimit  int `env:"BUDGET_TOKENS_LIGHT" envDefault:"4000"`
	MediumTokenLimit int `env:"BUDGET_TOKENS_MEDIUM" envDefault:"8000"`
	HighTokenLimit   int `env:"BUDGET_TOKENS_HIGH" envDefault:"12000"`

	// Output token ceilings: summaries and general Q&A get more room
	// than short factual asks.
	MaxTokensSummary int `env:"BUDGET_MAX_TOKENS_SUMMARY" envDefault:"400"`
	MaxTokensGeneral int `env:"BUDGET_MAX_TOKENS_GENERAL" envDefault:"350"`
	MaxTokensStatus  int `env:"BUDGET_MAX_TOKENS_STATUS" envDefault:"10"`
}

func NewBudgetConfig(ctx context.Context) *BudgetConfig {
	c := &BudgetConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Budget config")
	}
	return c
}

// TokenLimitForTier is the total prompt token budget for a tier.
func (c BudgetConfig) TokenLimitForTier(tier string) int {
	switch tier {
	case "medium":
		return c.MediumTokenLimit
	case "high":
		return c.HighTokenLimit
	default:
		return c.LightTokenLimit
	}
}
