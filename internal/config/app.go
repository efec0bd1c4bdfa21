package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/crmchat/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"CRMCHAT_RUNTIME_PATH" envDefault:".crmchat"`

	// Session replay: how many prior turns are interleaved into the prompt.
	SessionTurnWindow int `env:"SESSION_TURN_WINDOW" envDefault:"20"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "crmchat.db")
}
