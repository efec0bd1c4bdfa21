package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/crmchat/pkg/log"
)

type ServerConfig struct {
	ListenAddr string `env:"CRMCHAT_LISTEN_ADDR" envDefault:":8080"`

	// Shared secret for ingestion webhooks; empty disables the check.
	IngestSecret string `env:"INGEST_SECRET"`
}

func NewServerConfig(ctx context.Context) *ServerConfig {
	c := &ServerConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Server config")
	}
	return c
}
