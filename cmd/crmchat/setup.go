package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/crmchat/internal/config"
	"github.com/sandevgo/crmchat/internal/providers/llm"
	"github.com/sandevgo/crmchat/internal/service/chat"
	"github.com/sandevgo/crmchat/internal/service/ingest"
	"github.com/sandevgo/crmchat/internal/service/ratelimit"
	"github.com/sandevgo/crmchat/internal/storage/sqlite"
	"github.com/sandevgo/crmchat/internal/transport/httpapi"
	"github.com/sandevgo/crmchat/pkg/log"
	"github.com/sandevgo/crmchat/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	appCfg := config.NewAppConfig(ctx)
	if err := initEnv(ctx, appCfg.RuntimePath); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	serverCfg := config.NewServerConfig(ctx)
	openRouterCfg := config.NewOpenRouterConfig(ctx)
	budgetCfg := config.NewBudgetConfig(ctx)

	// 2. Storage
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))

	contactsRepo := sqlite.NewContactsRepo(db)
	ordersRepo := sqlite.NewOrdersRepo(db)
	conversationsRepo := sqlite.NewConversationsRepo(db)
	sessionsRepo := sqlite.NewSessionsRepo(db)
	summariesRepo := sqlite.NewSummariesRepo(db)
	usageRepo := sqlite.NewUsageRepo(db)

	// 3. AI Providers
	picker := llm.NewTierPicker(openRouterCfg)

	// 4. Domain services
	chatSvc := chat.NewService(
		contactsRepo,
		ordersRepo,
		conversationsRepo,
		sessionsRepo,
		summariesRepo,
		usageRepo,
		picker,
		budgetCfg,
		appCfg,
	)
	ingestSvc := ingest.NewService(contactsRepo, ordersRepo, conversationsRepo)

	// 5. HTTP API
	handler := httpapi.NewRouter(httpapi.Dependencies{
		Config:   serverCfg,
		DB:       db,
		Chat:     chatSvc,
		Ingest:   ingestSvc,
		Contacts: contactsRepo,
		Sessions: sessionsRepo,
		Limiter:  ratelimit.NewLimiter(),
	})
	services = append(services, httpapi.NewServer(serverCfg.ListenAddr, handler))

	return services
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
