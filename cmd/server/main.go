package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tixops/suggest-api/internal/catalog"
	"github.com/tixops/suggest-api/internal/config"
	"github.com/tixops/suggest-api/internal/database"
	"github.com/tixops/suggest-api/internal/handler"
	"github.com/tixops/suggest-api/internal/queue"
	"github.com/tixops/suggest-api/internal/repository"
	"github.com/tixops/suggest-api/internal/router"
	"github.com/tixops/suggest-api/internal/suggest"
	"github.com/tixops/suggest-api/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	logger := log.With().Str("service", "suggest-api").Logger()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening database")
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	accountRepo := repository.NewAccountRepo(db)
	usageRepo := repository.NewUsageRepo(db)
	configRepo := repository.NewAppConfigRepo(db)
	cooloffRepo := repository.NewCooloffRepo(db)
	limitRepo := repository.NewTicketLimitRepo(db)
	tagRepo := repository.NewTagRepo(db)
	feedbackRepo := repository.NewFeedbackRepo(db)
	suggestionRepo := repository.NewSuggestionRepo(db)
	eventRepo := repository.NewEventRepo(db)

	catalogCfg := config.LoadCatalogConfig()
	gateway := catalog.New(catalogCfg, &http.Client{Timeout: catalogCfg.ClientTimeout}, logger)

	ledger := suggest.NewCooloffLedger(cooloffRepo, configRepo, logger)
	resolver := suggest.NewTicketLimitResolver(limitRepo, configRepo, logger)
	ranker := suggest.NewRanker(accountRepo, usageRepo, ledger, logger)
	orchestrator := suggest.NewOrchestrator(ranker, resolver, tagRepo, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := worker.New(suggestionRepo, eventRepo, ranker, resolver, ledger, cfg, logger,
		config.SweepInterval())
	go sweeper.Run(ctx)
	go func() {
		if err := queue.StartFeedbackConsumer(ctx, sweeper.HandleFeedback, logger); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("feedback consumer stopped")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterSuggestions(e, &handler.SuggestionHandler{
		Gateway:      gateway,
		Ranker:       ranker,
		Resolver:     resolver,
		Orchestrator: orchestrator,
		Accounts:     accountRepo,
		Events:       eventRepo,
		Cfg:          cfg,
		Log:          logger,
	}, &handler.FeedbackHandler{
		Feedback: feedbackRepo,
		Ledger:   ledger,
		Log:      logger,
	}, cfg, rdb, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
