// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"telegram-channel-subscription/internal/application"
	"telegram-channel-subscription/internal/config"
	"telegram-channel-subscription/internal/domain/ports/adapter"
	"telegram-channel-subscription/internal/domain/ports/repository"
	pg "telegram-channel-subscription/internal/infra/db/postgres"
	"telegram-channel-subscription/internal/infra/logging"
	"telegram-channel-subscription/internal/infra/metrics"
	payAdapters "telegram-channel-subscription/internal/infra/payment"
	red "telegram-channel-subscription/internal/infra/redis"
	"telegram-channel-subscription/internal/infra/sched"
	filestore "telegram-channel-subscription/internal/infra/store/file"
	tele "telegram-channel-subscription/internal/infra/telegram"
	"telegram-channel-subscription/internal/infra/web"
	"telegram-channel-subscription/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop bot, no redis required)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()

	// ---- Subscriber store (Postgres when configured, JSON document otherwise) ----
	var store repository.SubscriberStore
	if cfg.Database.URL != "" {
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		repo := pg.NewSubscriberRepo(pool)
		if err := repo.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("postgres migrate")
		}
		store = repo
		logger.Info().Msg("using postgres subscriber store")
	} else {
		fs, err := filestore.Open(cfg.Store.Path)
		if err != nil {
			logger.Fatal().Err(err).Msg("file store")
		}
		store = fs
		logger.Info().Str("path", cfg.Store.Path).Msg("using file subscriber store")
	}

	// ---- Grant lock (Redis, or in-process noop in dev mode) ----
	var locker usecase.Locker = red.NoopLocker{}
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
	} else if !cfg.Runtime.Dev {
		logger.Warn().Msg("redis.url not set; falling back to single-process locking")
	}

	// ---- Payment gateway ----
	gateway, err := payAdapters.NewInstamojoGateway(
		cfg.Payment.Instamojo.APIKey,
		cfg.Payment.Instamojo.AuthToken,
		cfg.Payment.Instamojo.Sandbox,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("instamojo gateway")
	}

	// ---- Telegram adapter ----
	var bot adapter.ChannelBotAdapter
	var realBot *tele.RealChannelBot
	facade := application.NewBotFacade(
		store, gateway,
		cfg.Subscription.Price, cfg.Subscription.Currency,
		cfg.Period(), cfg.Web.BaseURL,
		logger,
	)
	if cfg.Runtime.Dev && cfg.Bot.Token == "" {
		bot = tele.NewNoopBotAdapter()
	} else {
		realBot, err = tele.NewRealChannelBot(&cfg.Bot, facade, cfg.Bot.Workers, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		bot = realBot
	}

	// ---- Use cases ----
	accessUC := usecase.NewAccessUseCase(
		store, gateway, bot, locker,
		cfg.Period(), cfg.InviteTTL(), cfg.Subscription.Currency,
		logger,
	)
	sweepUC := usecase.NewSweepUseCase(store, bot, logger)

	// ---- Telegram polling ----
	if realBot != nil {
		if strings.ToLower(cfg.Bot.Mode) != "" && strings.ToLower(cfg.Bot.Mode) != "polling" {
			logger.Warn().Str("mode", cfg.Bot.Mode).Msg("bot mode not implemented; falling back to polling")
		}
		go func() {
			if err := realBot.StartPolling(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
	}

	// ---- HTTP server ----
	srv := web.NewServer(accessUC, sweepUC, cfg.Web.AdminToken, logger)
	go func() {
		if err := srv.Start(cfg.Web.Port); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Expiry worker ----
	worker := sched.NewExpiryWorker(cfg.Scheduler.SweepInterval, sweepUC, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}
