package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"finbot/internal/amqp"
	"finbot/internal/assistant"
	"finbot/internal/assistant/dialogflow"
	"finbot/internal/cache"
	"finbot/internal/chat"
	"finbot/internal/cli"
	"finbot/internal/compose"
	"finbot/internal/config"
	apphttp "finbot/internal/http"
	"finbot/internal/kv"
	"finbot/internal/ledger"
	"finbot/internal/telegram"
)

func main() {
	cfg, logger := cli.LoadConfig()
	cli.MustValidate(logger, cfg.Validate)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	store := cli.InitBackend(startupCtx, logger, cfg)
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close data backend", "error", err)
		}
	}()

	ledgerOpts := []ledger.Option{ledger.WithKey(cfg.StoreKey)}
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		ledgerOpts = append(ledgerOpts, ledger.WithNotifier(amqpClient))
		logger.Info("Ledger events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	l := ledger.Open(startupCtx, store.Store, ledgerOpts...)

	responder, err := newResponder(startupCtx, cfg)
	if err != nil {
		logger.Error("Failed to initialize responder", "error", err, "responder", cfg.Responder)
		os.Exit(1)
	}

	sessions := chat.NewManager(l, responder, cfg.SessionCacheSize, cfg.SessionTTL, chat.WithDelay(cfg.ResponseDelay))
	caches := cache.NewManager()
	caches.Register(sessions.Cleaner())
	caches.StartCleanup(5 * time.Minute)

	serverOpts := []apphttp.Option{
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
		apphttp.WithTrustedProxies(cfg.TrustedProxies...),
	}
	if pinger, ok := store.Store.(kv.Pinger); ok {
		serverOpts = append(serverOpts, apphttp.WithReadinessCheck(cfg.DataBackend, pinger.Ping))
	}
	srv := apphttp.NewServer(":"+cfg.Port, l, sessions, serverOpts...)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10*time.Second + cfg.ResponseDelay
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("Failed to close AMQP client", "error", err)
			}
		}
	})

	if cfg.TelegramBotToken != "" {
		startTelegram(ctx, logger, cfg, sessions)
	}

	logger.Info("Starting finbot server", "port", cfg.Port, "backend", cfg.DataBackend, "responder", cfg.Responder)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}

func newResponder(ctx context.Context, cfg *config.Config) (assistant.Responder, error) {
	composer := compose.NewDefault()
	if cfg.Responder != "dialogflow" {
		return assistant.NewLocal(nil, composer), nil
	}
	creds, err := cfg.Credentials()
	if err != nil {
		return nil, err
	}
	return dialogflow.New(ctx, dialogflow.Config{
		ProjectID:       cfg.DialogflowProject,
		LanguageCode:    cfg.DialogflowLanguage,
		CredentialsJSON: creds,
	}, composer)
}

func startTelegram(ctx context.Context, logger *slog.Logger, cfg *config.Config, sessions *chat.Manager) {
	bot, err := telegram.New(telegram.Config{Token: cfg.TelegramBotToken}, sessions)
	if err != nil {
		// The web API keeps running without the bot.
		logger.Error("Failed to start Telegram bot", "error", err)
		return
	}
	go bot.Run(ctx)
}
