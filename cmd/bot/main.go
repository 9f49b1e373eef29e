package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/user/schedulebot/internal/config"
	"github.com/user/schedulebot/internal/notifier"
	"github.com/user/schedulebot/internal/schedule"
	"github.com/user/schedulebot/internal/storage"
	"github.com/user/schedulebot/internal/telegram"
	"github.com/user/schedulebot/internal/webhook"
	"github.com/user/schedulebot/pkg/logger"
)

var version = "dev"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Try to initialize basic logger for error output
		logger.Init("info", "")
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	logger.Info().Str("version", version).Msg("Starting schedule bot")

	// Initialize database
	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	bots := storage.NewBotStore(db)
	chats := storage.NewChatStore(db)
	logger.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	// One cache backs both schedule responses and media group tracking
	cache := schedule.NewMemoryCache(10 * time.Minute)
	scheduleClient := schedule.NewClient(cfg.Schedule, cache, version)

	handlers := telegram.NewHandlers(
		telegram.NewResolver(chats),
		scheduleClient,
		telegram.NewReplier(telegram.NewMediaGroups(cache)),
	)
	dispatcher := telegram.NewDispatcher(handlers, notifier.NewNotifier(cfg.Telegram.AdminChatID))

	tgClient := &http.Client{Timeout: 30 * time.Second}
	webhookHandler := webhook.NewHandler(bots, dispatcher, func(token string) telegram.API {
		return telegram.NewAPI(token, cfg.Telegram.Debug, tgClient)
	})

	// Set up HTTP router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/webhook/telegram/{bot_id}/{secret_key}", webhookHandler.ServeHTTP)

	server := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("address", cfg.ServerAddress()).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info().Msg("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("HTTP server error")
		return
	}

	logger.Info().Msg("Shutdown complete")
}
