package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"

	"github.com/avoskres/wishkeeper/internal/api"
	"github.com/avoskres/wishkeeper/internal/config"
	"github.com/avoskres/wishkeeper/internal/handlers"
	"github.com/avoskres/wishkeeper/internal/preview"
	"github.com/avoskres/wishkeeper/internal/repository"
	filerepo "github.com/avoskres/wishkeeper/internal/repository/file"
	pgrepo "github.com/avoskres/wishkeeper/internal/repository/postgres"
	"github.com/avoskres/wishkeeper/internal/store"
	"github.com/avoskres/wishkeeper/internal/sync"
	"github.com/avoskres/wishkeeper/internal/telegram"
	"github.com/avoskres/wishkeeper/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting wishkeeper...")

	// Persistence backend
	var repo repository.StateRepository
	switch cfg.Storage {
	case config.StoragePostgres:
		db, dbErr := config.NewDatabase(cfg.DatabaseURL, l)
		if dbErr != nil {
			l.Fatalf("Failed to connect to database: %v", dbErr)
		}
		if migErr := db.Migrate("migrations"); migErr != nil {
			l.Fatalf("Failed to run migrations: %v", migErr)
		}
		repo = pgrepo.NewStateRepository(db.DB, cfg.Owner)
		l.Infof("Using postgres storage for owner %q", cfg.Owner)

	default:
		fr, frErr := filerepo.New(cfg.DataFile)
		if frErr != nil {
			l.Fatalf("Failed to open data file: %v", frErr)
		}
		repo = fr
		l.Infof("Using file storage at %s", cfg.DataFile)
	}

	// Store
	st := store.New(repo, l)
	if err := st.Bootstrap(context.Background()); err != nil {
		l.Fatalf("Failed to load wishlist state: %v", err)
	}

	// Device sync hub
	hub := sync.NewHub(st, l)
	hub.Attach()
	go hub.Run()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Telegram bot, only when a token is configured
	if cfg.TelegramToken != "" {
		bot, botErr := telegram.NewBot(cfg.TelegramToken, l)
		if botErr != nil {
			l.Fatalf("Failed to create Telegram bot: %v", botErr)
		}

		bot.RegisterCommand("start", handlers.NewStartHandler(l))
		bot.RegisterCommand("help", handlers.NewHelpHandler(l))
		bot.RegisterCommand("add", handlers.NewAddHandler(st, l))
		bot.RegisterCommand("list", handlers.NewListHandler(st, l))
		bot.RegisterCommand("find", handlers.NewFindHandler(st, l))
		bot.RegisterCommand("done", handlers.NewDoneHandler(st, l))
		bot.RegisterCommand("delete", handlers.NewDeleteHandler(st, l))
		bot.RegisterCommand("set", handlers.NewSetHandler(st, l))
		bot.RegisterCommand("stats", handlers.NewStatsHandler(st, l))
		bot.RegisterCommand("profiles", handlers.NewProfilesHandler(st, l))
		bot.RegisterCommand("profile", handlers.NewProfileHandler(st, l))

		go func() {
			if err := bot.Start(ctx); err != nil {
				l.Errorf("Bot error: %v", err)
			}
		}()
	}

	// HTTP server: JSON API, websocket sync, metrics
	apiServer := api.NewServer(st, hub, preview.NewFetcher(l), l)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Info("wishkeeper started successfully")

	<-ctx.Done()

	l.Info("Shutting down...")
	var result *multierror.Error
	if err := httpServer.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := repo.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		l.Errorf("Shutdown finished with errors: %v", err)
	}

	l.Info("wishkeeper stopped")
}
