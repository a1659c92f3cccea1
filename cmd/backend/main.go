package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/codecritic/codecritic/internal/config"
	"github.com/codecritic/codecritic/internal/logger"
	"github.com/codecritic/codecritic/internal/prompt"
	"github.com/codecritic/codecritic/internal/upstream"
	"github.com/codecritic/codecritic/internal/upstream/db"
	"github.com/codecritic/codecritic/internal/upstream/generator"
	"github.com/codecritic/codecritic/internal/upstream/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application failed to run", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateUpstream(); err != nil {
		return err
	}

	log := logger.New(cfg.Log, os.Stdout)
	slog.SetDefault(log)

	database, cleanup, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer cleanup()

	prompts, err := prompt.NewManager()
	if err != nil {
		return fmt.Errorf("failed to load prompt templates: %w", err)
	}

	gen, err := generator.NewOllama(&cfg.AI, prompts, log)
	if err != nil {
		return fmt.Errorf("failed to initialize review generator: %w", err)
	}

	store := storage.NewStore(database.DB)
	srv := upstream.NewServer(ctx, cfg, store, gen, log)

	log.Info("starting review backend",
		"port", cfg.Upstream.Port,
		"model", cfg.AI.GeneratorModel,
	)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("server error", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info("received shutdown signal")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down")
	}

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return nil
}
