package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/codecritic/codecritic/internal/backend"
	"github.com/codecritic/codecritic/internal/config"
	"github.com/codecritic/codecritic/internal/logger"
	"github.com/codecritic/codecritic/internal/server"
	"github.com/codecritic/codecritic/internal/session"
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
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	log := logger.New(cfg.Log, os.Stdout)
	slog.SetDefault(log)

	backendClient := backend.NewClient(cfg.Server.BackendBaseURL)
	sessions := session.NewManager(cfg.Session.Secret, cfg.Session.TTL)

	srv := server.NewServer(ctx, cfg, backendClient, sessions, log)

	log.Info("starting application server", "backend", cfg.Server.BackendBaseURL)

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
