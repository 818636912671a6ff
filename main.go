package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"example.com/naborly/cmd/server"
	"example.com/naborly/internal/auth"
	"example.com/naborly/internal/feed"
	config "example.com/naborly/internal/init"
	"example.com/naborly/internal/interactions"
	"example.com/naborly/internal/metrics"
	"example.com/naborly/internal/store"
)

func main() {
	// Initialize application configuration
	cfg := config.Init()

	// Open the local SQLite store and apply migrations
	st, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("SQLite store init failed: %v", err)
	}
	defer st.Close()

	// Wire the services around the shared store handle
	authSvc := auth.New(st, cfg.SessionTTL, cfg.BcryptCost)
	feedSvc := feed.New(st, cfg.FeedPageSize)
	interSvc := interactions.New(st)

	// Metrics and health on a side listener
	metricsSrv, err := metrics.NewHTTPServer(cfg.MetricsAddr)
	if err != nil {
		log.Fatalf("Metrics server init failed: %v", err)
	}

	// Setup OS signal handling for graceful shutdown (SIGINT, SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server.Run(ctx, authSvc, feedSvc, interSvc, cfg.ServerAddr)

	if err := metricsSrv.Shutdown(context.Background()); err != nil {
		log.Printf("Metrics server shutdown error: %v", err)
	}

	log.Println("Shutdown completed")
}
