package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alcyxob/mindtrack-app/internal/auth"
	"alcyxob/mindtrack-app/internal/cache"
	"alcyxob/mindtrack-app/internal/clock"
	"alcyxob/mindtrack-app/internal/config"
	"alcyxob/mindtrack-app/internal/realtime"
	"alcyxob/mindtrack-app/internal/repository"
	"alcyxob/mindtrack-app/internal/repository/mongo"
	"alcyxob/mindtrack-app/internal/service"
)

// A headless session: the same engine the app embeds, wired to the real
// remote store and relay. Useful for soak-testing sync behavior and for
// keeping a user's record warm from a server-side job.
func main() {
	log.Println("Starting MindTrack session...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Identity ---
	// An empty token runs the session anonymously: local cache only, no
	// remote store and no realtime.
	provider := auth.NewTokenProvider(cfg.JWT.Token, cfg.JWT.Secret)

	// --- Remote Store ---
	var repo repository.ProgressRepository
	if cfg.JWT.Token != "" {
		dbClient, err := mongo.ConnectDB(cfg.Database.URI)
		if err != nil {
			log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
		}
		defer func() {
			log.Println("Disconnecting MongoDB...")
			if err := mongo.DisconnectDB(dbClient); err != nil {
				log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
			}
		}()
		appDB := dbClient.Database(cfg.Database.Name)
		repo = mongo.NewMongoProgressRepository(appDB)
		log.Println("Database connection established.")
	} else {
		log.Println("No session token configured; running local-only.")
	}

	// --- Local Cache ---
	localCache, err := cache.NewFileStore(cfg.Sync.CachePath, nil)
	if err != nil {
		log.Fatalf("FATAL: Could not open local cache at %s: %v", cfg.Sync.CachePath, err)
	}

	// --- Realtime Channel ---
	var channel realtime.Channel
	if cfg.Relay.URL != "" && cfg.JWT.Token != "" {
		channel = realtime.NewWSChannel(cfg.Relay.URL, cfg.JWT.Token, nil)
	}

	// --- Orchestrator ---
	engine := service.NewProgressService(repo, localCache, channel, provider, clock.System(), service.Options{
		SyncInterval:         cfg.Sync.Interval,
		FallbackPollInterval: cfg.Sync.FallbackPollInterval,
		ShutdownFlushTimeout: cfg.Sync.ShutdownFlushTimeout,
	})

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	if err := engine.Start(startCtx); err != nil {
		cancelStart()
		log.Fatalf("FATAL: Could not start sync engine: %v", err)
	}
	cancelStart()

	snapshot := engine.Progress()
	log.Printf("Session running: day %d of %d, %d days completed.",
		snapshot.CurrentDay, snapshot.TotalDays, snapshot.CompletedDays)

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Stopping session...")

	if err := engine.Stop(); err != nil {
		log.Printf("ERROR: Engine shutdown reported: %v", err)
	}
	log.Println("Session exiting.")
}
