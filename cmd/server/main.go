package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alcyxob/mindtrack-app/internal/api"
	"alcyxob/mindtrack-app/internal/catalog"
	"alcyxob/mindtrack-app/internal/config"
	"alcyxob/mindtrack-app/internal/realtime"
	"alcyxob/mindtrack-app/internal/repository/mongo"
	"alcyxob/mindtrack-app/internal/storage"

	"github.com/gin-gonic/gin"
)

// The relay server: serves the program catalog and fans realtime change
// notifications out between sessions of the same owner. Progress itself is
// merged on the sessions; the relay stays stateless apart from open rooms.
func main() {
	log.Println("Starting MindTrack relay server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
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
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureProgressIndexes(ctx, appDB.Collection("progress"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	// Audio is optional: a relay without S3 credentials still serves text
	// content and realtime traffic.
	var fileStorage storage.FileStorage
	if cfg.S3.BucketName != "" {
		log.Println("Initializing media storage service...")
		fileStorage, err = storage.NewS3Storage(cfg.S3)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
		}
	} else {
		log.Println("No media bucket configured; serving catalog without audio links.")
	}

	// --- Initialize Relay Components ---
	programCatalog := catalog.New(fileStorage)
	hub := realtime.NewHub(nil)

	// --- Initialize Gin Engine ---
	router := gin.Default()

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, hub, programCatalog)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// Write timeout stays unset: WebSocket connections outlive any
		// sensible response deadline.
		IdleTimeout: 120 * time.Second,
	}

	log.Printf("Relay listening on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down relay...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Relay exiting.")
}
