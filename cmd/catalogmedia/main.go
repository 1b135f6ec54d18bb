package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/merchly/catalogmedia/internal/config"
	"github.com/merchly/catalogmedia/internal/database"
	"github.com/merchly/catalogmedia/internal/server"
)

func main() {
	fmt.Println("==========================================")
	fmt.Println("  catalogmedia - Media Ingestion Backend  ")
	fmt.Println("==========================================")

	// Initialize configuration system first
	configPath := os.Getenv("CATALOGMEDIA_CONFIG_PATH")
	if configPath == "" {
		// Try default paths
		if _, err := os.Stat("./data/catalogmedia.yaml"); err == nil {
			configPath = "./data/catalogmedia.yaml"
		} else if _, err := os.Stat("./catalogmedia.yaml"); err == nil {
			configPath = "./catalogmedia.yaml"
		}
	}

	if err := config.Load(configPath); err != nil {
		log.Printf("⚠️  Warning: Failed to load configuration from %s: %v", configPath, err)
		log.Printf("Using default configuration")
	} else if configPath != "" {
		log.Printf("✅ Configuration loaded from: %s", configPath)
	} else {
		log.Printf("✅ Using default configuration")
	}

	// Watch the config file for changes
	if watcher, err := config.NewFileWatcher(config.GetConfigManager()); err != nil {
		log.Printf("⚠️  Config file watching disabled: %v", err)
	} else {
		watcher.Start(context.Background())
		defer watcher.Stop()
	}

	// Initialize database
	database.Initialize()
	db := database.GetDB()
	if db == nil {
		log.Fatal("Failed to initialize database")
	}

	// Setup router with modules
	r := server.SetupRouter()

	cfg := config.Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\nShutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		if err := server.ShutdownEventBus(); err != nil {
			log.Printf("Event bus shutdown error: %v", err)
		}

		cancel()
	}()

	log.Printf("🚀 Starting catalogmedia server on %s:%d", cfg.Server.Host, cfg.Server.Port)
	err := srv.ListenAndServe()

	if err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}

	<-ctx.Done()
	log.Println("Server shutdown complete")
}
