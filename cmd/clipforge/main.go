package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/database"
	"github.com/clipforge/clipforge/internal/logger"
	"github.com/clipforge/clipforge/internal/modules/modulemanager"
	"github.com/clipforge/clipforge/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("CLIPFORGE_CONFIG"), "path to config file (optional)")
	flag.Parse()

	manager := config.GetConfigManager()
	if err := manager.LoadConfig(*configPath); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := manager.GetConfig()

	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to create data directories: %v", err)
	}

	if err := database.Initialize(&cfg.Database); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Hot-reload the config file when one is in use
	if manager.ConfigPath() != "" {
		watcher, err := config.NewFileWatcher(manager)
		if err != nil {
			logger.Warn("config watcher unavailable", "error", err)
		} else if err := watcher.Start(); err != nil {
			logger.Warn("config watcher failed to start", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	r := server.SetupRouter()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("🚀 Starting ClipForge server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("🛑 Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	modulemanager.ShutdownAll()

	if err := server.ShutdownEventBus(); err != nil {
		logger.Warn("event bus shutdown failed", "error", err)
	}

	log.Printf("✅ Shutdown complete")
}
