package server

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/database"
	"github.com/clipforge/clipforge/internal/events"
	"github.com/clipforge/clipforge/internal/logger"
	"github.com/clipforge/clipforge/internal/middleware"
	"github.com/clipforge/clipforge/internal/modules/modulemanager"

	// Import all modules to trigger their registration
	_ "github.com/clipforge/clipforge/internal/modules/billingmodule"
	_ "github.com/clipforge/clipforge/internal/modules/clipmodule"
	_ "github.com/clipforge/clipforge/internal/modules/uploadmodule"
)

var systemEventBus events.EventBus
var moduleInitialized bool

// SetupRouter configures and returns the main router
func SetupRouter() *gin.Engine {
	cfg := config.GetConfigManager().GetConfig()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.Identity())

	if cfg.Server.EnableCORS {
		r.Use(corsMiddleware())
	}
	if len(cfg.Server.TrustedProxies) > 0 {
		if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
			logger.Warn("invalid trusted proxies", "error", err)
		}
	}

	if err := initializeEventBus(cfg); err != nil {
		log.Printf("Failed to initialize event bus: %v", err)
	}

	if err := initializeModules(); err != nil {
		log.Printf("Failed to initialize modules: %v", err)
	}

	setupRoutes(r, cfg)
	modulemanager.RegisterRoutes(r)

	return r
}

// corsMiddleware is permissive by default; deployments fronted by a
// reverse proxy tighten this there.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// initializeEventBus starts the system bus and registers it globally
func initializeEventBus(cfg *config.Config) error {
	if systemEventBus != nil {
		return nil
	}

	systemEventBus = events.NewEventBus(cfg.Events.BufferSize)
	if err := systemEventBus.Start(context.Background()); err != nil {
		return err
	}
	events.SetGlobalEventBus(systemEventBus)

	systemEventBus.PublishAsync(events.NewEvent(
		events.EventSystemStarted, "server", "System Started", "ClipForge backend is up",
	))

	log.Printf("✅ Event bus initialized")
	return nil
}

// initializeModules sets up the module system and loads all modules
func initializeModules() error {
	if moduleInitialized {
		return nil
	}

	db := database.GetDB()

	if err := modulemanager.LoadAll(db); err != nil {
		return err
	}

	moduleInitialized = true
	logModuleStatus()

	return nil
}

// logModuleStatus logs the loaded modules
func logModuleStatus() {
	modules := modulemanager.ListModules()

	log.Printf("✅ Module system initialized with %d modules", len(modules))

	log.Printf("┌────────────────────────────────────────────────────────────────┐")
	log.Printf("│ %-20s │ %-25s │ %-8s │", "MODULE NAME", "MODULE ID", "CORE")
	log.Printf("├────────────────────────────────────────────────────────────────┤")

	for _, module := range modules {
		coreStatus := "No"
		if module.Core() {
			coreStatus = "Yes"
		}
		log.Printf("│ %-20s │ %-25s │ %-8s │",
			truncate(module.Name(), 20),
			truncate(module.ID(), 25),
			coreStatus)
	}

	log.Printf("└────────────────────────────────────────────────────────────────┘")
}

// truncate shortens a string to the given length, adding ... if needed
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// GetEventBus returns the global event bus instance
func GetEventBus() events.EventBus {
	return systemEventBus
}

// ShutdownEventBus gracefully shuts down the event bus
func ShutdownEventBus() error {
	if systemEventBus == nil {
		return nil
	}

	ctx := context.Background()
	systemEventBus.PublishAsync(events.NewEvent(
		events.EventSystemStopped, "server", "System Stopped", "ClipForge backend is shutting down",
	))
	return systemEventBus.Stop(ctx)
}
