// Package uploadmodule receives source videos, validates them, probes
// their duration and registers a job for later clip generation.
package uploadmodule

import (
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/database"
	"github.com/clipforge/clipforge/internal/events"
	"github.com/clipforge/clipforge/internal/logger"
	"github.com/clipforge/clipforge/internal/modules/modulemanager"
	"github.com/clipforge/clipforge/internal/storage"
)

// Auto-register the module when imported
func init() {
	Register()
}

const (
	ModuleID   = "system.upload"
	ModuleName = "Upload"
)

// Module implements video ingestion as a module
type Module struct {
	db        *gorm.DB
	eventBus  events.EventBus
	store     *JobStore
	validator *uploadValidator
	prober    DurationProber
	uploads   *storage.LocalStore
	fallback  float64
}

// Register registers the upload module with the module system
func Register() {
	modulemanager.Register(&Module{})
}

func (m *Module) ID() string   { return ModuleID }
func (m *Module) Name() string { return ModuleName }
func (m *Module) Core() bool   { return true }

// Migrate performs database migrations
func (m *Module) Migrate(db *gorm.DB) error {
	logger.Info("Migrating upload database schema")
	return db.AutoMigrate(&database.Job{})
}

// Init initializes the upload module
func (m *Module) Init() error {
	logger.Info("Initializing upload module")

	if m.db == nil {
		m.db = database.GetDB()
	}
	if m.eventBus == nil {
		m.eventBus = events.GetGlobalEventBus()
	}

	cfg := config.GetConfigManager().GetConfig()

	hclogger := hclog.New(&hclog.LoggerOptions{
		Name:  "upload",
		Level: hclog.Info,
	})
	m.store = NewJobStore(m.db, hclogger)
	m.validator = newUploadValidator(cfg.Media.AllowedExtensions, cfg.Media.MaxUploadBytes)
	if m.prober == nil {
		m.prober = &FFprobeProber{Binary: cfg.Processing.FFprobeBin}
	}
	m.uploads = storage.NewLocalStore(cfg.Media.UploadDir, "/uploads")
	m.fallback = cfg.Media.FallbackDuration
	return nil
}

// Jobs exposes the job store to sibling modules (the clip generator
// transitions and completes jobs through it).
func (m *Module) Jobs() *JobStore {
	return m.store
}

// GetModule returns the registered upload module instance.
func GetModule() *Module {
	for _, mod := range modulemanager.ListModules() {
		if m, ok := mod.(*Module); ok {
			return m
		}
	}
	return nil
}
