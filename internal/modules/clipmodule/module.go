// Package clipmodule cuts short clips out of uploaded videos with ffmpeg,
// tracks generation progress and manages the lifetime of the results.
package clipmodule

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/database"
	"github.com/clipforge/clipforge/internal/events"
	"github.com/clipforge/clipforge/internal/logger"
	"github.com/clipforge/clipforge/internal/modules/billingmodule"
	"github.com/clipforge/clipforge/internal/modules/modulemanager"
	"github.com/clipforge/clipforge/internal/modules/uploadmodule"
	"github.com/clipforge/clipforge/internal/storage"
)

// Auto-register the module when imported
func init() {
	Register()
}

const (
	ModuleID   = "system.clips"
	ModuleName = "Clips"
)

// Module implements clip generation as a module
type Module struct {
	db       *gorm.DB
	eventBus events.EventBus
	store    *ClipStore
	cleanup  *CleanupService

	generator *ClipGeneratorDeps

	managerOnce sync.Once
	manager     *Manager
}

// ClipGeneratorDeps holds the pieces assembled during Init that the
// manager needs once the sibling modules are available.
type ClipGeneratorDeps struct {
	generator *Generator
	artifacts storage.ArtifactStore
	thumbs    storage.ArtifactStore
	retention time.Duration
	logger    hclog.Logger
}

// Register registers the clip module with the module system
func Register() {
	modulemanager.Register(&Module{})
}

func (m *Module) ID() string   { return ModuleID }
func (m *Module) Name() string { return ModuleName }
func (m *Module) Core() bool   { return true }

// Migrate performs database migrations
func (m *Module) Migrate(db *gorm.DB) error {
	logger.Info("Migrating clip database schema")
	return db.AutoMigrate(&database.Clip{})
}

// Init wires the generation pipeline. It runs after the upload and billing
// modules, whose services it consumes.
func (m *Module) Init() error {
	logger.Info("Initializing clip module")

	if m.db == nil {
		m.db = database.GetDB()
	}
	if m.eventBus == nil {
		m.eventBus = events.GetGlobalEventBus()
	}

	cfg := config.GetConfigManager().GetConfig()

	hclogger := hclog.New(&hclog.LoggerOptions{
		Name:  "clips",
		Level: hclog.Info,
	})

	m.store = NewClipStore(m.db, hclogger)

	var thumbs *Thumbnailer
	if cfg.Processing.EnableThumbnails {
		thumbs = NewThumbnailer(cfg.Processing.FFmpegBin, cfg.Media.ThumbnailDir, cfg.Processing.ThumbnailQuality, hclogger)
	}

	transcoder := NewFFmpegTranscoder(cfg.Processing.FFmpegBin, cfg.Processing.TranscodeTimeout, hclogger)

	clipStore, thumbStore, err := buildArtifactStores(cfg)
	if err != nil {
		return err
	}

	m.generator = &ClipGeneratorDeps{
		generator: NewGenerator(transcoder, thumbs, cfg.Media.ClipDir, hclogger),
		artifacts: clipStore,
		thumbs:    thumbStore,
		retention: cfg.Processing.ClipRetention,
		logger:    hclogger,
	}

	m.cleanup = NewCleanupService(m.store, m.eventBus, cfg.Processing.CleanupInterval, hclogger)
	m.cleanup.Start()
	return nil
}

// buildArtifactStores selects where finished clips and thumbnails live.
func buildArtifactStores(cfg *config.Config) (storage.ArtifactStore, storage.ArtifactStore, error) {
	if cfg.Storage.Backend == "s3" {
		clips, err := storage.NewS3Store(context.Background(), cfg.Storage.S3Bucket, cfg.Storage.S3Region, cfg.Storage.S3Prefix+"/clips")
		if err != nil {
			return nil, nil, err
		}
		thumbs, err := storage.NewS3Store(context.Background(), cfg.Storage.S3Bucket, cfg.Storage.S3Region, cfg.Storage.S3Prefix+"/thumbnails")
		if err != nil {
			return nil, nil, err
		}
		return clips, thumbs, nil
	}
	return storage.NewLocalStore(cfg.Media.ClipDir, "/clips"),
		storage.NewLocalStore(cfg.Media.ThumbnailDir, "/thumbnails"),
		nil
}

// Shutdown stops the cleanup loop and drains in-flight generation.
func (m *Module) Shutdown() error {
	if m.cleanup != nil {
		m.cleanup.Stop()
	}
	if m.manager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.manager.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Manager exposes the generation pipeline to the HTTP layer. The manager
// is assembled on first use because module init order does not guarantee
// the upload and billing modules exist yet during Init.
func (m *Module) Manager() *Manager {
	m.managerOnce.Do(func() {
		deps := m.generator
		m.manager = NewManager(
			m.db,
			uploadmodule.GetModule().Jobs(),
			m.store,
			billingmodule.GetModule().Accounts(),
			deps.generator,
			deps.artifacts,
			deps.thumbs,
			m.eventBus,
			deps.retention,
			deps.logger,
		)
	})
	return m.manager
}

// GetModule returns the registered clip module instance.
func GetModule() *Module {
	for _, mod := range modulemanager.ListModules() {
		if m, ok := mod.(*Module); ok {
			return m
		}
	}
	return nil
}
