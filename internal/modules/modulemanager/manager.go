package modulemanager

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clipforge/clipforge/internal/logger"
)

// Module defines the interface that all modules must implement
type Module interface {
	ID() string                // Unique identifier for the module
	Name() string              // Display name for the module
	Core() bool                // Whether this is a core module (cannot be disabled)
	Migrate(db *gorm.DB) error // Run database migrations
	Init() error               // Initialize the module
}

// RouteRegistrar is an optional interface for modules that need to register routes
type RouteRegistrar interface {
	RegisterRoutes(router *gin.Engine)
}

// Shutdowner is an optional interface for modules with background services.
type Shutdowner interface {
	Shutdown() error
}

// ModuleRegistry manages module registration and initialization
type ModuleRegistry struct {
	modules         map[string]Module
	disabledModules map[string]bool
	mu              sync.RWMutex
	initialized     bool
}

// Registry is the global module registry
var Registry = &ModuleRegistry{
	modules:         make(map[string]Module),
	disabledModules: make(map[string]bool),
}

// Register adds a module to the global registry
func Register(m Module) {
	Registry.Register(m)
}

// Register adds a module to the registry
func (r *ModuleRegistry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		logger.Warn("Module %s (%s) registered after initialization", m.Name(), m.ID())
	}

	r.modules[m.ID()] = m
	logger.Info("📦 Module registered: %s (%s)", m.Name(), m.ID())
}

// LoadAll migrates and initializes all registered modules
func LoadAll(db *gorm.DB) error {
	return Registry.LoadAll(db)
}

// LoadAll migrates and initializes all registered modules
func (r *ModuleRegistry) LoadAll(db *gorm.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		logger.Warn("Module system already initialized")
		return nil
	}

	logger.Info("🔄 Loading %d modules...", len(r.modules))

	for _, module := range r.sortedLocked() {
		if r.disabledModules[module.ID()] {
			if module.Core() {
				return fmt.Errorf("attempted to disable core module: %s", module.ID())
			}
			logger.Warn("⚠️ Skipping module %s (disabled)", module.Name())
			continue
		}

		if err := module.Migrate(db); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", module.Name(), err)
		}
		if err := module.Init(); err != nil {
			return fmt.Errorf("failed to initialize %s: %w", module.Name(), err)
		}

		logger.Info("✅ Module loaded: %s", module.Name())
	}

	r.initialized = true
	return nil
}

// RegisterRoutes invokes RegisterRoutes on every module that provides it.
func RegisterRoutes(router *gin.Engine) {
	Registry.mu.RLock()
	defer Registry.mu.RUnlock()

	for _, module := range Registry.sortedLocked() {
		if Registry.disabledModules[module.ID()] {
			continue
		}
		if registrar, ok := module.(RouteRegistrar); ok {
			registrar.RegisterRoutes(router)
		}
	}
}

// ShutdownAll stops modules with background services, in reverse load order.
func ShutdownAll() {
	Registry.mu.RLock()
	modules := Registry.sortedLocked()
	Registry.mu.RUnlock()

	for i := len(modules) - 1; i >= 0; i-- {
		if s, ok := modules[i].(Shutdowner); ok {
			if err := s.Shutdown(); err != nil {
				logger.Warn("Module shutdown failed", "module", modules[i].ID(), "error", err)
			}
		}
	}
}

// DisableModule marks a module as disabled (for development/testing only)
func DisableModule(id string) {
	Registry.mu.Lock()
	defer Registry.mu.Unlock()

	module, exists := Registry.modules[id]
	if !exists {
		logger.Warn("Attempted to disable non-existent module: %s", id)
		return
	}
	if module.Core() {
		logger.Error("Cannot disable core module: %s", id)
		return
	}
	Registry.disabledModules[id] = true
}

// ListModules returns all registered modules in deterministic order
func ListModules() []Module {
	Registry.mu.RLock()
	defer Registry.mu.RUnlock()
	return Registry.sortedLocked()
}

// sortedLocked returns modules ordered by ID; callers must hold the lock.
func (r *ModuleRegistry) sortedLocked() []Module {
	out := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ResetForTesting clears the registry. For use in tests only.
func ResetForTesting() {
	Registry.mu.Lock()
	defer Registry.mu.Unlock()
	Registry.modules = make(map[string]Module)
	Registry.disabledModules = make(map[string]bool)
	Registry.initialized = false
}
