// Package billingmodule implements the credit ledger and the pre-flight
// cost gate consulted before any clip generation starts.
package billingmodule

import (
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/clipforge/clipforge/internal/database"
	"github.com/clipforge/clipforge/internal/events"
	"github.com/clipforge/clipforge/internal/logger"
	"github.com/clipforge/clipforge/internal/modules/modulemanager"
)

// Auto-register the module when imported
func init() {
	Register()
}

const (
	ModuleID   = "system.billing"
	ModuleName = "Billing"
)

// Module implements credit accounting as a module
type Module struct {
	db       *gorm.DB
	eventBus events.EventBus
	accounts *AccountRepository
}

// Register registers the billing module with the module system
func Register() {
	modulemanager.Register(&Module{})
}

func (m *Module) ID() string   { return ModuleID }
func (m *Module) Name() string { return ModuleName }
func (m *Module) Core() bool   { return true }

// Migrate performs database migrations
func (m *Module) Migrate(db *gorm.DB) error {
	logger.Info("Migrating billing database schema")
	return db.AutoMigrate(
		&database.UserSubscription{},
		&database.UserCredits{},
	)
}

// Init initializes the billing module
func (m *Module) Init() error {
	logger.Info("Initializing billing module")

	if m.db == nil {
		m.db = database.GetDB()
	}
	if m.eventBus == nil {
		m.eventBus = events.GetGlobalEventBus()
	}

	hclogger := hclog.New(&hclog.LoggerOptions{
		Name:  "billing",
		Level: hclog.Info,
	})
	m.accounts = NewAccountRepository(m.db, hclogger)
	return nil
}

// Accounts exposes the repository to sibling modules (the clip generator
// consults the gate and debits through it).
func (m *Module) Accounts() *AccountRepository {
	return m.accounts
}

// GetModule returns the registered billing module instance.
func GetModule() *Module {
	for _, mod := range modulemanager.ListModules() {
		if m, ok := mod.(*Module); ok {
			return m
		}
	}
	return nil
}
