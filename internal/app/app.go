// Package app assembles repositories, domain services and the workflow
// engine for a storage driver.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/activity"
	"github.com/rpggio/siteflow/internal/domain/exclusion"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/routing"
	"github.com/rpggio/siteflow/internal/domain/sourcefile"
	"github.com/rpggio/siteflow/internal/memory"
	"github.com/rpggio/siteflow/internal/metrics"
	"github.com/rpggio/siteflow/internal/sqlite"
	"github.com/rpggio/siteflow/internal/workflow"
)

// Driver names.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Stores are the repositories the services are built over.
type Stores struct {
	Actions      action.Repository
	Observations observation.Repository
	Exclusions   exclusion.Repository
	Files        sourcefile.Repository
	Activity     activity.Repository
}

// MemoryStores returns process-local stores.
func MemoryStores() Stores {
	return Stores{
		Actions:      memory.NewActionStore(),
		Observations: memory.NewObservationStore(),
		Exclusions:   memory.NewExclusionStore(),
		Files:        memory.NewSourceFileStore(),
		Activity:     memory.NewActivityStore(),
	}
}

// SQLiteStores returns stores over db. Migrations must already have run.
func SQLiteStores(db *sqlite.DB) Stores {
	return Stores{
		Actions:      sqlite.NewActionRepository(db),
		Observations: sqlite.NewObservationRepository(db),
		Exclusions:   sqlite.NewExclusionRepository(db),
		Files:        sqlite.NewSourceFileRepository(db),
		Activity:     sqlite.NewActivityRepository(db),
	}
}

// Options configures NewEngine.
type Options struct {
	Rules   routing.Rules
	Metrics *metrics.Collectors
	Logger  *slog.Logger
}

// NewEngine builds the services over stores and returns the workflow engine.
func NewEngine(stores Stores, opts Options) *workflow.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	exclusions := exclusion.NewService(stores.Exclusions, logger)
	if opts.Metrics != nil {
		exclusions.WithMetrics(opts.Metrics)
	}
	return workflow.New(workflow.Deps{
		Router:       routing.NewEngine(opts.Rules, logger),
		Actions:      action.NewService(stores.Actions, logger),
		Observations: observation.NewService(stores.Observations, logger),
		Exclusions:   exclusions,
		Files:        sourcefile.NewService(stores.Files, logger),
		Activity:     activity.NewService(stores.Activity, logger),
		Metrics:      opts.Metrics,
		Logger:       logger,
	})
}

// Open returns stores for driver. The returned close function releases the
// database, if any.
func Open(driver, path string) (Stores, func() error, error) {
	switch driver {
	case DriverMemory:
		return MemoryStores(), func() error { return nil }, nil
	case DriverSQLite, "":
		db, err := sqlite.New(path)
		if err != nil {
			return Stores{}, nil, err
		}
		if err := db.RunMigrations(); err != nil {
			_ = db.Close()
			return Stores{}, nil, fmt.Errorf("run migrations: %w", err)
		}
		return SQLiteStores(db), db.Close, nil
	default:
		return Stores{}, nil, fmt.Errorf("unknown db driver %q", driver)
	}
}
