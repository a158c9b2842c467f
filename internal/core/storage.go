package core

import (
	"fmt"

	"phsen/internal/config"
	"phsen/internal/infra/persistence/memory"
	"phsen/internal/infra/persistence/postgres"
	"phsen/internal/infra/persistence/sqlite"
	"phsen/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / one-shot CLI runs)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// PersistentStore aliases domain.PersistentStore.
type PersistentStore = domain.PersistentStore

// OpenPersistentStore selects a run store backend from configuration. SQL
// backends implement io.Closer; callers close them when done.
func OpenPersistentStore(cfg config.Storage) (PersistentStore, error) {
	switch StorageDriver(cfg.Driver) {
	case "", StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
