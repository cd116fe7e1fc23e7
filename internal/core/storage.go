package core

import (
	"fmt"
	"os"

	"plancore/internal/infra/persistence/badger"
	"plancore/internal/infra/persistence/memory"
	"plancore/internal/infra/persistence/postgres"
	"plancore/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageBadger   StorageDriver = "badger"   // embedded badger key-value directory
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	PLANCORE_STORAGE_DRIVER: memory|sqlite|postgres|badger (default sqlite)
//	PLANCORE_SQLITE_PATH: path to sqlite file (default ./plancore.db)
//	PLANCORE_POSTGRES_DSN: postgres DSN when driver=postgres
//	PLANCORE_BADGER_DIR: badger directory when driver=badger
func OpenPersistentStore() (PersistentStore, error) {
	driver := os.Getenv("PLANCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		path := os.Getenv("PLANCORE_SQLITE_PATH")
		return sqlite.NewStore(path)
	case StoragePostgres:
		dsn := os.Getenv("PLANCORE_POSTGRES_DSN")
		return postgres.NewStore(dsn)
	case StorageBadger:
		dir := os.Getenv("PLANCORE_BADGER_DIR")
		return badger.NewStore(badger.Config{Dir: dir})
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
