package core

import (
	"io"
	"path/filepath"
	"testing"

	"phsen/internal/config"
	"phsen/internal/infra/persistence/memory"
	"phsen/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreSelectsDriver(t *testing.T) {
	store, err := OpenPersistentStore(config.Storage{})
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store by default, got %T", store)
	}

	path := filepath.Join(t.TempDir(), "runs.db")
	store, err = OpenPersistentStore(config.Storage{Driver: string(StorageSQLite), SQLitePath: path})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	sq, ok := store.(*sqlite.Store)
	if !ok || sq.Path() != path {
		t.Fatalf("expected sqlite store at %s, got %T", path, store)
	}
	if closer, ok := store.(io.Closer); !ok {
		t.Fatalf("sqlite store should be closable")
	} else if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := OpenPersistentStore(config.Storage{Driver: "mysql"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
