package core

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	filesink "agrocore/internal/infra/persistence/file"
	"agrocore/pkg/domain"
)

func TestDurableStorePersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agrocore.json")

	sink, err := filesink.NewSink(path)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	store, err := NewDurableStore(ctx, NewDefaultRulesEngine(), sink, time.Millisecond, nil)
	if err != nil {
		t.Fatalf("new durable store: %v", err)
	}

	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, err := tx.CreateHarvest("Safra 2025/2026"); err != nil {
			return err
		}
		_, err := tx.CreateService(domain.Service{Type: domain.ServiceFungicide, AreaHectares: 75})
		return err
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := filesink.NewSink(path)
	if err != nil {
		t.Fatalf("reopen sink: %v", err)
	}
	restored, err := NewDurableStore(ctx, NewDefaultRulesEngine(), reopened, time.Millisecond, nil)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	defer restored.Close()

	if restored.CurrentHarvest().Name != "Safra 2025/2026" {
		t.Fatalf("harvest lost across restart")
	}
	services := restored.ListCurrentServices()
	if len(services) != 1 || services[0].AreaHectares != 75 {
		t.Fatalf("services lost across restart: %+v", services)
	}
}

func TestDurableStoreStartsEmptyOnCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agrocore.json")
	if err := os.WriteFile(path, []byte("{corrupt"), 0o644); err != nil {
		t.Fatalf("seed corrupt snapshot: %v", err)
	}

	sink, err := filesink.NewSink(path)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	var (
		mu    sync.Mutex
		warns []domain.PersistenceWarning
	)
	store, err := NewDurableStore(ctx, NewDefaultRulesEngine(), sink, time.Millisecond, func(w domain.PersistenceWarning) {
		mu.Lock()
		warns = append(warns, w)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("corrupt snapshot must not fail startup: %v", err)
	}
	defer store.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(warns) != 1 || warns[0].Op != "snapshot.load" {
		t.Fatalf("expected one load warning, got %+v", warns)
	}
	if len(store.ListHarvests()) != 0 {
		t.Fatalf("store must start empty after a corrupt snapshot")
	}
}

func TestOpenPersistentStoreDrivers(t *testing.T) {
	ctx := context.Background()

	t.Setenv("AGROCORE_STORAGE_DRIVER", "memory")
	store, err := OpenPersistentStore(ctx, NewDefaultRulesEngine(), nil)
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	if _, ok := store.(*DurableStore); ok {
		t.Fatalf("memory driver must not wrap a snapshot scheduler")
	}

	t.Setenv("AGROCORE_STORAGE_DRIVER", "file")
	t.Setenv("AGROCORE_FILE_PATH", filepath.Join(t.TempDir(), "state.json"))
	store, err = OpenPersistentStore(ctx, NewDefaultRulesEngine(), nil)
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	if ds, ok := store.(*DurableStore); !ok {
		t.Fatalf("file driver must return a durable store")
	} else if err := ds.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	t.Setenv("AGROCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("AGROCORE_SQLITE_PATH", filepath.Join(t.TempDir(), "state.db"))
	store, err = OpenPersistentStore(ctx, NewDefaultRulesEngine(), nil)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	if ds, ok := store.(*DurableStore); !ok {
		t.Fatalf("sqlite driver must return a durable store")
	} else if err := ds.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	t.Setenv("AGROCORE_STORAGE_DRIVER", "bogus")
	if _, err := OpenPersistentStore(ctx, NewDefaultRulesEngine(), nil); err == nil {
		t.Fatalf("unknown driver must error")
	}

	t.Setenv("AGROCORE_STORAGE_DRIVER", "file")
	t.Setenv("AGROCORE_SNAPSHOT_DEBOUNCE_MS", "nope")
	if _, err := OpenPersistentStore(ctx, NewDefaultRulesEngine(), nil); err == nil {
		t.Fatalf("invalid debounce must error")
	}
}
