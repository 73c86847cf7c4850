package core

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	filesink "agrocore/internal/infra/persistence/file"
	"agrocore/internal/infra/persistence/memory"
	"agrocore/internal/infra/persistence/postgres"
	"agrocore/internal/infra/persistence/sqlite"
	"agrocore/internal/snapshot"
	"agrocore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageFile     StorageDriver = "file"     // single JSON file (default)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// DefaultFilePath is the working-state location when no path is configured.
const DefaultFilePath = "./agrocore.json"

func newMemoryStore(engine *RulesEngine) *memory.Store {
	return memory.NewStore(engine)
}

// DurableStore couples the authoritative in-memory store with a debounced
// snapshot scheduler. Every committed transaction offers the new state to
// the scheduler; durable write failures surface as warnings, never as
// transaction errors.
type DurableStore struct {
	*memory.Store
	sched *snapshot.Scheduler
}

var _ domain.PersistentStore = (*DurableStore)(nil)

// NewDurableStore hydrates a memory store from the sink and wires the
// debounced scheduler in front of it. A corrupt snapshot is reported through
// warn and the store starts empty rather than failing startup.
func NewDurableStore(ctx context.Context, engine *RulesEngine, sink snapshot.Sink, debounce time.Duration, warn snapshot.WarnFunc) (*DurableStore, error) {
	mem := memory.NewStore(engine)
	snap, ok, err := sink.Load(ctx)
	if err != nil {
		if warn != nil {
			warn(domain.PersistenceWarning{Op: "snapshot.load", Err: err, At: time.Now().UTC()})
		}
	} else if ok {
		mem.ImportState(snap)
	}
	return &DurableStore{
		Store: mem,
		sched: snapshot.NewScheduler(sink, debounce, warn),
	}, nil
}

// RunInTransaction applies fn transactionally and offers the committed state
// to the snapshot scheduler.
func (s *DurableStore) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	s.sched.Offer(s.Store.ExportState())
	return res, nil
}

// ImportState replaces the whole state and schedules a durable write.
func (s *DurableStore) ImportState(snap domain.Snapshot) {
	s.Store.ImportState(snap)
	s.sched.Offer(s.Store.ExportState())
}

// Flush forces any pending snapshot to the sink immediately.
func (s *DurableStore) Flush(ctx context.Context) error {
	return s.sched.Flush(ctx)
}

// Close flushes pending writes and releases the sink.
func (s *DurableStore) Close() error {
	return s.sched.Close()
}

// OpenPersistentStore selects a backend using environment variables.
// Defaults to the JSON file driver when unset.
//
//	AGROCORE_STORAGE_DRIVER: memory|file|sqlite|postgres (default file)
//	AGROCORE_FILE_PATH: path to the JSON state file (default ./agrocore.json)
//	AGROCORE_SQLITE_PATH: path to sqlite file (default ./agrocore.db)
//	AGROCORE_POSTGRES_DSN: postgres DSN when driver=postgres
//	AGROCORE_SNAPSHOT_DEBOUNCE_MS: quiet period before a durable write (default 300)
func OpenPersistentStore(ctx context.Context, engine *RulesEngine, warn snapshot.WarnFunc) (PersistentStore, error) {
	driver := os.Getenv("AGROCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageFile)
	}
	debounce := snapshot.DefaultDebounce
	if raw := os.Getenv("AGROCORE_SNAPSHOT_DEBOUNCE_MS"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("invalid AGROCORE_SNAPSHOT_DEBOUNCE_MS %q", raw)
		}
		debounce = time.Duration(ms) * time.Millisecond
	}

	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageFile:
		path := os.Getenv("AGROCORE_FILE_PATH")
		if path == "" {
			path = DefaultFilePath
		}
		sink, err := filesink.NewSink(path)
		if err != nil {
			return nil, err
		}
		return NewDurableStore(ctx, engine, sink, debounce, warn)
	case StorageSQLite:
		sink, err := sqlite.NewSink(os.Getenv("AGROCORE_SQLITE_PATH"))
		if err != nil {
			return nil, err
		}
		return NewDurableStore(ctx, engine, sink, debounce, warn)
	case StoragePostgres:
		sink, err := postgres.NewSink(ctx, os.Getenv("AGROCORE_POSTGRES_DSN"))
		if err != nil {
			return nil, err
		}
		return NewDurableStore(ctx, engine, sink, debounce, warn)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
