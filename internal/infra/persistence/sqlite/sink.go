// Package sqlite persists the working-state snapshot to a single SQLite
// table of JSON blobs, one bucket per collection. The file format stays a
// plain keyed blob store so a snapshot written by an older build remains
// loadable after new buckets appear.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"agrocore/pkg/domain"
)

// Sink stores the snapshot in an embedded SQLite database.
type Sink struct {
	db   *sql.DB
	path string
}

// NewSink opens (creating if needed) the database at path and prepares the
// state table.
func NewSink(path string) (*Sink, error) {
	if path == "" {
		path = "agrocore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("sqlite sink: create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: open: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite sink: create state table: %w", err)
	}
	return &Sink{db: db, path: path}, nil
}

const (
	bucketCurrentHarvest = "current_harvest"
	bucketHarvests       = "harvests"
	bucketServices       = "services_by_harvest"
	bucketClients        = "clients"
	bucketEmployees      = "employees"
	bucketAircraft       = "aircraft"
	bucketCrops          = "crops"
)

// Save upserts every bucket inside one database transaction.
func (s *Sink) Save(ctx context.Context, snap domain.Snapshot) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite sink: begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	buckets := []struct {
		name  string
		value any
	}{
		{bucketCurrentHarvest, snap.CurrentHarvestID},
		{bucketHarvests, snap.Harvests},
		{bucketServices, snap.ServicesByHarvest},
		{bucketClients, snap.Clients},
		{bucketEmployees, snap.Employees},
		{bucketAircraft, snap.Aircraft},
		{bucketCrops, snap.Crops},
	}
	for _, b := range buckets {
		data, err := json.Marshal(b.value)
		if err != nil {
			retErr = fmt.Errorf("sqlite sink: encode %s: %w", b.name, err)
			return retErr
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, b.name, data); err != nil {
			retErr = fmt.Errorf("sqlite sink: upsert %s: %w", b.name, err)
			return retErr
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite sink: commit: %w", err)
	}
	return nil
}

// Load reassembles a snapshot from whatever buckets exist. An empty database
// reports ok=false.
func (s *Sink) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("sqlite sink: select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snap domain.Snapshot
	found := false
	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return domain.Snapshot{}, false, fmt.Errorf("sqlite sink: scan: %w", err)
		}
		found = true
		var dst any
		switch bucket {
		case bucketCurrentHarvest:
			dst = &snap.CurrentHarvestID
		case bucketHarvests:
			dst = &snap.Harvests
		case bucketServices:
			dst = &snap.ServicesByHarvest
		case bucketClients:
			dst = &snap.Clients
		case bucketEmployees:
			dst = &snap.Employees
		case bucketAircraft:
			dst = &snap.Aircraft
		case bucketCrops:
			dst = &snap.Crops
		default:
			continue
		}
		if err := json.Unmarshal(payload, dst); err != nil {
			return domain.Snapshot{}, false, fmt.Errorf("sqlite sink: decode %s: %w", bucket, err)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("sqlite sink: iterate: %w", err)
	}
	return snap, found, nil
}

// Close releases the database handle.
func (s *Sink) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Sink) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Sink) Path() string { return s.path }
