// Package postgres persists the working-state snapshot to a Postgres table
// of JSON blobs, mirroring the SQLite bucket layout so either backend can
// load a snapshot written by the other.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"agrocore/pkg/domain"
)

const (
	driverName = "pgx"
	// DefaultDSN targets a local development instance; production deployments
	// override it via AGROCORE_POSTGRES_DSN.
	DefaultDSN = "postgres://localhost/agrocore?sslmode=disable"
)

// Sink stores the snapshot in a Postgres state table.
type Sink struct {
	db *sql.DB
}

// NewSink connects to the database at dsn (falling back to DefaultDSN) and
// ensures the state table exists.
func NewSink(ctx context.Context, dsn string) (*Sink, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres sink: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres sink: create state table: %w", err)
	}
	return &Sink{db: db}, nil
}

// Save upserts every bucket inside one database transaction.
func (s *Sink) Save(ctx context.Context, snap domain.Snapshot) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres sink: begin: %w", err)
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
		{"current_harvest", snap.CurrentHarvestID},
		{"harvests", snap.Harvests},
		{"services_by_harvest", snap.ServicesByHarvest},
		{"clients", snap.Clients},
		{"employees", snap.Employees},
		{"aircraft", snap.Aircraft},
		{"crops", snap.Crops},
	}
	for _, b := range buckets {
		data, err := json.Marshal(b.value)
		if err != nil {
			retErr = fmt.Errorf("postgres sink: encode %s: %w", b.name, err)
			return retErr
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, b.name, data); err != nil {
			retErr = fmt.Errorf("postgres sink: upsert %s: %w", b.name, err)
			return retErr
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres sink: commit: %w", err)
	}
	return nil
}

// Load reassembles a snapshot from whatever buckets exist. An empty table
// reports ok=false.
func (s *Sink) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("postgres sink: select state: %w", err)
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
			return domain.Snapshot{}, false, fmt.Errorf("postgres sink: scan: %w", err)
		}
		found = true
		var dst any
		switch bucket {
		case "current_harvest":
			dst = &snap.CurrentHarvestID
		case "harvests":
			dst = &snap.Harvests
		case "services_by_harvest":
			dst = &snap.ServicesByHarvest
		case "clients":
			dst = &snap.Clients
		case "employees":
			dst = &snap.Employees
		case "aircraft":
			dst = &snap.Aircraft
		case "crops":
			dst = &snap.Crops
		default:
			continue
		}
		if err := json.Unmarshal(payload, dst); err != nil {
			return domain.Snapshot{}, false, fmt.Errorf("postgres sink: decode %s: %w", bucket, err)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("postgres sink: iterate: %w", err)
	}
	return snap, found, nil
}

// Close releases the connection pool.
func (s *Sink) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Sink) DB() *sql.DB { return s.db }
