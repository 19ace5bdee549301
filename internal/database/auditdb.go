package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/fairhire/internal/clock"
	"github.com/nao1215/fairhire/internal/model"
	"github.com/nao1215/fairhire/internal/store"
)

// FileName is the database file created inside the data directory.
const FileName = "fairhire.db"

// AuditDB is a store.Store backed by SQLite.
type AuditDB struct {
	db     *sql.DB
	dbPath string
	clock  clock.Clock
}

var _ store.Store = (*AuditDB)(nil)

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool

	// Clock decides which rows are expired. Defaults to the system clock.
	Clock clock.Clock
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the audit database in dbDir.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	var dsn string
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
		clock:  opts.Clock,
	}
	if adb.clock == nil {
		adb.clock = clock.RealClock{}
	}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := adb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return adb, nil
}

// Path returns the database file path.
func (adb *AuditDB) Path() string {
	return adb.dbPath
}

// Close implements store.Store.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

func (adb *AuditDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS audits (
		key TEXT PRIMARY KEY,
		record_json TEXT NOT NULL,
		status TEXT NOT NULL,
		bias_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audits_expires ON audits(expires_at);
	`
	_, err := adb.db.ExecContext(ctx, schema)
	return err
}

// Save implements store.Store. Re-saving a key replaces the row and its expiry.
func (adb *AuditDB) Save(ctx context.Context, id string, rec *model.AuditRecord, ttl time.Duration) error {
	data, err := store.Encode(id, rec)
	if err != nil {
		return err
	}

	now := adb.clock.Now()
	query := `
	INSERT INTO audits (key, record_json, status, bias_count, created_at, expires_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		record_json = excluded.record_json,
		status = excluded.status,
		bias_count = excluded.bias_count,
		created_at = excluded.created_at,
		expires_at = excluded.expires_at
	`
	_, err = adb.db.ExecContext(ctx, query,
		store.Key(id),
		string(data),
		string(rec.Status),
		rec.BiasCount(),
		now.UnixNano(),
		now.Add(store.EffectiveTTL(ttl)).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit %s: %w", id, err)
	}
	return nil
}

// Recall implements store.Store.
func (adb *AuditDB) Recall(ctx context.Context, id string) (*model.AuditRecord, bool, error) {
	if id == "" {
		return nil, false, store.ErrEmptyID
	}

	query := `SELECT record_json FROM audits WHERE key = ? AND expires_at > ?`

	var recordJSON string
	err := adb.db.QueryRowContext(ctx, query, store.Key(id), adb.clock.Now().UnixNano()).Scan(&recordJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to recall audit %s: %w", id, err)
	}

	rec, err := store.Decode([]byte(recordJSON))
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// ListIDs implements store.Store.
func (adb *AuditDB) ListIDs(ctx context.Context, prefix string) ([]string, error) {
	kp := store.KeyPrefix(prefix)
	query := `
	SELECT key FROM audits
	WHERE substr(key, 1, length(?)) = ? AND expires_at > ?
	`

	rows, err := adb.db.QueryContext(ctx, query, kp, kp, adb.clock.Now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		ids = append(ids, store.IDFromKey(key))
	}
	return ids, rows.Err()
}

// Delete implements store.Store.
func (adb *AuditDB) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, store.ErrEmptyID
	}

	res, err := adb.db.ExecContext(ctx,
		`DELETE FROM audits WHERE key = ? AND expires_at > ?`,
		store.Key(id), adb.clock.Now().UnixNano())
	if err != nil {
		return false, fmt.Errorf("failed to delete audit %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete audit %s: %w", id, err)
	}
	return n > 0, nil
}

// PurgeExpired removes expired rows and returns how many were deleted.
func (adb *AuditDB) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := adb.db.ExecContext(ctx, `DELETE FROM audits WHERE expires_at <= ?`, adb.clock.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired audits: %w", err)
	}
	return res.RowsAffected()
}
