package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/pseudokit/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "pseudokit.db"

// storedTimeLayout sorts lexically in UTC.
const storedTimeLayout = "2006-01-02 15:04:05.000000"

// ErrNotFound is returned when a run or artifact does not exist.
var ErrNotFound = errors.New("record not found")

// DB stores run history and, for the sqlite artifact backend, mapping and
// key artifacts.
type DB struct {
	db     *sql.DB
	dbPath string
}

// Options configures DB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL enables write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the database in dbDir.
func Open(dbDir string, opts Options) (*DB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &DB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Path returns the database file path.
func (h *DB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *DB) Close() error {
	return h.db.Close()
}

func (h *DB) createTables() error {
	schema := `
	-- One row per executed job
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		job TEXT NOT NULL,
		mode TEXT NOT NULL,
		strategy TEXT,
		output_dir TEXT,
		started_at DATETIME NOT NULL,
		succeeded INTEGER NOT NULL,
		records INTEGER NOT NULL DEFAULT 0,
		run_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_job ON runs(job);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Mapping and key artifacts for the sqlite storage backend
	CREATE TABLE IF NOT EXISTS artifacts (
		namespace TEXT NOT NULL,
		name TEXT NOT NULL,
		data BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY(namespace, name)
	);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun inserts or replaces a run record.
func (h *DB) SaveRun(ctx context.Context, run *model.Run) error {
	runJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to serialize run: %w", err)
	}

	query := `
	INSERT INTO runs (id, job, mode, strategy, output_dir, started_at, succeeded, records, run_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		succeeded = excluded.succeeded,
		records = excluded.records,
		run_json = excluded.run_json
	`

	succeeded := 0
	if run.Succeeded() {
		succeeded = 1
	}
	_, err = h.db.ExecContext(ctx, query,
		run.ID,
		run.Job,
		string(run.Mode),
		run.Strategy,
		run.OutputDir,
		run.StartedAt.UTC().Format(storedTimeLayout),
		succeeded,
		run.TotalRecords(),
		string(runJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun loads a run by ID.
func (h *DB) GetRun(ctx context.Context, id string) (*model.Run, error) {
	var runJSON string
	err := h.db.QueryRowContext(ctx, `SELECT run_json FROM runs WHERE id = ?`, id).Scan(&runJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run model.Run
	if err := json.Unmarshal([]byte(runJSON), &run); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	return &run, nil
}

// RunMetadata is the summary shown by history listings.
type RunMetadata struct {
	ID        string
	Job       string
	Mode      model.Mode
	Strategy  string
	OutputDir string
	StartedAt time.Time
	Succeeded bool
	Records   int
}

// ListRuns returns the most recent runs first. A non-empty job narrows the
// result to that job; limit <= 0 means no limit.
func (h *DB) ListRuns(ctx context.Context, job string, limit int) ([]RunMetadata, error) {
	query := `
	SELECT id, job, mode, strategy, output_dir, started_at, succeeded, records
	FROM runs
	WHERE (? = '' OR job = ?)
	ORDER BY started_at DESC
	`
	args := []any{job, job}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var (
			meta      RunMetadata
			mode      string
			strategy  sql.NullString
			outputDir sql.NullString
			started   string
			succeeded int
		)
		if err := rows.Scan(&meta.ID, &meta.Job, &mode, &strategy, &outputDir, &started, &succeeded, &meta.Records); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		meta.Mode = model.Mode(mode)
		meta.Strategy = strategy.String
		meta.OutputDir = outputDir.String
		meta.StartedAt = parseTimestamp(started)
		meta.Succeeded = succeeded == 1
		results = append(results, meta)
	}
	return results, rows.Err()
}

// PutArtifact stores data under (namespace, name), replacing any prior value.
func (h *DB) PutArtifact(ctx context.Context, namespace, name string, data []byte) error {
	query := `
	INSERT INTO artifacts (namespace, name, data)
	VALUES (?, ?, ?)
	ON CONFLICT(namespace, name) DO UPDATE SET
		data = excluded.data,
		updated_at = CURRENT_TIMESTAMP
	`
	if _, err := h.db.ExecContext(ctx, query, namespace, name, data); err != nil {
		return fmt.Errorf("failed to store artifact %s: %w", name, err)
	}
	return nil
}

// GetArtifact loads the data stored under (namespace, name).
func (h *DB) GetArtifact(ctx context.Context, namespace, name string) ([]byte, error) {
	var data []byte
	err := h.db.QueryRowContext(ctx,
		`SELECT data FROM artifacts WHERE namespace = ? AND name = ?`, namespace, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artifact %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact %s: %w", name, err)
	}
	return data, nil
}

// ListArtifacts returns the artifact names in a namespace, sorted.
func (h *DB) ListArtifacts(ctx context.Context, namespace string) ([]string, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT name FROM artifacts WHERE namespace = ? ORDER BY name`, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
var timestampFormats = []string{
	storedTimeLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
