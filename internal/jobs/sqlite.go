package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Lllllllleong/pdftoolkit/internal/jobs/migrations"
	"github.com/Lllllllleong/pdftoolkit/internal/models"
)

// SQLiteRecorder keeps the ledger in a local SQLite file.
type SQLiteRecorder struct {
	db   *sql.DB
	path string
}

var _ Recorder = (*SQLiteRecorder)(nil)

// NewSQLiteRecorder opens (creating if needed) the database at path.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	if path == "" {
		return nil, errors.New("sqlite path must be set")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL mode lets readers proceed while a job is being written.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	r := &SQLiteRecorder{db: db, path: path}
	if err := r.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return r, nil
}

// Path returns the database file path.
func (r *SQLiteRecorder) Path() string { return r.path }

// Close closes the database connection.
func (r *SQLiteRecorder) Close() error { return r.db.Close() }

func (r *SQLiteRecorder) migrate(fsys fs.FS) error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := r.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := r.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := r.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// Start implements Recorder.
func (r *SQLiteRecorder) Start(ctx context.Context, job *models.Job) (string, error) {
	prepare(job)
	inputs, err := json.Marshal(job.Inputs)
	if err != nil {
		return "", fmt.Errorf("marshalling inputs: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, operation, file_hash, inputs, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Operation, job.FileHash, string(inputs), job.Status,
		job.CreatedAt.UnixNano(), job.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting job: %w", err)
	}
	return job.ID, nil
}

// Complete implements Recorder.
func (r *SQLiteRecorder) Complete(ctx context.Context, id string, out Outcome) error {
	return r.update(ctx, id, `
		UPDATE jobs SET status = ?, output_name = ?, page_count = ?, updated_at = ?
		WHERE id = ?`,
		models.StatusDone, out.OutputName, out.PageCount, time.Now().UTC().UnixNano(), id,
	)
}

// Fail implements Recorder.
func (r *SQLiteRecorder) Fail(ctx context.Context, id, kind, details string) error {
	return r.update(ctx, id, `
		UPDATE jobs SET status = ?, error_kind = ?, error_details = ?, updated_at = ?
		WHERE id = ?`,
		models.StatusFailed, kind, details, time.Now().UTC().UnixNano(), id,
	)
}

func (r *SQLiteRecorder) update(ctx context.Context, id, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("updating job %s: %w", id, ErrNotFound)
	}
	return nil
}

const jobColumns = `id, operation, file_hash, inputs, status, error_kind, error_details,
	output_name, page_count, created_at, updated_at`

// Get implements Recorder.
func (r *SQLiteRecorder) Get(ctx context.Context, id string) (*models.Job, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	return scanJob(row)
}

// FindByHash implements Recorder.
func (r *SQLiteRecorder) FindByHash(ctx context.Context, operation, fileHash string) (*models.Job, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+jobColumns+` FROM jobs
		WHERE operation = ? AND file_hash = ? AND status = ?
		ORDER BY created_at DESC LIMIT 1`,
		operation, fileHash, models.StatusDone,
	)
	job, err := scanJob(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return job, err
}

func scanJob(row *sql.Row) (*models.Job, error) {
	var (
		job              models.Job
		inputs           string
		created, updated int64
	)
	err := row.Scan(&job.ID, &job.Operation, &job.FileHash, &inputs, &job.Status,
		&job.ErrorKind, &job.ErrorDetails, &job.OutputName, &job.PageCount, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning job: %w", err)
	}
	if err := json.Unmarshal([]byte(inputs), &job.Inputs); err != nil {
		return nil, fmt.Errorf("unmarshalling inputs: %w", err)
	}
	job.CreatedAt = time.Unix(0, created).UTC()
	job.UpdatedAt = time.Unix(0, updated).UTC()
	return &job, nil
}
