// Package jobs keeps a ledger of document operations: what was asked, on
// which inputs, and how it ended.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Lllllllleong/pdftoolkit/internal/models"
)

// ErrNotFound is returned by Get for unknown job IDs.
var ErrNotFound = errors.New("job not found")

// Outcome is what a successful job produced.
type Outcome struct {
	OutputName string
	PageCount  int
}

// Recorder persists job records. Implementations must be safe for concurrent
// use.
type Recorder interface {
	// Start stores job with status PROCESSING and returns its ID.
	Start(ctx context.Context, job *models.Job) (string, error)
	// Complete marks the job DONE.
	Complete(ctx context.Context, id string, out Outcome) error
	// Fail marks the job FAILED with the error classification and details.
	Fail(ctx context.Context, id, kind, details string) error
	// Get returns a job by ID.
	Get(ctx context.Context, id string) (*models.Job, error)
	// FindByHash returns the most recent DONE job of operation whose first
	// input has the given hash, or nil when there is none.
	FindByHash(ctx context.Context, operation, fileHash string) (*models.Job, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendNone      = "none"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// prepare fills in the fields every backend sets on Start.
func prepare(job *models.Job) {
	now := time.Now().UTC()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = models.StatusProcessing
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.FileHash == "" && len(job.Inputs) > 0 {
		job.FileHash = job.Inputs[0].FileHash
	}
}

// Nop records nothing. It is used when no ledger is configured.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) Start(_ context.Context, job *models.Job) (string, error) {
	prepare(job)
	return job.ID, nil
}

func (Nop) Complete(context.Context, string, Outcome) error { return nil }

func (Nop) Fail(context.Context, string, string, string) error { return nil }

func (Nop) Get(context.Context, string) (*models.Job, error) { return nil, ErrNotFound }

func (Nop) FindByHash(context.Context, string, string) (*models.Job, error) { return nil, nil }

func (Nop) Close() error { return nil }
