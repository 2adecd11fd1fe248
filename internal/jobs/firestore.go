package jobs

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/pdftoolkit/internal/models"
)

// FirestoreRecorder keeps the ledger in a Firestore collection, one document
// per job keyed by the job ID.
type FirestoreRecorder struct {
	client     *firestore.Client
	collection string
	owned      bool
}

var _ Recorder = (*FirestoreRecorder)(nil)

// NewFirestoreRecorder records into collection using client. The client is
// not closed by Close.
func NewFirestoreRecorder(client *firestore.Client, collection string) *FirestoreRecorder {
	if collection == "" {
		collection = "jobs"
	}
	return &FirestoreRecorder{client: client, collection: collection}
}

func (r *FirestoreRecorder) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(r.collection).Doc(id)
}

// Start implements Recorder.
func (r *FirestoreRecorder) Start(ctx context.Context, job *models.Job) (string, error) {
	prepare(job)
	if _, err := r.doc(job.ID).Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create job document: %w", err)
	}
	return job.ID, nil
}

// Complete implements Recorder.
func (r *FirestoreRecorder) Complete(ctx context.Context, id string, out Outcome) error {
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusDone},
		{Path: "updatedAt", Value: time.Now().UTC()},
	}
	if out.OutputName != "" {
		updates = append(updates, firestore.Update{Path: "outputName", Value: out.OutputName})
	}
	if out.PageCount > 0 {
		updates = append(updates, firestore.Update{Path: "pageCount", Value: out.PageCount})
	}
	return r.update(ctx, id, updates)
}

// Fail implements Recorder.
func (r *FirestoreRecorder) Fail(ctx context.Context, id, kind, details string) error {
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusFailed},
		{Path: "updatedAt", Value: time.Now().UTC()},
	}
	if kind != "" {
		updates = append(updates, firestore.Update{Path: "errorKind", Value: kind})
	}
	if details != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: details})
	}
	return r.update(ctx, id, updates)
}

func (r *FirestoreRecorder) update(ctx context.Context, id string, updates []firestore.Update) error {
	if _, err := r.doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("updating job %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("updating job %s: %w", id, err)
	}
	return nil
}

// Get implements Recorder.
func (r *FirestoreRecorder) Get(ctx context.Context, id string) (*models.Job, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read job %s: %w", id, err)
	}
	return decode(snap)
}

// FindByHash implements Recorder.
func (r *FirestoreRecorder) FindByHash(ctx context.Context, operation, fileHash string) (*models.Job, error) {
	docs, err := r.client.Collection(r.collection).
		Where("fileHash", "==", fileHash).
		Where("operation", "==", operation).
		Where("status", "==", models.StatusDone).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return decode(docs[0])
}

func decode(snap *firestore.DocumentSnapshot) (*models.Job, error) {
	var job models.Job
	if err := snap.DataTo(&job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", snap.Ref.ID, err)
	}
	job.ID = snap.Ref.ID
	return &job, nil
}

// Close implements Recorder. It closes the client only when Open created it.
func (r *FirestoreRecorder) Close() error {
	if r.owned {
		return r.client.Close()
	}
	return nil
}
