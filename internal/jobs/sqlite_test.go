package jobs

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdftoolkit/internal/models"
)

func newSQLite(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "data", "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_Lifecycle(t *testing.T) {
	ctx := context.Background()
	r := newSQLite(t)

	job := &models.Job{
		Operation: models.OperationMerge,
		Inputs: []models.JobInput{
			{Filename: "a.pdf", FileHash: "aaa", Size: 10},
			{Filename: "b.pdf", FileHash: "bbb", Size: 20},
		},
	}
	id, err := r.Start(ctx, job)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
	assert.Equal(t, "aaa", got.FileHash)
	assert.Equal(t, job.Inputs, got.Inputs)
	assert.False(t, got.CreatedAt.IsZero())

	require.NoError(t, r.Complete(ctx, id, Outcome{OutputName: "merged.pdf", PageCount: 3}))
	got, err = r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status)
	assert.Equal(t, "merged.pdf", got.OutputName)
	assert.Equal(t, 3, got.PageCount)
}

func TestSQLiteRecorder_Fail(t *testing.T) {
	ctx := context.Background()
	r := newSQLite(t)

	id, err := r.Start(ctx, &models.Job{Operation: models.OperationExtract})
	require.NoError(t, err)
	require.NoError(t, r.Fail(ctx, id, "InvalidDocument", "extract: invalid document: not a PDF"))

	got, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "InvalidDocument", got.ErrorKind)
	assert.Contains(t, got.ErrorDetails, "not a PDF")
}

func TestSQLiteRecorder_UnknownID(t *testing.T) {
	ctx := context.Background()
	r := newSQLite(t)

	_, err := r.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.Complete(ctx, "missing", Outcome{}), ErrNotFound)
}

func TestSQLiteRecorder_FindByHash(t *testing.T) {
	ctx := context.Background()
	r := newSQLite(t)

	pending, err := r.Start(ctx, &models.Job{Operation: models.OperationExtract, FileHash: "h1"})
	require.NoError(t, err)

	found, err := r.FindByHash(ctx, models.OperationExtract, "h1")
	require.NoError(t, err)
	assert.Nil(t, found, "unfinished jobs are not matches")

	require.NoError(t, r.Complete(ctx, pending, Outcome{OutputName: "h1.txt"}))
	found, err = r.FindByHash(ctx, models.OperationExtract, "h1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, pending, found.ID)

	found, err = r.FindByHash(ctx, models.OperationMerge, "h1")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSQLiteRecorder_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jobs.db")

	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	id, err := r.Start(ctx, &models.Job{Operation: models.OperationAnswer})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer r.Close()
	got, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OperationAnswer, got.Operation)
}

func TestSQLiteRecorder_Concurrent(t *testing.T) {
	ctx := context.Background()
	r := newSQLite(t)

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := r.Start(ctx, &models.Job{Operation: models.OperationExtract})
			if assert.NoError(t, err) {
				ids[i] = id
				assert.NoError(t, r.Complete(ctx, id, Outcome{PageCount: i}))
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, n)
}
