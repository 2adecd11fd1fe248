package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdftoolkit/internal/docx"
	"github.com/Lllllllleong/pdftoolkit/internal/gcp"
	"github.com/Lllllllleong/pdftoolkit/internal/jobs"
	"github.com/Lllllllleong/pdftoolkit/internal/models"
	"github.com/Lllllllleong/pdftoolkit/internal/testutil"
)

// memBucket is an in-memory stand-in for the output bucket.
type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

type memObject struct {
	bucket *memBucket
	name   string
	buf    bytes.Buffer
}

func (o *memObject) Write(p []byte) (int, error) { return o.buf.Write(p) }

func (o *memObject) Close() error {
	o.bucket.mu.Lock()
	defer o.bucket.mu.Unlock()
	o.bucket.objects[o.name] = o.buf.Bytes()
	return nil
}

func (b *memBucket) writer() gcp.ObjectWriter {
	return func(_ context.Context, name string, _ bool) io.WriteCloser {
		return &memObject{bucket: b, name: name}
	}
}

// fakeSource serves object bytes by name.
func fakeSource(objects map[string][]byte) ObjectFetcher {
	return func(_ context.Context, bucket, object, destPath string) error {
		data, ok := objects[bucket+"/"+object]
		if !ok {
			return errors.New("storage: object doesn't exist")
		}
		return os.WriteFile(destPath, data, 0o644)
	}
}

func newTestUploadExtractor(t *testing.T, source map[string][]byte, writeDocx bool) (*UploadExtractorFunction, *memBucket, *jobs.SQLiteRecorder) {
	t.Helper()
	rec, err := jobs.NewSQLiteRecorder(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	out := &memBucket{objects: map[string][]byte{}}
	f := newUploadExtractor(fakeSource(source), out.writer(), rec, UploadExtractorConfig{
		OutputBucket: "out",
		WriteDocx:    writeDocx,
		WorkDir:      t.TempDir(),
	})
	return f, out, rec
}

func TestUploadExtractor_Process(t *testing.T) {
	source := map[string][]byte{"in/reports/q1.pdf": testutil.PDF("Revenue up", "Costs down")}
	f, out, rec := newTestUploadExtractor(t, source, true)
	ctx := context.Background()

	require.NoError(t, f.Process(ctx, models.UploadEvent{Bucket: "in", Name: "reports/q1.pdf"}))

	text, ok := out.objects["reports/q1.txt"]
	require.True(t, ok, "text object written")
	assert.Contains(t, string(text), "Revenue up")
	assert.Contains(t, string(text), "Costs down")

	docxBytes, ok := out.objects["reports/q1.docx"]
	require.True(t, ok, "docx object written")
	doc, err := docx.Read(docxBytes)
	require.NoError(t, err)
	assert.Contains(t, doc.Text(), "Costs down")

	hash, _, err := calculateFileHash(testutil.WritePDF(t, t.TempDir(), "same.pdf", "Revenue up", "Costs down"))
	require.NoError(t, err)
	job, err := rec.FindByHash(ctx, models.OperationExtract, hash)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "reports/q1.txt", job.OutputName)
	assert.Equal(t, 2, job.PageCount)
}

func TestUploadExtractor_SkipsDuplicates(t *testing.T) {
	pdf := testutil.PDF("same content")
	source := map[string][]byte{"in/a.pdf": pdf, "in/b.pdf": pdf}
	f, out, _ := newTestUploadExtractor(t, source, false)
	ctx := context.Background()

	require.NoError(t, f.Process(ctx, models.UploadEvent{Bucket: "in", Name: "a.pdf"}))
	require.NoError(t, f.Process(ctx, models.UploadEvent{Bucket: "in", Name: "b.pdf"}))

	assert.Contains(t, out.objects, "a.txt")
	assert.NotContains(t, out.objects, "b.txt")
}

func TestUploadExtractor_IgnoresNonPDF(t *testing.T) {
	f, out, _ := newTestUploadExtractor(t, map[string][]byte{}, false)

	require.NoError(t, f.Process(context.Background(), models.UploadEvent{Bucket: "in", Name: "notes.txt"}))
	assert.Empty(t, out.objects)
}

func TestUploadExtractor_InvalidPDFMarksJobFailed(t *testing.T) {
	data := []byte("definitely not a pdf")
	source := map[string][]byte{"in/bad.pdf": data}
	f, out, rec := newTestUploadExtractor(t, source, false)
	ctx := context.Background()

	err := f.Process(ctx, models.UploadEvent{Bucket: "in", Name: "bad.pdf"})
	require.Error(t, err)
	assert.Empty(t, out.objects)

	hash, _, herr := calculateFileHash(testutil.WriteFile(t, t.TempDir(), "bad.pdf", data))
	require.NoError(t, herr)
	found, ferr := rec.FindByHash(ctx, models.OperationExtract, hash)
	require.NoError(t, ferr)
	assert.Nil(t, found, "failed jobs never count as duplicates")
}

func TestUploadExtractor_DownloadFailure(t *testing.T) {
	f, _, _ := newTestUploadExtractor(t, map[string][]byte{}, false)
	err := f.Process(context.Background(), models.UploadEvent{Bucket: "in", Name: "missing.pdf"})
	assert.ErrorContains(t, err, "object doesn't exist")
}
