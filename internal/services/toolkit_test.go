package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdftoolkit/internal/docerr"
	"github.com/Lllllllleong/pdftoolkit/internal/docx"
	"github.com/Lllllllleong/pdftoolkit/internal/jobs"
	"github.com/Lllllllleong/pdftoolkit/internal/models"
	"github.com/Lllllllleong/pdftoolkit/internal/pdfcfg"
	"github.com/Lllllllleong/pdftoolkit/internal/qa"
	"github.com/Lllllllleong/pdftoolkit/internal/render"
	"github.com/Lllllllleong/pdftoolkit/internal/testutil"
)

func newTestToolkit(t *testing.T) (*Toolkit, *jobs.SQLiteRecorder, string) {
	t.Helper()
	work := t.TempDir()
	rec, err := jobs.NewSQLiteRecorder(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	tk, err := NewToolkit(ToolkitConfig{WorkDir: work}, render.NewCanvas(render.CanvasConfig{}), qa.NewLexical(), rec)
	require.NoError(t, err)
	return tk, rec, work
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "request arenas must be removed")
}

func TestToolkit_MergeStream(t *testing.T) {
	tk, rec, work := newTestToolkit(t)
	ctx := WithRequestID(context.Background(), "req-merge")

	var out bytes.Buffer
	res, err := tk.Merge(ctx, []Input{
		{Name: "a.pdf", Data: bytes.NewReader(testutil.PDF("one"))},
		{Name: "a.pdf", Data: bytes.NewReader(testutil.PDF("two", "three"))},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, res.PageCount)

	n, err := api.PageCount(bytes.NewReader(out.Bytes()), pdfcfg.Relaxed())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assertEmptyDir(t, work)

	job, err := rec.Get(context.Background(), "req-merge")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, job.Status)
	assert.Equal(t, models.OperationMerge, job.Operation)
	assert.Equal(t, 3, job.PageCount)
	require.Len(t, job.Inputs, 2)
	assert.Len(t, job.Inputs[0].FileHash, 64)
	assert.NotEqual(t, job.Inputs[0].FileHash, job.Inputs[1].FileHash)
}

func TestToolkit_ExtractFailureRecorded(t *testing.T) {
	tk, rec, work := newTestToolkit(t)
	ctx := WithRequestID(context.Background(), "req-bad")

	_, err := tk.Extract(ctx, Input{Name: "x.pdf", Data: strings.NewReader("not a pdf")})
	require.Error(t, err)
	assert.ErrorIs(t, err, docerr.ErrInvalidDocument)
	assertEmptyDir(t, work)

	job, err := rec.Get(context.Background(), "req-bad")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, job.Status)
	assert.Equal(t, "InvalidDocument", job.ErrorKind)
	assert.Contains(t, job.ErrorDetails, "extract")
}

func TestToolkit_ConversionsStream(t *testing.T) {
	tk, _, work := newTestToolkit(t)
	ctx := context.Background()

	var docxOut bytes.Buffer
	res, err := tk.PDFToWord(ctx, Input{Name: "in.pdf", Data: bytes.NewReader(testutil.PDF("Quarterly summary"))}, &docxOut)
	require.NoError(t, err)
	assert.Equal(t, 1, res.PageCount)
	doc, err := docx.Read(docxOut.Bytes())
	require.NoError(t, err)
	assert.Contains(t, doc.Text(), "Quarterly summary")

	var pdfOut bytes.Buffer
	_, err = tk.WordToPDF(ctx, Input{Name: "in.docx", Data: bytes.NewReader(docxOut.Bytes())}, &pdfOut)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdfOut.Bytes(), []byte("%PDF-")))

	assertEmptyDir(t, work)
}

func TestToolkit_AskAndAnswer(t *testing.T) {
	tk, _, _ := newTestToolkit(t)
	ctx := context.Background()
	assert.Equal(t, qa.LexicalName, tk.Model())
	assert.Equal(t, render.StrategyCanvas, tk.Renderer())

	pdf := testutil.PDF("The warranty lasts two years.", "Shipping is free over fifty dollars.")
	ans, err := tk.Ask(ctx, Input{Name: "terms.pdf", Data: bytes.NewReader(pdf)}, "How long is the warranty?")
	require.NoError(t, err)
	assert.Contains(t, ans.Text, "two years")

	ans, err = tk.Answer(ctx, "Paris is the capital of France.", "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", ans.Text)

	_, err = tk.Answer(ctx, "", "anything")
	assert.ErrorIs(t, err, docerr.ErrInference)
}

func TestToolkit_FileMethods(t *testing.T) {
	tk, _, _ := newTestToolkit(t)
	ctx := context.Background()
	dir := t.TempDir()
	a := testutil.WritePDF(t, dir, "a.pdf", "left")
	b := testutil.WritePDF(t, dir, "b.pdf", "right")

	res, err := tk.MergeFiles(ctx, []string{a, b}, filepath.Join(dir, "ab.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.PageCount)

	ext, err := tk.ExtractFile(ctx, res.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, ext.Text, "left")
	assert.Contains(t, ext.Text, "right")

	_, err = tk.PDFToWordFile(ctx, res.OutputPath, filepath.Join(dir, "ab.docx"))
	require.NoError(t, err)
	_, err = tk.WordToPDFFile(ctx, filepath.Join(dir, "ab.docx"), filepath.Join(dir, "ab2.pdf"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "ab2.pdf"))
}

func TestRequestID(t *testing.T) {
	assert.Empty(t, RequestIDFrom(context.Background()))
	assert.Equal(t, "abc", RequestIDFrom(WithRequestID(context.Background(), "abc")))
}
