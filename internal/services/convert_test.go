package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdftoolkit/internal/docerr"
	"github.com/Lllllllleong/pdftoolkit/internal/docx"
	"github.com/Lllllllleong/pdftoolkit/internal/render"
	"github.com/Lllllllleong/pdftoolkit/internal/testutil"
)

func TestPDFToWord(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WritePDF(t, dir, "report.pdf", "Introduction\nScope of work", "Findings")
	out := filepath.Join(dir, "report.docx")

	res, err := NewPDFToWordConverter(NewTextExtractor()).Convert(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, 2, res.PageCount)
	assert.Equal(t, out, res.OutputPath)

	doc, err := docx.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "report", doc.Title)
	assert.Equal(t, res.Paragraphs, len(doc.Paragraphs))

	text := doc.Text()
	for _, want := range []string{"Introduction", "Scope of work", "Findings"} {
		assert.Contains(t, text, want)
	}

	var breaks []string
	for _, p := range doc.Paragraphs {
		if p.PageBreak {
			breaks = append(breaks, p.Text)
		}
	}
	require.Len(t, breaks, 1)
	assert.Contains(t, breaks[0], "Findings")
}

func TestPDFToWord_InvalidInput(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "fake.pdf", []byte("hello"))
	out := filepath.Join(dir, "fake.docx")

	_, err := NewPDFToWordConverter(NewTextExtractor()).Convert(context.Background(), in, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, docerr.ErrConversion)
	assert.ErrorIs(t, err, docerr.ErrInvalidDocument)
	assert.Equal(t, docerr.ErrConversion, docerr.KindOf(err))
	assert.NoFileExists(t, out)
}

func TestParagraphsFromPages(t *testing.T) {
	got := paragraphsFromPages([]string{"one\n\ntwo  ", "", "three"})
	assert.Equal(t, []docx.Paragraph{
		{Text: "one"},
		{Text: "two"},
		{PageBreak: true},
		{Text: "three", PageBreak: true},
	}, got)
}

func TestWordToPDF_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	paragraphs := []string{
		"Project charter",
		"The team will deliver the portal by June.",
		strings.Repeat("Budget lines are reviewed monthly. ", 12),
	}
	in := testutil.WriteDOCX(t, dir, "charter.docx", paragraphs...)
	out := filepath.Join(dir, "charter.pdf")

	conv := NewWordToPDFConverter(render.NewCanvas(render.CanvasConfig{}))
	res, err := conv.Convert(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Paragraphs)
	assert.GreaterOrEqual(t, res.PageCount, 1)
	assert.Equal(t, render.StrategyCanvas, conv.Renderer())

	ext, err := NewTextExtractor().Extract(context.Background(), out)
	require.NoError(t, err)
	assert.Contains(t, ext.Text, "Project charter")
	assert.Contains(t, ext.Text, "deliver the portal by June.")
	assert.Equal(t, 12, strings.Count(ext.Text, "Budget"))
}

func TestPDFToWord_CanvasOutputKeepsLines(t *testing.T) {
	dir := t.TempDir()
	lines := []string{"First paragraph here", "Second paragraph here", "Third one"}
	in := testutil.WriteDOCX(t, dir, "source.docx", lines...)
	rendered := filepath.Join(dir, "source.pdf")

	_, err := NewWordToPDFConverter(render.NewCanvas(render.CanvasConfig{})).Convert(context.Background(), in, rendered)
	require.NoError(t, err)

	res, err := NewPDFToWordConverter(NewTextExtractor()).Convert(context.Background(), rendered, filepath.Join(dir, "back.docx"))
	require.NoError(t, err)
	assert.Equal(t, len(lines), res.Paragraphs)

	doc, err := docx.ReadFile(res.OutputPath)
	require.NoError(t, err)
	var got []string
	for _, p := range doc.Paragraphs {
		got = append(got, p.Text)
	}
	assert.Equal(t, lines, got)
}

func TestPDFToWord_PositionedLines(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "minutes.pdf", testutil.PositionedPDF("Agenda\nBudget review\nNext steps"))

	res, err := NewPDFToWordConverter(NewTextExtractor()).Convert(context.Background(), in, filepath.Join(dir, "minutes.docx"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Paragraphs)
}

func TestWordToPDF_Errors(t *testing.T) {
	dir := t.TempDir()
	notZip := testutil.WriteFile(t, dir, "plain.docx", []byte("plain text"))
	good := testutil.WriteDOCX(t, dir, "good.docx", "hi")

	canvas := NewWordToPDFConverter(render.NewCanvas(render.CanvasConfig{}))
	office := NewWordToPDFConverter(render.NewOfficeWithExecutor(render.OfficeConfig{}, missingExecutor{}))

	tests := []struct {
		name     string
		conv     *WordToPDFConverter
		in       string
		wantKind error
	}{
		{"not a zip", canvas, notZip, docerr.ErrConversion},
		{"missing file", canvas, filepath.Join(dir, "gone.docx"), docerr.ErrIO},
		{"office not installed", office, good, docerr.ErrEnvironment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(dir, tt.name+".pdf")
			_, err := tt.conv.Convert(context.Background(), tt.in, out)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, docerr.KindOf(err))
			assert.Equal(t, docerr.StageWordToPDF, docerr.StageOf(err))
			assert.NoFileExists(t, out)
		})
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, ".docx2pdf-*"))
	assert.Empty(t, leftovers)
}

type missingExecutor struct{}

func (missingExecutor) LookPath(string) (string, error) {
	return "", errors.New("executable file not found in $PATH")
}

func (missingExecutor) Run(context.Context, string, ...string) ([]byte, error) {
	return nil, errors.New("not reachable")
}
