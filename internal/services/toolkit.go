package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Lllllllleong/pdftoolkit/internal/docerr"
	"github.com/Lllllllleong/pdftoolkit/internal/jobs"
	"github.com/Lllllllleong/pdftoolkit/internal/models"
	"github.com/Lllllllleong/pdftoolkit/internal/qa"
	"github.com/Lllllllleong/pdftoolkit/internal/render"
	"github.com/Lllllllleong/pdftoolkit/internal/workspace"
)

// ToolkitConfig holds configuration for the toolkit.
type ToolkitConfig struct {
	// WorkDir is where request arenas are created. Empty means os.TempDir().
	WorkDir  string
	Merger   MergerConfig
	Answerer AnswererConfig
}

// Toolkit runs every document operation and records each one in the job
// ledger. Path methods serve local callers. Stream methods copy uploads into a
// fresh arena first and remove it when the call returns.
type Toolkit struct {
	merger    *Merger
	pdf2docx  *PDFToWordConverter
	docx2pdf  *WordToPDFConverter
	extractor *TextExtractor
	answerer  *QuestionAnswerer
	recorder  jobs.Recorder
	config    ToolkitConfig
}

// Input is one uploaded document.
type Input struct {
	Name string
	Data io.Reader
}

// NewToolkit assembles the components. model is shared by all callers.
func NewToolkit(config ToolkitConfig, renderer render.Renderer, model qa.Model, recorder jobs.Recorder) (*Toolkit, error) {
	answerer, err := NewQuestionAnswerer(model, config.Answerer)
	if err != nil {
		return nil, err
	}
	if recorder == nil {
		recorder = jobs.Nop{}
	}
	extractor := NewTextExtractor()
	return &Toolkit{
		merger:    NewMerger(config.Merger),
		pdf2docx:  NewPDFToWordConverter(extractor),
		docx2pdf:  NewWordToPDFConverter(renderer),
		extractor: extractor,
		answerer:  answerer,
		recorder:  recorder,
		config:    config,
	}, nil
}

// Renderer reports the Word to PDF strategy.
func (t *Toolkit) Renderer() string { return t.docx2pdf.Renderer() }

// Model reports the question-answering model.
func (t *Toolkit) Model() string { return t.answerer.Model() }

type requestIDKey struct{}

// WithRequestID tags ctx with the caller's request ID. Jobs started under ctx
// use it as their ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID set by WithRequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// job tracks one recorded operation.
type job struct {
	id     string
	logCtx *slog.Logger
}

// begin records the start of an operation. Ledger failures are logged and
// never fail the operation.
func (t *Toolkit) begin(ctx context.Context, operation string, inputs []string) *job {
	record := &models.Job{ID: RequestIDFrom(ctx), Operation: operation}
	for _, p := range inputs {
		in := models.JobInput{Filename: filepath.Base(p)}
		if hash, size, err := calculateFileHash(p); err == nil {
			in.FileHash, in.Size = hash, size
		}
		record.Inputs = append(record.Inputs, in)
	}

	id, err := t.recorder.Start(ctx, record)
	logCtx := slog.With("operation", operation, "requestId", record.ID)
	if err != nil {
		logCtx.Warn("Failed to record job start.", "error", err)
		id = ""
	}
	logCtx.Info("Operation started.", "inputs", len(inputs))
	return &job{id: id, logCtx: logCtx}
}

func (t *Toolkit) finish(ctx context.Context, j *job, out jobs.Outcome) {
	j.logCtx.Info("Operation complete.", "output", out.OutputName, "pageCount", out.PageCount)
	if j.id == "" {
		return
	}
	if err := t.recorder.Complete(ctx, j.id, out); err != nil {
		j.logCtx.Warn("Failed to record job completion.", "error", err)
	}
}

// handleError logs a failed operation, marks its job FAILED and returns err.
func (t *Toolkit) handleError(ctx context.Context, j *job, err error) error {
	kind := docerr.KindName(docerr.KindOf(err))
	j.logCtx.Error("Operation failed.", "kind", kind, "stage", docerr.StageOf(err), "error", err)
	if j.id != "" {
		if ferr := t.recorder.Fail(ctx, j.id, kind, err.Error()); ferr != nil {
			j.logCtx.Error("CRITICAL: Failed to update job status to FAILED after a processing error.", "updateError", ferr)
		}
	}
	return err
}

// MergeFiles merges the PDFs at inputs into outPath.
func (t *Toolkit) MergeFiles(ctx context.Context, inputs []string, outPath string) (*MergeResult, error) {
	j := t.begin(ctx, models.OperationMerge, inputs)
	res, err := t.merger.Merge(ctx, inputs, outPath)
	if err != nil {
		return nil, t.handleError(ctx, j, err)
	}
	t.finish(ctx, j, jobs.Outcome{OutputName: filepath.Base(outPath), PageCount: res.PageCount})
	return res, nil
}

// PDFToWordFile converts the PDF at in to a .docx at out.
func (t *Toolkit) PDFToWordFile(ctx context.Context, in, out string) (*ConversionResult, error) {
	j := t.begin(ctx, models.OperationPDFToWord, []string{in})
	res, err := t.pdf2docx.Convert(ctx, in, out)
	if err != nil {
		return nil, t.handleError(ctx, j, err)
	}
	t.finish(ctx, j, jobs.Outcome{OutputName: filepath.Base(out), PageCount: res.PageCount})
	return res, nil
}

// WordToPDFFile renders the .docx at in to a PDF at out.
func (t *Toolkit) WordToPDFFile(ctx context.Context, in, out string) (*ConversionResult, error) {
	j := t.begin(ctx, models.OperationWordToPDF, []string{in})
	res, err := t.docx2pdf.Convert(ctx, in, out)
	if err != nil {
		return nil, t.handleError(ctx, j, err)
	}
	t.finish(ctx, j, jobs.Outcome{OutputName: filepath.Base(out), PageCount: res.PageCount})
	return res, nil
}

// ExtractFile returns the text of the PDF at path.
func (t *Toolkit) ExtractFile(ctx context.Context, path string) (*Extraction, error) {
	j := t.begin(ctx, models.OperationExtract, []string{path})
	res, err := t.extractor.Extract(ctx, path)
	if err != nil {
		return nil, t.handleError(ctx, j, err)
	}
	t.finish(ctx, j, jobs.Outcome{PageCount: res.PageCount})
	return res, nil
}

// AskFile answers question from the text of the PDF at path.
func (t *Toolkit) AskFile(ctx context.Context, path, question string) (*qa.Answer, error) {
	j := t.begin(ctx, models.OperationAsk, []string{path})
	ext, err := t.extractor.Extract(ctx, path)
	if err != nil {
		return nil, t.handleError(ctx, j, err)
	}
	ans, err := t.answerer.Answer(ctx, ext.Text, question)
	if err != nil {
		return nil, t.handleError(ctx, j, err)
	}
	t.finish(ctx, j, jobs.Outcome{PageCount: ext.PageCount})
	return ans, nil
}

// Answer answers question over raw text.
func (t *Toolkit) Answer(ctx context.Context, passage, question string) (*qa.Answer, error) {
	j := t.begin(ctx, models.OperationAnswer, nil)
	ans, err := t.answerer.Answer(ctx, passage, question)
	if err != nil {
		return nil, t.handleError(ctx, j, err)
	}
	t.finish(ctx, j, jobs.Outcome{})
	return ans, nil
}

// withArena runs fn inside a fresh request arena.
func (t *Toolkit) withArena(prefix string, fn func(a *workspace.Arena) error) error {
	arena, err := workspace.New(t.config.WorkDir, prefix)
	if err != nil {
		return docerr.New(docerr.StageUpload, docerr.ErrIO, err)
	}
	defer func() {
		if err := arena.Close(); err != nil {
			slog.Warn("Failed to remove request arena.", "dir", arena.Dir(), "error", err)
		}
	}()
	return fn(arena)
}

func saveAll(a *workspace.Arena, inputs []Input) ([]string, error) {
	paths := make([]string, len(inputs))
	for i, in := range inputs {
		p, err := a.Save(in.Name, in.Data)
		if err != nil {
			return nil, docerr.New(docerr.StageUpload, docerr.ErrIO, fmt.Errorf("saving %s: %w", in.Name, err))
		}
		paths[i] = p
	}
	return paths, nil
}

func copyOut(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// Merge merges uploaded PDFs in order and writes the result to w. The
// returned OutputPath is gone once Merge returns.
func (t *Toolkit) Merge(ctx context.Context, inputs []Input, w io.Writer) (*MergeResult, error) {
	var res *MergeResult
	err := t.withArena("merge", func(a *workspace.Arena) error {
		paths, err := saveAll(a, inputs)
		if err != nil {
			return err
		}
		res, err = t.MergeFiles(ctx, paths, a.Output(".pdf"))
		if err != nil {
			return err
		}
		return copyOutput(docerr.StageMerge, res.OutputPath, w)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// PDFToWord converts an uploaded PDF and writes the .docx to w.
func (t *Toolkit) PDFToWord(ctx context.Context, in Input, w io.Writer) (*ConversionResult, error) {
	var res *ConversionResult
	err := t.withArena("pdf2docx", func(a *workspace.Arena) error {
		paths, err := saveAll(a, []Input{in})
		if err != nil {
			return err
		}
		res, err = t.PDFToWordFile(ctx, paths[0], a.Output(".docx"))
		if err != nil {
			return err
		}
		return copyOutput(docerr.StagePDFToWord, res.OutputPath, w)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// WordToPDF renders an uploaded .docx and writes the PDF to w.
func (t *Toolkit) WordToPDF(ctx context.Context, in Input, w io.Writer) (*ConversionResult, error) {
	var res *ConversionResult
	err := t.withArena("docx2pdf", func(a *workspace.Arena) error {
		paths, err := saveAll(a, []Input{in})
		if err != nil {
			return err
		}
		res, err = t.WordToPDFFile(ctx, paths[0], a.Output(".pdf"))
		if err != nil {
			return err
		}
		return copyOutput(docerr.StageWordToPDF, res.OutputPath, w)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Extract returns the text of an uploaded PDF.
func (t *Toolkit) Extract(ctx context.Context, in Input) (*Extraction, error) {
	var res *Extraction
	err := t.withArena("extract", func(a *workspace.Arena) error {
		paths, err := saveAll(a, []Input{in})
		if err != nil {
			return err
		}
		res, err = t.ExtractFile(ctx, paths[0])
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Ask answers question from the text of an uploaded PDF.
func (t *Toolkit) Ask(ctx context.Context, in Input, question string) (*qa.Answer, error) {
	var ans *qa.Answer
	err := t.withArena("ask", func(a *workspace.Arena) error {
		paths, err := saveAll(a, []Input{in})
		if err != nil {
			return err
		}
		ans, err = t.AskFile(ctx, paths[0], question)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ans, nil
}

func copyOutput(stage, path string, w io.Writer) error {
	if err := copyOut(path, w); err != nil {
		return docerr.New(stage, docerr.ErrIO, fmt.Errorf("reading output: %w", err))
	}
	return nil
}
