package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/pdftoolkit/internal/docerr"
	"github.com/Lllllllleong/pdftoolkit/internal/gcp"
	"github.com/Lllllllleong/pdftoolkit/internal/jobs"
	"github.com/Lllllllleong/pdftoolkit/internal/models"
	"github.com/Lllllllleong/pdftoolkit/internal/workspace"
)

// UploadExtractorConfig holds configuration for the extract-on-upload function.
type UploadExtractorConfig struct {
	// OutputBucket receives <name>.txt for every processed PDF.
	OutputBucket string
	// WriteDocx also publishes a <name>.docx conversion.
	WriteDocx bool
	// WorkDir is where request arenas are created.
	WorkDir string
}

// ObjectFetcher downloads gs://bucket/object to a local path.
type ObjectFetcher func(ctx context.Context, bucket, object, destPath string) error

// UploadExtractorFunction extracts the text of PDFs dropped into a bucket.
type UploadExtractorFunction struct {
	fetch     ObjectFetcher
	output    gcp.ObjectWriter
	recorder  jobs.Recorder
	extractor *TextExtractor
	pdf2docx  *PDFToWordConverter
	retry     gcp.RetryPolicy
	config    UploadExtractorConfig
}

// NewUploadExtractor wires the function to Cloud Storage.
func NewUploadExtractor(ctx context.Context, config UploadExtractorConfig, recorder jobs.Recorder) (*UploadExtractorFunction, error) {
	if config.OutputBucket == "" {
		return nil, fmt.Errorf("output bucket must be set")
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}

	fetch := func(ctx context.Context, bucket, object, destPath string) error {
		return gcp.DownloadObject(ctx, storageClient, bucket, object, destPath)
	}
	f := newUploadExtractor(fetch, gcp.BucketWriter(storageClient.Bucket(config.OutputBucket)), recorder, config)
	slog.Info("Upload extractor initialized.", "outputBucket", config.OutputBucket, "writeDocx", config.WriteDocx)
	return f, nil
}

func newUploadExtractor(fetch ObjectFetcher, output gcp.ObjectWriter, recorder jobs.Recorder, config UploadExtractorConfig) *UploadExtractorFunction {
	if recorder == nil {
		recorder = jobs.Nop{}
	}
	extractor := NewTextExtractor()
	return &UploadExtractorFunction{
		fetch:     fetch,
		output:    output,
		recorder:  recorder,
		extractor: extractor,
		pdf2docx:  NewPDFToWordConverter(extractor),
		retry:     gcp.DefaultRetryPolicy,
		config:    config,
	}
}

// Process handles one object-finalize event. Non-PDF objects and PDFs whose
// content was already processed are skipped.
func (f *UploadExtractorFunction) Process(ctx context.Context, e models.UploadEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !strings.EqualFold(path.Ext(e.Name), ".pdf") {
		logCtx.Info("Ignoring non-PDF object.")
		return nil
	}
	logCtx.Info("Processing new GCS object.")

	arena, err := workspace.New(f.config.WorkDir, "upload")
	if err != nil {
		return docerr.New(docerr.StageUpload, docerr.ErrIO, err)
	}
	defer arena.Close()
	logCtx = logCtx.With("requestId", arena.ID())

	sourcePath := arena.Path(path.Base(e.Name))
	if err := f.fetch(ctx, e.Bucket, e.Name, sourcePath); err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return docerr.New(docerr.StageUpload, docerr.ErrIO, err)
	}

	fileHash, size, err := calculateFileHash(sourcePath)
	if err != nil {
		logCtx.Error("Failed to calculate file hash", "error", err)
		return docerr.New(docerr.StageUpload, docerr.ErrIO, fmt.Errorf("failed to calculate file hash: %w", err))
	}
	logCtx = logCtx.With("fileHash", fileHash)

	existing, err := f.recorder.FindByHash(ctx, models.OperationExtract, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if existing != nil {
		logCtx.Info("Duplicate file detected. Skipping.", "existingJobId", existing.ID)
		return nil
	}

	jobID, err := f.recorder.Start(ctx, &models.Job{
		Operation: models.OperationExtract,
		Inputs:    []models.JobInput{{Filename: e.Name, FileHash: fileHash, Size: size}},
	})
	if err != nil {
		logCtx.Error("Failed to create job record", "error", err)
		return err
	}
	logCtx = logCtx.With("jobId", jobID)

	extraction, err := f.extractor.Extract(ctx, sourcePath)
	if err != nil {
		return f.handleError(ctx, logCtx, jobID, "failed to extract text", err)
	}

	base := strings.TrimSuffix(e.Name, path.Ext(e.Name))
	textObject := base + ".txt"
	if err := gcp.SaveAtomically(ctx, f.output, textObject, extraction.Text); err != nil {
		return f.handleError(ctx, logCtx, jobID, "failed to save extracted text", docerr.New(docerr.StageUpload, docerr.ErrIO, err))
	}
	logCtx.Info("Saved extracted text.", "outputObject", textObject, "pageCount", extraction.PageCount)

	if f.config.WriteDocx {
		docxPath := arena.Output(".docx")
		if _, err := f.pdf2docx.Convert(ctx, sourcePath, docxPath); err != nil {
			return f.handleError(ctx, logCtx, jobID, "failed to convert to docx", err)
		}
		if err := gcp.UploadWithRetry(ctx, f.output, docxPath, base+".docx", f.retry); err != nil {
			return f.handleError(ctx, logCtx, jobID, "failed to upload docx", docerr.New(docerr.StageUpload, docerr.ErrIO, err))
		}
	}

	if err := f.recorder.Complete(ctx, jobID, jobs.Outcome{OutputName: textObject, PageCount: extraction.PageCount}); err != nil {
		logCtx.Error("Failed to update job status to DONE", "error", err)
	}
	logCtx.Info("Extraction complete.")
	return nil
}

func (f *UploadExtractorFunction) handleError(ctx context.Context, logCtx *slog.Logger, jobID, message string, originalErr error) error {
	logCtx.Error(message, "error", originalErr)
	if err := f.recorder.Fail(ctx, jobID, docerr.KindName(docerr.KindOf(originalErr)), fmt.Sprintf("%s: %v", message, originalErr)); err != nil {
		logCtx.Error("CRITICAL: Failed to update job status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

// calculateFileHash returns the hex SHA-256 and size of a file.
func calculateFileHash(filePath string) (string, int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()
	hash := sha256.New()
	n, err := io.Copy(hash, file)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hash.Sum(nil)), n, nil
}
