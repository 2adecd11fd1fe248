package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pdftoolkit/internal/docerr"
	"github.com/Lllllllleong/pdftoolkit/internal/pdfcfg"
)

// MergerConfig holds configuration for the merger.
type MergerConfig struct {
	// ValidationWorkers bounds how many inputs are validated at once.
	ValidationWorkers int
}

// Merger concatenates PDFs.
type Merger struct {
	config MergerConfig
}

// MergeResult describes a finished merge.
type MergeResult struct {
	OutputPath      string
	PageCount       int
	InputPageCounts []int
}

// NewMerger creates a Merger.
func NewMerger(config MergerConfig) *Merger {
	if config.ValidationWorkers <= 0 {
		config.ValidationWorkers = 10
	}
	return &Merger{config: config}
}

// Merge writes every page of inputs, in order, to outPath. Either the whole
// merge succeeds or outPath is left untouched.
func (m *Merger) Merge(ctx context.Context, inputs []string, outPath string) (*MergeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, docerr.Errorf(docerr.StageMerge, docerr.ErrInvalidDocument, "no input documents")
	}

	counts, err := m.validateAll(ctx, inputs)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, c := range counts {
		total += c
	}

	tmp, err := reserveSibling(outPath, ".merge-*.pdf")
	if err != nil {
		return nil, docerr.New(docerr.StageMerge, docerr.ErrIO, err)
	}
	defer os.Remove(tmp)

	if len(inputs) == 1 {
		err = copyFile(inputs[0], tmp)
	} else {
		err = api.MergeCreateFile(inputs, tmp, false, pdfcfg.Relaxed())
	}
	if err != nil {
		kind := docerr.ErrInvalidDocument
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			kind = docerr.ErrIO
		}
		return nil, docerr.New(docerr.StageMerge, kind, err)
	}

	got, err := api.PageCountFile(tmp)
	if err != nil {
		return nil, docerr.New(docerr.StageMerge, docerr.ErrIO, fmt.Errorf("failed to read merged output: %w", err))
	}
	if got != total {
		return nil, docerr.Errorf(docerr.StageMerge, docerr.ErrIO, "merged output has %d pages, expected %d", got, total)
	}

	if err := os.Rename(tmp, outPath); err != nil {
		return nil, docerr.New(docerr.StageMerge, docerr.ErrIO, err)
	}
	slog.DebugContext(ctx, "Merged PDFs.", "inputs", len(inputs), "pageCount", total, "output", outPath)

	return &MergeResult{
		OutputPath:      outPath,
		PageCount:       total,
		InputPageCounts: counts,
	}, nil
}

// validateAll checks every input concurrently and returns per-input page counts.
func (m *Merger) validateAll(ctx context.Context, inputs []string) ([]int, error) {
	counts := make([]int, len(inputs))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(m.config.ValidationWorkers)

	for i, path := range inputs {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := validatePDF(path)
			if err != nil {
				return docerr.New(docerr.StageMerge, docerr.KindOf(err), fmt.Errorf("input %d (%s): %w", i+1, filepath.Base(path), err))
			}
			counts[i] = n
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// validatePDF returns the page count of a well-formed PDF. Errors carry an
// InvalidDocument or IO classification.
func validatePDF(path string) (int, error) {
	if err := checkPDFHeader(path); err != nil {
		if errors.Is(err, errNotPDF) {
			return 0, fmt.Errorf("%w: %w", docerr.ErrInvalidDocument, err)
		}
		return 0, fmt.Errorf("%w: %w", docerr.ErrIO, err)
	}
	if err := api.ValidateFile(path, pdfcfg.Relaxed()); err != nil {
		return 0, fmt.Errorf("%w: %w", docerr.ErrInvalidDocument, err)
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", docerr.ErrInvalidDocument, err)
	}
	return n, nil
}

// reserveSibling picks an unused temp name next to path so the final rename
// stays on one filesystem.
func reserveSibling(path, pattern string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), pattern)
	if err != nil {
		return "", fmt.Errorf("failed to reserve temp output: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to reserve temp output: %w", err)
	}
	return name, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
