package services

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/Lllllllleong/pdftoolkit/internal/docerr"
	"github.com/Lllllllleong/pdftoolkit/internal/docx"
	"github.com/Lllllllleong/pdftoolkit/internal/render"
)

// WordToPDFConverter renders .docx files to PDF through a configured renderer.
type WordToPDFConverter struct {
	renderer render.Renderer
}

// NewWordToPDFConverter creates a converter that draws with renderer.
func NewWordToPDFConverter(renderer render.Renderer) *WordToPDFConverter {
	return &WordToPDFConverter{renderer: renderer}
}

// Renderer reports the strategy in use.
func (c *WordToPDFConverter) Renderer() string { return c.renderer.Name() }

// Convert renders the document at docxPath into a PDF at outPath.
func (c *WordToPDFConverter) Convert(ctx context.Context, docxPath, outPath string) (*ConversionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := docx.ReadFile(docxPath)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return nil, docerr.New(docerr.StageWordToPDF, docerr.ErrIO, err)
		}
		return nil, docerr.New(docerr.StageWordToPDF, docerr.ErrConversion, err)
	}

	tmp, err := reserveSibling(outPath, ".docx2pdf-*.pdf")
	if err != nil {
		return nil, docerr.New(docerr.StageWordToPDF, docerr.ErrIO, err)
	}
	defer os.Remove(tmp)

	res, err := c.renderer.Render(ctx, render.Request{Source: docxPath, Document: doc, Output: tmp})
	if err != nil {
		if errors.Is(err, docerr.ErrEnvironment) {
			return nil, docerr.New(docerr.StageWordToPDF, docerr.ErrEnvironment, err)
		}
		return nil, docerr.New(docerr.StageWordToPDF, docerr.ErrConversion, err)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		return nil, docerr.New(docerr.StageWordToPDF, docerr.ErrIO, err)
	}

	slog.DebugContext(ctx, "Rendered document.", "renderer", c.renderer.Name(), "pages", res.Pages, "paragraphs", len(doc.Paragraphs))
	return &ConversionResult{
		OutputPath: outPath,
		PageCount:  res.Pages,
		Paragraphs: len(doc.Paragraphs),
	}, nil
}
