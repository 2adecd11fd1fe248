package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/pdftoolkit/internal/docerr"
	"github.com/Lllllllleong/pdftoolkit/internal/docx"
)

// ConversionResult describes a finished format conversion.
type ConversionResult struct {
	OutputPath string
	// PageCount is the number of source pages for PDF input, or rendered
	// pages for PDF output when the renderer reports it.
	PageCount int
	// Paragraphs is the number of word-processor paragraphs read or written.
	Paragraphs int
}

// PDFToWordConverter turns the text layer of a PDF into a .docx document.
type PDFToWordConverter struct {
	extractor *TextExtractor
}

// NewPDFToWordConverter creates a converter that reads pages through extractor.
func NewPDFToWordConverter(extractor *TextExtractor) *PDFToWordConverter {
	return &PDFToWordConverter{extractor: extractor}
}

// Convert writes a .docx approximation of the PDF at pdfPath to outPath. Each
// non-blank text line becomes a paragraph and every source page after the
// first starts with a page break.
func (c *PDFToWordConverter) Convert(ctx context.Context, pdfPath, outPath string) (*ConversionResult, error) {
	pages, err := c.extractor.ExtractPages(ctx, pdfPath)
	if err != nil {
		return nil, docerr.New(docerr.StagePDFToWord, docerr.ErrConversion, err)
	}

	doc := &docx.Document{
		Title:      strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath)),
		Paragraphs: paragraphsFromPages(pages),
	}

	tmp, err := reserveSibling(outPath, ".pdf2docx-*.docx")
	if err != nil {
		return nil, docerr.New(docerr.StagePDFToWord, docerr.ErrIO, err)
	}
	defer os.Remove(tmp)

	if err := docx.WriteFile(tmp, doc); err != nil {
		return nil, docerr.New(docerr.StagePDFToWord, docerr.ErrIO, err)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		return nil, docerr.New(docerr.StagePDFToWord, docerr.ErrIO, err)
	}

	return &ConversionResult{
		OutputPath: outPath,
		PageCount:  len(pages),
		Paragraphs: len(doc.Paragraphs),
	}, nil
}

func paragraphsFromPages(pages []string) []docx.Paragraph {
	var paragraphs []docx.Paragraph
	for i, page := range pages {
		breakPending := i > 0
		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimRight(line, " \t\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			paragraphs = append(paragraphs, docx.Paragraph{Text: line, PageBreak: breakPending})
			breakPending = false
		}
		if breakPending {
			// Keep blank source pages as blank pages.
			paragraphs = append(paragraphs, docx.Paragraph{PageBreak: true})
		}
	}
	return paragraphs
}
