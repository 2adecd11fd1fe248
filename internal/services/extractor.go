package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/Lllllllleong/pdftoolkit/internal/docerr"
)

// pdfHeaderWindow is how far into the file a "%PDF-" header may start.
const pdfHeaderWindow = 1024

var errNotPDF = errors.New("missing %PDF- header")

// Extraction is the text of one PDF.
type Extraction struct {
	// Text is every page's text concatenated in ascending page order.
	Text      string
	Pages     []string
	PageCount int
}

// TextExtractor pulls the text layer out of PDFs page by page.
type TextExtractor struct{}

// NewTextExtractor creates a TextExtractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract returns the concatenated text of every page of the PDF at path.
// A page that cannot be read fails the whole document.
func (e *TextExtractor) Extract(ctx context.Context, path string) (*Extraction, error) {
	pages, err := e.ExtractPages(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Extraction{
		Text:      joinPages(pages),
		Pages:     pages,
		PageCount: len(pages),
	}, nil
}

// ExtractPages returns the text of each page, index 0 being page 1.
func (e *TextExtractor) ExtractPages(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkPDFHeader(path); err != nil {
		if errors.Is(err, errNotPDF) {
			return nil, docerr.New(docerr.StageExtract, docerr.ErrInvalidDocument, err)
		}
		return nil, docerr.New(docerr.StageExtract, docerr.ErrIO, err)
	}

	f, reader, err := openPDF(path)
	if err != nil {
		return nil, docerr.New(docerr.StageExtract, docerr.ErrInvalidDocument, err)
	}
	defer f.Close()

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, docerr.Errorf(docerr.StageExtract, docerr.ErrInvalidDocument, "document has no pages")
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		text, err := pageText(reader, i)
		if err != nil {
			return nil, docerr.New(docerr.StageExtract, docerr.ErrExtraction, fmt.Errorf("page %d: %w", i, err))
		}
		pages = append(pages, text)
	}
	slog.DebugContext(ctx, "Extracted PDF text.", "path", path, "pageCount", numPages)
	return pages, nil
}

// openPDF wraps pdf.Open, which panics on some malformed cross-reference tables.
func openPDF(path string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if f != nil {
				f.Close()
			}
			f, r, err = nil, nil, fmt.Errorf("malformed PDF structure: %v", rec)
		}
	}()
	f, r, err = pdf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open pdf: %w", err)
	}
	return f, r, nil
}

func pageText(reader *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("malformed page content: %v", rec)
		}
	}()
	p := reader.Page(num)
	if p.V.IsNull() {
		return "", fmt.Errorf("page object missing")
	}
	text = layoutText(p.Content().Text)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	return text, nil
}

// layoutText rebuilds text lines from positioned glyphs, kept in content
// stream order. A baseline move of more than half the font size starts a new
// line. A horizontal jump on the same baseline becomes a space.
func layoutText(glyphs []pdf.Text) string {
	var (
		b    strings.Builder
		prev *pdf.Text
	)
	for i := range glyphs {
		g := &glyphs[i]
		if g.S == "" || g.S == "\n" || g.S == "\r" {
			continue
		}
		if prev != nil {
			size := math.Max(math.Abs(prev.FontSize), 1)
			switch {
			case math.Abs(g.Y-prev.Y) > size/2:
				b.WriteByte('\n')
			case g.X-(prev.X+prev.W) > size/4 && !isBlank(prev.S) && !isBlank(g.S):
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
		prev = g
	}
	return b.String()
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// joinPages concatenates page texts without boundary markers. A newline is
// inserted only where two pages would otherwise run their words together.
func joinPages(pages []string) string {
	var b strings.Builder
	for _, page := range pages {
		if b.Len() > 0 && page != "" {
			last, _ := utf8.DecodeLastRuneInString(b.String())
			first, _ := utf8.DecodeRuneInString(page)
			if !unicode.IsSpace(last) && !unicode.IsSpace(first) {
				b.WriteByte('\n')
			}
		}
		b.WriteString(page)
	}
	return b.String()
}

func checkPDFHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, pdfHeaderWindow)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !bytes.Contains(head[:n], []byte("%PDF-")) {
		return errNotPDF
	}
	return nil
}
