// Package testutil builds small, valid PDF and docx fixtures for tests.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Lllllllleong/pdftoolkit/internal/docx"
)

// PDF returns an uncompressed PDF with one page per entry in pages. Each page
// draws its text with Helvetica, one text line per "\n"-separated line,
// advancing between lines with T*.
func PDF(pages ...string) []byte {
	return buildPDF(contentStream, pages)
}

// PositionedPDF is like PDF, but every line sits in its own text object placed
// with an absolute Td, the way most producers lay out text. Cells of a line
// separated by "\t" are drawn at increasing x on the same baseline.
func PositionedPDF(pages ...string) []byte {
	return buildPDF(positionedStream, pages)
}

func buildPDF(stream func(string) string, pages []string) []byte {
	var (
		buf     bytes.Buffer
		offsets []int
	)
	// Object numbers: 1 catalog, 2 pages, 3 font, then (page, content) pairs.
	total := 3 + 2*len(pages)
	offsets = make([]int, total+1)

	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	writeObj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, text := range pages {
		pageNum, contentNum := 4+2*i, 5+2*i
		writeObj(pageNum, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			contentNum))
		content := stream(text)
		writeObj(contentNum, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", total+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= total; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", total+1, xref)
	return buf.Bytes()
}

func contentStream(text string) string {
	var b strings.Builder
	b.WriteString("BT /F1 12 Tf 72 720 Td 14 TL")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString(" T*")
		}
		fmt.Fprintf(&b, " (%s) Tj", escapePDFString(line))
	}
	b.WriteString(" ET")
	return b.String()
}

func positionedStream(text string) string {
	var b strings.Builder
	for i, line := range strings.Split(text, "\n") {
		y := 720 - 14*i
		for j, cell := range strings.Split(line, "\t") {
			if j > 0 || i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "BT /F1 12 Tf %d %d Td (%s) Tj ET", 72+200*j, y, escapePDFString(cell))
		}
	}
	return b.String()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// WritePDF writes PDF(pages...) to dir/name and returns the path.
func WritePDF(t testing.TB, dir, name string, pages ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, PDF(pages...), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}

// WriteDOCX writes a .docx with one paragraph per entry to dir/name.
func WriteDOCX(t testing.TB, dir, name string, paragraphs ...string) string {
	t.Helper()
	doc := &docx.Document{Title: strings.TrimSuffix(name, filepath.Ext(name))}
	for _, p := range paragraphs {
		doc.Paragraphs = append(doc.Paragraphs, docx.Paragraph{Text: p})
	}
	path := filepath.Join(dir, name)
	if err := docx.WriteFile(path, doc); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}

// WriteFile writes raw bytes to dir/name, for malformed-input cases.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}
