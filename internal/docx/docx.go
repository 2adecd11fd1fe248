// Package docx reads and writes the paragraph content of WordprocessingML
// (.docx) packages. Only text, line breaks, tabs and page breaks survive;
// styling, tables and images are flattened or dropped.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// MIMEType is the content type of a .docx package.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var (
	// ErrNotDocx is returned when the input is not a zip package.
	ErrNotDocx = errors.New("not a docx package")

	// ErrMissingBody is returned when the package has no word/document.xml.
	ErrMissingBody = errors.New("docx package has no word/document.xml")
)

// Paragraph is one body paragraph.
type Paragraph struct {
	Text string
	// PageBreak is set when the paragraph starts on a new page.
	PageBreak bool
}

// Document is the flattened content of a .docx package.
type Document struct {
	Title      string
	Paragraphs []Paragraph
}

// Text joins all paragraph texts with newlines.
func (d *Document) Text() string {
	parts := make([]string, len(d.Paragraphs))
	for i, p := range d.Paragraphs {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n")
}

// ReadFile opens the package at path and returns its paragraphs.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Read(data)
}

// Read parses a .docx package held in memory.
func Read(data []byte) (*Document, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}

	body, err := readPart(reader, "word/document.xml")
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, ErrMissingBody
	}

	paragraphs, err := parseBody(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse word/document.xml: %w", err)
	}

	doc := &Document{Paragraphs: paragraphs}
	if core, err := readPart(reader, "docProps/core.xml"); err == nil && core != nil {
		var props coreXML
		if xml.Unmarshal(core, &props) == nil {
			doc.Title = strings.TrimSpace(props.Title)
		}
	}
	return doc, nil
}

func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		return content, nil
	}
	return nil, nil
}

type coreXML struct {
	Title string `xml:"title"`
}

// parseBody walks document.xml in token order so that runs, tabs and breaks
// keep their original sequence inside each paragraph. Tabs and breaks only
// count inside a run; w:tab in w:pPr/w:tabs is a tab stop definition.
func parseBody(content []byte) ([]Paragraph, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))

	var (
		paragraphs []Paragraph
		current    *strings.Builder
		inText     bool
		pageBreak  bool
		depth      int
		runs       int
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				depth++
				if depth == 1 {
					current = &strings.Builder{}
				}
			case "r":
				runs++
			case "t":
				inText = current != nil
			case "tab":
				if current != nil && runs > 0 {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if current == nil || runs == 0 {
					continue
				}
				if attr(el, "type") == "page" {
					if current.Len() == 0 {
						pageBreak = true
					} else {
						paragraphs = append(paragraphs, Paragraph{Text: current.String(), PageBreak: pageBreak})
						current.Reset()
						pageBreak = true
					}
					continue
				}
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "r":
				if runs > 0 {
					runs--
				}
			case "t":
				inText = false
			case "p":
				depth--
				if depth == 0 && current != nil {
					paragraphs = append(paragraphs, Paragraph{Text: current.String(), PageBreak: pageBreak})
					current = nil
					pageBreak = false
				}
			}
		case xml.CharData:
			if inText && current != nil {
				current.Write(el)
			}
		}
	}
	return paragraphs, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// WriteFile writes doc as a .docx package at path.
func WriteFile(path string, doc *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write serialises doc as a minimal .docx package.
func Write(w io.Writer, doc *Document) error {
	zw := zip.NewWriter(w)
	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"docProps/core.xml", coreProps(doc.Title)},
		{"word/document.xml", documentXML(doc.Paragraphs)},
	}
	for _, part := range parts {
		pw, err := zw.Create(part.name)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", part.name, err)
		}
		if _, err := io.WriteString(pw, part.body); err != nil {
			return fmt.Errorf("failed to write %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize docx package: %w", err)
	}
	return nil
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
</Relationships>`

func coreProps(title string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">`)
	b.WriteString("<dc:title>")
	b.WriteString(escape(title))
	b.WriteString("</dc:title></cp:coreProperties>")
	return b.String()
}

func documentXML(paragraphs []Paragraph) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		b.WriteString("<w:p>")
		if p.PageBreak {
			b.WriteString(`<w:r><w:br w:type="page"/></w:r>`)
		}
		if p.Text != "" {
			b.WriteString("<w:r>")
			writeRunText(&b, p.Text)
			b.WriteString("</w:r>")
		}
		b.WriteString("</w:p>")
	}
	b.WriteString("</w:body></w:document>")
	return b.String()
}

func writeRunText(b *strings.Builder, text string) {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString("<w:br/>")
		}
		for j, seg := range strings.Split(line, "\t") {
			if j > 0 {
				b.WriteString("<w:tab/>")
			}
			if seg == "" {
				continue
			}
			b.WriteString(`<w:t xml:space="preserve">`)
			b.WriteString(escape(seg))
			b.WriteString("</w:t>")
		}
	}
}

// escape drops runes XML 1.0 cannot carry and escapes the rest.
func escape(s string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20, r == 0xFFFE, r == 0xFFFF, r == utf8.RuneError:
			return -1
		}
		return r
	}, s)
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(clean))
	return b.String()
}
