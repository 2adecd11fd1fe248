package docx

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestDOCX builds a package with only the parts the reader cares about.
func createTestDOCX(t *testing.T, documentXML, coreXML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	ct, err := w.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, _ = ct.Write([]byte(contentTypesXML))

	if documentXML != "" {
		doc, err := w.Create("word/document.xml")
		require.NoError(t, err)
		_, _ = doc.Write([]byte(documentXML))
	}
	if coreXML != "" {
		core, err := w.Create("docProps/core.xml")
		require.NoError(t, err)
		_, _ = core.Write([]byte(coreXML))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestRead_Paragraphs(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Hello </w:t></w:r><w:r><w:t>World</w:t></w:r></w:p>
<w:p><w:r><w:t>Name</w:t><w:tab/><w:t>Value</w:t></w:r></w:p>
<w:p><w:r><w:t>line one</w:t><w:br/><w:t>line two</w:t></w:r></w:p>
<w:p><w:r><w:br w:type="page"/></w:r><w:r><w:t>Second page</w:t></w:r></w:p>
</w:body>
</w:document>`
	coreXML := `<?xml version="1.0"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title> Quarterly Report </dc:title>
</cp:coreProperties>`

	doc, err := Read(createTestDOCX(t, docXML, coreXML))
	require.NoError(t, err)

	assert.Equal(t, "Quarterly Report", doc.Title)
	assert.Equal(t, []Paragraph{
		{Text: "Hello World"},
		{Text: "Name\tValue"},
		{Text: "line one\nline two"},
		{Text: "Second page", PageBreak: true},
	}, doc.Paragraphs)
}

func TestRead_TabStopsAreNotText(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="2160"/><w:tab w:val="right" w:pos="9360"/></w:tabs></w:pPr><w:r><w:t>Heading</w:t></w:r></w:p>
<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>Item</w:t><w:tab/><w:t>Price</w:t></w:r></w:p>
</w:body>
</w:document>`

	doc, err := Read(createTestDOCX(t, docXML, ""))
	require.NoError(t, err)
	assert.Equal(t, []Paragraph{
		{Text: "Heading"},
		{Text: "Item\tPrice"},
	}, doc.Paragraphs)
}

func TestRead_PageBreakMidParagraph(t *testing.T) {
	docXML := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>before</w:t><w:br w:type="page"/><w:t>after</w:t></w:r></w:p>
</w:body></w:document>`

	doc, err := Read(createTestDOCX(t, docXML, ""))
	require.NoError(t, err)
	assert.Equal(t, []Paragraph{
		{Text: "before"},
		{Text: "after", PageBreak: true},
	}, doc.Paragraphs)
}

func TestRead_TableCellsFlattened(t *testing.T) {
	docXML := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>A1</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>B1</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
</w:body></w:document>`

	doc, err := Read(createTestDOCX(t, docXML, ""))
	require.NoError(t, err)
	assert.Equal(t, "A1\nB1", doc.Text())
}

func TestRead_Errors(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		_, err := Read([]byte("%PDF-1.4 not a docx"))
		assert.ErrorIs(t, err, ErrNotDocx)
	})

	t.Run("no document part", func(t *testing.T) {
		_, err := Read(createTestDOCX(t, "", ""))
		assert.ErrorIs(t, err, ErrMissingBody)
	})

	t.Run("broken xml", func(t *testing.T) {
		_, err := Read(createTestDOCX(t, "<w:document><w:body><w:p>", ""))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(t.TempDir(), "absent.docx"))
		assert.Error(t, err)
	})
}

func TestWriteRead_RoundTrip(t *testing.T) {
	in := &Document{
		Title: "Notes & <Drafts>",
		Paragraphs: []Paragraph{
			{Text: "First paragraph with <markup> & ampersands"},
			{Text: "tab\tseparated"},
			{Text: "multi\nline"},
			{Text: ""},
			{Text: "On page two", PageBreak: true},
		},
	}

	path := filepath.Join(t.TempDir(), "out.docx")
	require.NoError(t, WriteFile(path, in))

	out, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestWrite_DropsInvalidXMLRunes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, &Document{Paragraphs: []Paragraph{{Text: "bad\x00\x07char"}}}))

	out, err := Read(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, out.Paragraphs, 1)
	assert.Equal(t, "badchar", out.Paragraphs[0].Text)
}
