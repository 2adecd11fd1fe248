package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Lllllllleong/pdftoolkit/internal/docx"
	"github.com/Lllllllleong/pdftoolkit/internal/pdfcfg"
)

// CanvasConfig controls page geometry for the canvas renderer. Sizes are in
// PDF points.
type CanvasConfig struct {
	Paper      string
	PageWidth  float64
	PageHeight float64
	Margin     float64
	FontName   string
	FontSize   int
	LineHeight float64
	// WrapWidth is the maximum number of characters per line. Zero derives it
	// from the usable width and the font size.
	WrapWidth int
}

// DefaultCanvasConfig is A4 portrait, Helvetica 11pt.
func DefaultCanvasConfig() CanvasConfig {
	return CanvasConfig{
		Paper:      "A4P",
		PageWidth:  595,
		PageHeight: 842,
		Margin:     56,
		FontName:   "Helvetica",
		FontSize:   11,
		LineHeight: 14,
	}
}

// Canvas lays paragraphs out line by line and paginates. Long paragraphs wrap
// and overflow continues on the next page. Text is drawn with a standard 14
// font, so runes outside WinAnsi come out as '?' (see drawable).
type Canvas struct {
	config CanvasConfig
}

// NewCanvas creates a canvas renderer. Zero fields fall back to the defaults.
func NewCanvas(config CanvasConfig) *Canvas {
	def := DefaultCanvasConfig()
	if config.Paper == "" {
		config.Paper = def.Paper
	}
	if config.PageWidth <= 0 {
		config.PageWidth = def.PageWidth
	}
	if config.PageHeight <= 0 {
		config.PageHeight = def.PageHeight
	}
	if config.Margin <= 0 {
		config.Margin = def.Margin
	}
	if config.FontName == "" {
		config.FontName = def.FontName
	}
	if config.FontSize <= 0 {
		config.FontSize = def.FontSize
	}
	if config.LineHeight <= 0 {
		config.LineHeight = float64(config.FontSize) * 1.3
	}
	if config.WrapWidth <= 0 {
		// Helvetica averages a little over half an em per character.
		usable := config.PageWidth - 2*config.Margin
		config.WrapWidth = int(usable / (float64(config.FontSize) * 0.55))
	}
	return &Canvas{config: config}
}

// Name implements Renderer.
func (c *Canvas) Name() string { return StrategyCanvas }

// Render implements Renderer.
func (c *Canvas) Render(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Document == nil {
		doc, err := docx.ReadFile(req.Source)
		if err != nil {
			return nil, err
		}
		req.Document = doc
	}

	pages := c.Layout(req.Document)
	spec, err := json.Marshal(c.pageSpec(pages))
	if err != nil {
		return nil, fmt.Errorf("failed to encode page layout: %w", err)
	}

	f, err := os.Create(req.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", req.Output, err)
	}
	if err := api.Create(nil, bytes.NewReader(spec), f, pdfcfg.Relaxed()); err != nil {
		f.Close()
		os.Remove(req.Output)
		return nil, fmt.Errorf("failed to draw pages: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(req.Output)
		return nil, fmt.Errorf("failed to finalize %s: %w", filepath.Base(req.Output), err)
	}
	return &Result{Pages: len(pages)}, nil
}

// Layout splits the document into pages of lines. A page always has at least
// one entry, possibly blank.
func (c *Canvas) Layout(doc *docx.Document) [][]string {
	perPage := c.linesPerPage()
	var (
		pages   [][]string
		current []string
	)
	flush := func() {
		pages = append(pages, current)
		current = nil
	}
	for _, p := range doc.Paragraphs {
		if p.PageBreak && len(current) > 0 {
			flush()
		}
		for _, line := range c.wrapParagraph(p.Text) {
			if len(current) == perPage {
				flush()
			}
			current = append(current, line)
		}
	}
	if len(current) > 0 || len(pages) == 0 {
		flush()
	}
	return pages
}

func (c *Canvas) linesPerPage() int {
	n := int((c.config.PageHeight - 2*c.config.Margin) / c.config.LineHeight)
	if n < 1 {
		n = 1
	}
	return n
}

// wrapParagraph breaks text into lines of at most WrapWidth characters,
// preferring word boundaries. An empty paragraph yields one blank line.
func (c *Canvas) wrapParagraph(text string) []string {
	text = strings.ReplaceAll(text, "\t", "    ")
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		lines = append(lines, wrapLine(drawable(raw), c.config.WrapWidth)...)
	}
	return lines
}

func wrapLine(line string, width int) []string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return []string{""}
	}
	var (
		lines []string
		cur   strings.Builder
		n     int
	)
	for _, w := range words {
		for utf8.RuneCountInString(w) > width {
			if n > 0 {
				lines = append(lines, cur.String())
				cur.Reset()
				n = 0
			}
			head, tail := splitRunes(w, width)
			lines = append(lines, head)
			w = tail
		}
		wl := utf8.RuneCountInString(w)
		if n > 0 && n+1+wl > width {
			lines = append(lines, cur.String())
			cur.Reset()
			n = 0
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(w)
		n += wl
	}
	if n > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

func splitRunes(s string, n int) (string, string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}

// winAnsiExtras are the non-Latin-1 runes the standard 14 fonts can draw.
var winAnsiExtras = map[rune]bool{
	'€': true, '‚': true, 'ƒ': true, '„': true, '…': true, '†': true, '‡': true,
	'ˆ': true, '‰': true, 'Š': true, '‹': true, 'Œ': true, 'Ž': true, '‘': true,
	'’': true, '“': true, '”': true, '•': true, '–': true, '—': true, '˜': true,
	'™': true, 'š': true, '›': true, 'œ': true, 'ž': true, 'Ÿ': true,
}

// drawable replaces runes outside the WinAnsi repertoire with '?'.
func drawable(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20:
			return ' '
		case r <= 0xFF, winAnsiExtras[r]:
			return r
		default:
			return '?'
		}
	}, s)
}

type pdfSpec struct {
	Paper string              `json:"paper"`
	Pages map[string]pageSpec `json:"pages"`
}

type pageSpec struct {
	Content contentSpec `json:"content"`
}

type contentSpec struct {
	Text []textSpec `json:"text,omitempty"`
}

type textSpec struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  fontSpec   `json:"font"`
	Align string     `json:"align"`
}

type fontSpec struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// pageSpec builds the pdfcpu content description. Coordinates use the default
// lower-left origin.
func (c *Canvas) pageSpec(pages [][]string) pdfSpec {
	spec := pdfSpec{Paper: c.config.Paper, Pages: make(map[string]pageSpec, len(pages))}
	top := c.config.PageHeight - c.config.Margin - float64(c.config.FontSize)
	for i, lines := range pages {
		var content contentSpec
		for j, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			content.Text = append(content.Text, textSpec{
				Value: line,
				Pos:   [2]float64{c.config.Margin, top - float64(j)*c.config.LineHeight},
				Font:  fontSpec{Name: c.config.FontName, Size: c.config.FontSize},
				Align: "left",
			})
		}
		spec.Pages[strconv.Itoa(i+1)] = pageSpec{Content: content}
	}
	return spec
}
