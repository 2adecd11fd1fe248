// Package render turns word-processor documents into PDFs. Two strategies
// implement the same Renderer capability and are picked by configuration:
//
//   - canvas draws the paragraph text onto fixed-size pages in pure Go. It is
//     always available and keeps every character of text, but drops styles,
//     tables and images.
//   - office hands the file to a local office suite running headless. Output
//     matches the source's styling, fonts and pagination, but the suite must
//     be installed on the host.
package render

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/pdftoolkit/internal/docx"
)

// Strategy names accepted by New.
const (
	StrategyCanvas = "canvas"
	StrategyOffice = "office"
)

// Request is one render job.
type Request struct {
	// Source is the path of the .docx file.
	Source string
	// Document is the parsed content of Source.
	Document *docx.Document
	// Output is where the PDF is written.
	Output string
}

// Result describes a rendered PDF.
type Result struct {
	Pages int
}

// Renderer renders a .docx into a PDF. Implementations return errors wrapping
// docerr.ErrEnvironment when a required external tool is missing.
type Renderer interface {
	Name() string
	Render(ctx context.Context, req Request) (*Result, error)
}

// Config selects and tunes a renderer.
type Config struct {
	Strategy string
	Canvas   CanvasConfig
	Office   OfficeConfig
}

// New builds the renderer named by cfg.Strategy.
func New(cfg Config) (Renderer, error) {
	switch cfg.Strategy {
	case "", StrategyCanvas:
		return NewCanvas(cfg.Canvas), nil
	case StrategyOffice:
		return NewOffice(cfg.Office), nil
	default:
		return nil, fmt.Errorf("unknown render strategy %q (want %s or %s)", cfg.Strategy, StrategyCanvas, StrategyOffice)
	}
}
