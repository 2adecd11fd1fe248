package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Lllllllleong/pdftoolkit/internal/docerr"
	"github.com/Lllllllleong/pdftoolkit/internal/pdfcfg"
)

// OfficeConfig configures the headless office suite.
type OfficeConfig struct {
	// Binary is the executable name or path. Defaults to "soffice".
	Binary string
}

// Executor runs external commands. It exists so tests can stand in for the
// office suite.
type Executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execExecutor struct{}

func (execExecutor) LookPath(file string) (string, error) { return exec.LookPath(file) }

func (execExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Office converts documents by shelling out to LibreOffice.
type Office struct {
	binary string
	exec   Executor
}

// NewOffice creates an office renderer that runs real processes.
func NewOffice(config OfficeConfig) *Office {
	return NewOfficeWithExecutor(config, execExecutor{})
}

// NewOfficeWithExecutor creates an office renderer on top of exec.
func NewOfficeWithExecutor(config OfficeConfig, exec Executor) *Office {
	if config.Binary == "" {
		config.Binary = "soffice"
	}
	return &Office{binary: config.Binary, exec: exec}
}

// Name implements Renderer.
func (o *Office) Name() string { return StrategyOffice }

// Render implements Renderer.
func (o *Office) Render(ctx context.Context, req Request) (*Result, error) {
	bin, err := o.exec.LookPath(o.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: office suite %q is not installed: %w", docerr.ErrEnvironment, o.binary, err)
	}

	// Every run gets its own output directory and profile so that parallel
	// conversions never share state.
	workDir, err := os.MkdirTemp(filepath.Dir(req.Output), ".office-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create office work dir: %w", err)
	}
	defer os.RemoveAll(workDir)
	if workDir, err = filepath.Abs(workDir); err != nil {
		return nil, fmt.Errorf("failed to resolve office work dir: %w", err)
	}

	args := []string{
		"-env:UserInstallation=" + profileURL(workDir),
		"--headless",
		"--norestore",
		"--convert-to", "pdf",
		"--outdir", workDir,
		req.Source,
	}
	out, err := o.exec.Run(ctx, bin, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("office conversion failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	stem := strings.TrimSuffix(filepath.Base(req.Source), filepath.Ext(req.Source))
	produced := filepath.Join(workDir, stem+".pdf")
	if _, err := os.Stat(produced); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("office suite produced no output: %s", strings.TrimSpace(string(out)))
		}
		return nil, err
	}
	if err := os.Rename(produced, req.Output); err != nil {
		return nil, fmt.Errorf("failed to move rendered PDF: %w", err)
	}

	pages, err := countPages(req.Output)
	if err != nil {
		slog.WarnContext(ctx, "Could not count rendered pages.", "output", req.Output, "error", err)
		pages = 0
	}
	return &Result{Pages: pages}, nil
}

// profileURL turns an absolute directory into the file URL the suite expects
// for its user profile.
func profileURL(dir string) string {
	p := filepath.ToSlash(filepath.Join(dir, "profile"))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

func countPages(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return api.PageCount(f, pdfcfg.Relaxed())
}
