// Package app assembles the toolkit from configuration. Every entry point
// builds its services here so the CLI, the HTTP server and the cloud
// functions behave the same way.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Lllllllleong/pdftoolkit/internal/config"
	"github.com/Lllllllleong/pdftoolkit/internal/gcp"
	"github.com/Lllllllleong/pdftoolkit/internal/jobs"
	"github.com/Lllllllleong/pdftoolkit/internal/qa"
	"github.com/Lllllllleong/pdftoolkit/internal/render"
	"github.com/Lllllllleong/pdftoolkit/internal/services"
)

// Closer releases what Build opened.
type Closer func() error

// Renderer builds the configured Word to PDF renderer.
func Renderer(cfg config.RenderConfig) (render.Renderer, error) {
	return render.New(render.Config{
		Strategy: cfg.Strategy,
		Canvas: render.CanvasConfig{
			FontSize:   cfg.FontSize,
			LineHeight: cfg.LineHeight,
			Margin:     cfg.Margin,
			WrapWidth:  cfg.WrapWidth,
		},
		Office: render.OfficeConfig{Binary: cfg.OfficeBinary},
	})
}

// Model returns the configured QA model behind a lazy loader.
func Model(cfg config.QAConfig) *qa.Lazy {
	var lazy *qa.Lazy
	switch cfg.Model {
	case gcp.VertexModelName:
		lazy = qa.NewLazy(gcp.VertexModelName, func(ctx context.Context) (qa.Model, error) {
			// The client must outlive the first request's context.
			return gcp.NewVertexModel(context.WithoutCancel(ctx), cfg.VertexProject, cfg.VertexRegion, cfg.VertexModel)
		})
	default:
		lazy = qa.NewLazy(qa.LexicalName, func(context.Context) (qa.Model, error) {
			return qa.NewLexical(), nil
		})
	}
	return lazy
}

// Build creates the toolkit with its job ledger and model.
func Build(ctx context.Context, cfg *config.Config) (*services.Toolkit, Closer, error) {
	renderer, err := Renderer(cfg.Render)
	if err != nil {
		return nil, nil, err
	}

	recorder, err := jobs.Open(ctx, JobsConfig(cfg.Jobs))
	if err != nil {
		return nil, nil, fmt.Errorf("opening job ledger: %w", err)
	}

	model := Model(cfg.QA)
	toolkit, err := services.NewToolkit(services.ToolkitConfig{
		WorkDir: cfg.Workspace.BaseDir,
		Answerer: services.AnswererConfig{
			MaxContextChars: cfg.QA.MaxContextChars,
			Overflow:        cfg.QA.Overflow,
		},
	}, renderer, model, recorder)
	if err != nil {
		recorder.Close()
		return nil, nil, err
	}

	closer := func() error {
		return errors.Join(model.Close(), recorder.Close())
	}
	return toolkit, closer, nil
}

// JobsConfig maps the ledger settings.
func JobsConfig(cfg config.JobsConfig) jobs.Config {
	return jobs.Config{
		Backend:    cfg.Backend,
		SQLitePath: cfg.SQLitePath,
		ProjectID:  cfg.ProjectID,
		Collection: cfg.Collection,
		Database:   cfg.Database,
	}
}

// LoadFunctionConfig reads configuration for a Cloud Functions deployment.
// PDFTOOL_* variables take precedence; the plain PROJECT_ID and OUTPUT_BUCKET
// variables set by the deploy scripts fill in what they leave unset.
func LoadFunctionConfig() (*config.Config, error) {
	v := config.NewViper()
	v.SetDefault("jobs.project_id", gcp.GetEnv("PROJECT_ID", ""))
	v.SetDefault("qa.vertex_project", gcp.GetEnv("PROJECT_ID", ""))
	v.SetDefault("functions.output_bucket", gcp.GetEnv("OUTPUT_BUCKET", ""))
	return config.Load(v, "")
}
