package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/pdftoolkit/internal/app"
	"github.com/Lllllllleong/pdftoolkit/internal/config"
	"github.com/Lllllllleong/pdftoolkit/internal/jobs"
	"github.com/Lllllllleong/pdftoolkit/internal/models"
	"github.com/Lllllllleong/pdftoolkit/internal/services"
)

var (
	extractorInstance *services.UploadExtractorFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("ExtractOnUpload", extractOnUpload)
}

// main is required by the Go Functions Framework.
func main() {}

func setup(ctx context.Context) (*services.UploadExtractorFunction, error) {
	cfg, err := app.LoadFunctionConfig()
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cfg.Log, os.Stdout)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	recorder, err := jobs.Open(ctx, app.JobsConfig(cfg.Jobs))
	if err != nil {
		return nil, fmt.Errorf("opening job ledger: %w", err)
	}
	return services.NewUploadExtractor(ctx, services.UploadExtractorConfig{
		OutputBucket: cfg.Functions.OutputBucket,
		WriteDocx:    cfg.Functions.WriteDocx,
		WorkDir:      cfg.Workspace.BaseDir,
	}, recorder)
}

// extractOnUpload is the Cloud Function entry point for object-finalize events.
func extractOnUpload(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		extractorInstance, initErr = setup(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var event models.UploadEvent
	if err := json.Unmarshal(e.Data(), &event); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Process logs its own failures with context.
	return extractorInstance.Process(ctx, event)
}
