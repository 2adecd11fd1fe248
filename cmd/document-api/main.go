package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/gin-gonic/gin"

	"github.com/Lllllllleong/pdftoolkit/internal/api"
	"github.com/Lllllllleong/pdftoolkit/internal/app"
	"github.com/Lllllllleong/pdftoolkit/internal/config"
)

var (
	router  *gin.Engine
	once    sync.Once
	initErr error
)

func init() {
	gin.SetMode(gin.ReleaseMode)
	functions.HTTP("HandleDocuments", handleDocuments)
}

// main is required by the Go Functions Framework.
func main() {}

func setup() (*gin.Engine, error) {
	cfg, err := app.LoadFunctionConfig()
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cfg.Log, os.Stdout)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	// The toolkit lives for the whole instance; its closer is never called.
	tk, _, err := app.Build(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	handler := api.NewHandler(tk, api.Config{
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		MaxFiles:       cfg.Server.MaxFiles,
	})
	slog.Info("Document API initialized.", "renderer", tk.Renderer(), "model", tk.Model(), "jobs", cfg.Jobs.Backend)
	return api.NewRouter(handler), nil
}

// handleDocuments serves every /api route from a single function.
func handleDocuments(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		router, initErr = setup()
	})
	if initErr != nil {
		slog.Error("CRITICAL: Document API initialization failed.", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	router.ServeHTTP(w, r)
}
