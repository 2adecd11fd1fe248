// Package main is the entry point for the pdftool CLI. Every document
// operation is a subcommand; serve and mcp expose the same operations over
// HTTP and the Model Context Protocol.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdftoolkit/internal/app"
	"github.com/Lllllllleong/pdftoolkit/internal/config"
	"github.com/Lllllllleong/pdftoolkit/internal/services"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	v   = config.NewViper()
	cfg *config.Config
)

// rootCmd is the base command for the pdftool CLI.
var rootCmd = &cobra.Command{
	Use:   "pdftool",
	Short: "Merge, convert, read and question PDF documents",
	Long: `pdftool merges PDFs, converts between PDF and Word, extracts text and
answers questions about a document's contents.

Settings come from ./pdftool.yaml, ~/.config/pdftool/pdftool.yaml, PDFTOOL_*
environment variables and the flags below, in increasing precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		logger, err := config.NewLogger(loaded.Log, os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		if used := v.ConfigFileUsed(); used != "" {
			slog.Debug("Using config file.", "path", used)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./pdftool.yaml or ~/.config/pdftool/pdftool.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: json or text")
	flags.String("renderer", "", "Word to PDF renderer: canvas or office")
	flags.String("model", "", "question answering model: lexical or vertex")
	flags.String("work-dir", "", "directory for per-request scratch files")
	flags.String("jobs", "", "job ledger backend: none, sqlite or firestore")

	bindFlag("log.level", "log-level")
	bindFlag("log.format", "log-format")
	bindFlag("render.strategy", "renderer")
	bindFlag("qa.model", "model")
	bindFlag("workspace.base_dir", "work-dir")
	bindFlag("jobs.backend", "jobs")
}

func bindFlag(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag, err))
	}
}

// withToolkit builds the toolkit for one command and releases it afterwards.
func withToolkit(ctx context.Context, fn func(ctx context.Context, tk *services.Toolkit) error) (err error) {
	tk, closeFn, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil {
			slog.Warn("Failed to release resources.", "error", cerr)
		}
	}()
	return fn(ctx, tk)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
