package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdftoolkit/internal/mcpserver"
	"github.com/Lllllllleong/pdftoolkit/internal/services"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the document operations as MCP tools",
	Long: `mcp runs a Model Context Protocol server over stdio, or over
streamable HTTP when --http is set. Tools read and write local paths.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		httpAddr, _ := cmd.Flags().GetString("http")
		return withToolkit(cmd.Context(), func(ctx context.Context, tk *services.Toolkit) error {
			server, err := mcpserver.NewServer(tk, version)
			if err != nil {
				return err
			}
			if httpAddr != "" {
				slog.Info("MCP server listening.", "address", httpAddr)
				return server.RunHTTP(ctx, httpAddr)
			}
			return server.Run(ctx)
		})
	},
}

func init() {
	mcpCmd.Flags().String("http", "", "serve over HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}
