// Package mcpserver exposes the document toolkit as Model Context Protocol
// tools that operate on local file paths.
package mcpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Lllllllleong/pdftoolkit/internal/services"
)

// ErrMissingToolkit is returned when no toolkit is provided.
var ErrMissingToolkit = errors.New("mcpserver: toolkit is required")

// Server is the MCP server for pdftool.
type Server struct {
	toolkit *services.Toolkit
	server  *mcp.Server
}

// NewServer creates a new MCP server backed by toolkit.
func NewServer(toolkit *services.Toolkit, version string) (*Server, error) {
	if toolkit == nil {
		return nil, ErrMissingToolkit
	}
	impl := &mcp.Implementation{
		Name:    "pdftool",
		Version: version,
	}
	s := &Server{
		toolkit: toolkit,
		server:  mcp.NewServer(impl, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves MCP over streamable HTTP on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
