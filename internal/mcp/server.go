// Package mcp exposes the call graph compiler, the symbol report parser and
// call graph queries as MCP tools served over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/solana-fcg/internal/config"
)

const serverName = "fcg-mcp"

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger. Logs must not go to stdout, which carries the protocol.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVersion sets the version reported to clients.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// Server manages the MCP server lifecycle.
type Server struct {
	config  *config.Config
	logger  *slog.Logger
	version string
	graphs  *graphCache
	mcp     *server.MCPServer
}

// NewServer creates a server with every fcg tool registered.
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	graphs, err := newGraphCache()
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:  cfg,
		logger:  slog.New(slog.DiscardHandler),
		version: "dev",
		graphs:  graphs,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		serverName,
		s.version,
		server.WithToolCapabilities(true),
	)

	AddCallGraphTool(s.mcp, cfg, s.logger)
	AddSourceTool(s.mcp, cfg, s.logger)
	AddGraphQueryTool(s.mcp, s.graphs)
	AddGraphFindTool(s.mcp, s.graphs)
	addStatusTool(s.mcp, s.graphs)

	return s, nil
}

// MCP returns the underlying mcp-go server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve runs the server on stdio and blocks until a shutdown signal, a
// transport error, or ctx cancellation.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.graphs.close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server on stdio", "version", s.version)
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-sigCh:
		s.logger.Info("received shutdown signal, stopping")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func addStatusTool(s *server.MCPServer, cache *graphCache) {
	tool := mcp.NewTool(
		"fcg_status",
		mcp.WithDescription("Report call graph load statistics for this server: loads, failures, cache hits and the number of cached graphs."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(cache.snapshot())
	})
}
