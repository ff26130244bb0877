// ABOUTME: MCP server setup for the calyra tracker.
// ABOUTME: Wraps the MCP server with a tracker, a view session and the exporter.
package mcp

import (
	"context"
	"errors"
	"sync"

	"github.com/harperreed/calyra/internal/tracker"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with tracker access.
type Server struct {
	mcpServer *mcp.Server
	tracker   *tracker.Tracker
	exporter  *tracker.Exporter
	outDir    string

	// mu guards session and serializes every call that resolves a table
	// reference to an index; tool calls may arrive concurrently.
	mu      sync.Mutex
	session *tracker.Session
}

// NewServer creates a new MCP server over tr. Rendered images are written
// to outDir.
func NewServer(tr *tracker.Tracker, exp *tracker.Exporter, outDir string) (*Server, error) {
	if tr == nil {
		return nil, errors.New("tracker is required")
	}
	if exp == nil {
		return nil, errors.New("exporter is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "calyra",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		tracker:   tr,
		exporter:  exp,
		outDir:    outDir,
		session:   tracker.NewSession(tr),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
