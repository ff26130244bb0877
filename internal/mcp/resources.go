// ABOUTME: MCP resource implementations for calyra.
// ABOUTME: Provides calyra://tables and calyra://exports resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harperreed/calyra/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	tablesURI  = "calyra://tables"
	exportsURI = "calyra://exports"
)

func (s *Server) registerResources() {
	// calyra://tables - every table with its rows
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         tablesURI,
		Name:        "Tables",
		Description: "Every table with its columns and rows",
		MIMEType:    "application/json",
	}, s.handleTablesResource)

	// calyra://exports - monthly export history
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         exportsURI,
		Name:        "Export History",
		Description: "Every recorded monthly export, oldest month first",
		MIMEType:    "application/json",
	}, s.handleExportsResource)
}

// Resource handlers

type tableResource struct {
	Number  int          `json:"number"`
	Title   string       `json:"title"`
	Columns []string     `json:"columns"`
	Rows    []models.Row `json:"rows"`
}

func (s *Server) handleTablesResource(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	tables := s.tracker.Tables()
	result := make([]tableResource, 0, len(tables))
	for i, tbl := range tables {
		result = append(result, tableResource{
			Number:  i + 1,
			Title:   tbl.Title,
			Columns: tbl.Columns,
			Rows:    tbl.SortedRows(),
		})
	}
	return jsonResource(tablesURI, map[string]interface{}{"tables": result})
}

func (s *Server) handleExportsResource(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	exports, err := s.exporter.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	if exports == nil {
		exports = []*models.MonthlyExport{}
	}
	return jsonResource(exportsURI, map[string]interface{}{"exports": exports})
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
