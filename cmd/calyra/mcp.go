// ABOUTME: CLI command for starting MCP server.
// ABOUTME: Runs stdio-based MCP server for Claude integration.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/harperreed/calyra/internal/mcp"
	"github.com/harperreed/calyra/internal/tracker"
	"github.com/spf13/cobra"
)

var mcpOutputDir string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

MCP allows AI assistants like Claude to interact with your tables through
a standardized protocol. The server communicates via stdin/stdout.

CLAUDE DESKTOP CONFIGURATION:

  Add this to your Claude Desktop config (claude_desktop_config.json):

  {
    "mcpServers": {
      "calyra": {
        "command": "calyra",
        "args": ["mcp"]
      }
    }
  }

  On macOS, the config is at:
    ~/Library/Application Support/Claude/claude_desktop_config.json

AVAILABLE TOOLS:

  list_tables           List tables with columns and row counts
  get_table             Get a table with all its rows
  add_table             Create a table
  rename_table          Rename a table
  delete_table          Delete a table
  add_column            Add a column
  remove_column         Remove a column
  set_row               Set values of the row for a date
  toggle_heatmap        Turn the heatmap on or off for a column
  get_heatmap           Get the heatmap data of a column
  get_chart             Get the chart series of a column
  export_visualization  Render a PNG chart or heatmap (once per month)

AVAILABLE RESOURCES:

  calyra://tables     Every table with its rows
  calyra://exports    Monthly export history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir := mcpOutputDir
		if outDir == "" {
			outDir = filepath.Join(cfg.GetDataDir(), "exports")
		}

		exp := &tracker.Exporter{Store: store, Logger: logger}
		server, err := mcp.NewServer(tr, exp, outDir)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// Handle shutdown signals
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			cancel()
		}()

		logger.Info("mcp server starting", "out_dir", outDir)
		return server.Serve(ctx)
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpOutputDir, "output-dir", "", "directory for exported images (default: <data dir>/exports)")
	rootCmd.AddCommand(mcpCmd)
}
