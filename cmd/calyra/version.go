// ABOUTME: Version command for calyra CLI.
// ABOUTME: Prints the build version and the storage schema version.
package main

import (
	"fmt"

	"github.com/harperreed/calyra/internal/storage"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the calyra version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("calyra %s (schema %d)\n", version, storage.SchemaVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
