// ABOUTME: CLI commands for reading and writing calyra settings.
// ABOUTME: Edits config.yaml; environment variables and flags still override it.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/calyra/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
	Long: `Show or change the settings in ~/.config/calyra/config.yaml.

SETTINGS:

  backend     badger (default) or sqlite
  data_dir    where data is kept (default: ~/.local/share/calyra)
  log_level   debug, info (default), warn or error

CALYRA_BACKEND, CALYRA_DATA_DIR and CALYRA_LOG_LEVEL override the file, and
the --backend, --data-dir and --log-level flags override both.

EXAMPLES:

  calyra config show                # Settings in effect
  calyra config set backend sqlite  # Switch backend (see 'calyra migrate')
  calyra config unset data_dir      # Back to the default`,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Aliases:     []string{"get", "ls"},
	Short:       "Show the settings in effect",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipStoreAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		effective := config.Config{
			Backend:  cfg.GetBackend(),
			DataDir:  cfg.GetDataDir(),
			LogLevel: cfg.GetLogLevel().String(),
		}
		data, err := yaml.Marshal(effective)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}

		faint := color.New(color.Faint)
		faint.Fprintf(cmd.OutOrStdout(), "# %s\n", config.GetConfigPath())
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		faint.Fprintf(cmd.OutOrStdout(), "# storage: %s\n", cfg.StoragePath())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:         "set <key> <value>",
	Short:       "Change a setting",
	Args:        cobra.MinimumNArgs(2),
	Annotations: map[string]string{skipStoreAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return saveSetting(args[0], strings.Join(args[1:], " "))
	},
}

var configUnsetCmd = &cobra.Command{
	Use:         "unset <key>",
	Short:       "Remove a setting so its default applies",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipStoreAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return saveSetting(args[0], "")
	},
}

// saveSetting edits the file alone so environment overrides are not written
// back into it.
func saveSetting(key, value string) error {
	fileCfg, err := config.LoadFile()
	if err != nil {
		return err
	}
	if err := fileCfg.Set(key, value); err != nil {
		return err
	}
	if err := fileCfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	logger.Debug("config saved", "key", key, "path", config.GetConfigPath())
	if value == "" {
		color.Green("✓ Unset %s", key)
	} else {
		color.Green("✓ Set %s to %s", key, strings.TrimSpace(value))
	}
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	rootCmd.AddCommand(configCmd)
}
