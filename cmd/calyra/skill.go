// ABOUTME: Install Claude Code skill for calyra
// ABOUTME: Embeds and installs the skill definition to ~/.claude/skills/

package main

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

//go:embed skill/SKILL.md
var skillFS embed.FS

var skillSkipConfirm bool

var installSkillCmd = &cobra.Command{
	Use:   "install-skill",
	Short: "Install Claude Code skill",
	Long: `Install the calyra skill for Claude Code.

This copies the skill definition to ~/.claude/skills/calyra/
so Claude Code knows when to reach for the calyra MCP tools.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipStoreAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path, err := installSkill(home, !skillSkipConfirm, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if path != "" {
			logger.Info("installed skill", "path", path)
		}
		return nil
	},
}

func init() {
	installSkillCmd.Flags().BoolVarP(&skillSkipConfirm, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(installSkillCmd)
}

// installSkill writes the embedded skill under home and returns its path.
// An empty path means the user declined.
func installSkill(home string, confirm bool, in io.Reader, out io.Writer) (string, error) {
	skillDir := filepath.Join(home, ".claude", "skills", "calyra")
	skillPath := filepath.Join(skillDir, "SKILL.md")

	fmt.Fprintln(out, "This will install the calyra skill, enabling Claude Code to:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  • Create tables and columns")
	fmt.Fprintln(out, "  • Log daily values")
	fmt.Fprintln(out, "  • Show heatmaps and charts")
	fmt.Fprintln(out, "  • Export a monthly PNG")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Destination:\n  %s\n\n", skillPath)

	if _, err := os.Stat(skillPath); err == nil {
		fmt.Fprintln(out, "Note: A skill file already exists and will be overwritten.")
		fmt.Fprintln(out)
	}

	if confirm {
		fmt.Fprint(out, "Install the calyra skill? [y/N] ")
		response, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("failed to read response: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(out, "Installation canceled.")
			return "", nil
		}
		fmt.Fprintln(out)
	}

	content, err := skillFS.ReadFile("skill/SKILL.md")
	if err != nil {
		return "", fmt.Errorf("failed to read embedded skill: %w", err)
	}
	if err := os.MkdirAll(skillDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create skill directory: %w", err)
	}
	if err := os.WriteFile(skillPath, content, 0600); err != nil {
		return "", fmt.Errorf("failed to write skill file: %w", err)
	}

	fmt.Fprintln(out, color.GreenString("✓ Installed calyra skill successfully!"))
	fmt.Fprintln(out, "Try asking Claude: \"Log 10/10 reps in Workouts for today\"")
	return skillPath, nil
}
