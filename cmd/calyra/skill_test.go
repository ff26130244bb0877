// ABOUTME: Tests for the install-skill command.
// ABOUTME: Validates skill installation, confirmation, and file content.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestSkillFSReadEmbeddedContent verifies the embedded SKILL.md has frontmatter
// and names every MCP tool.
func TestSkillFSReadEmbeddedContent(t *testing.T) {
	content, err := skillFS.ReadFile("skill/SKILL.md")
	if err != nil {
		t.Fatalf("Failed to read embedded skill/SKILL.md: %v", err)
	}

	contentStr := string(content)
	if !strings.HasPrefix(contentStr, "---") {
		t.Error("Expected SKILL.md to start with YAML frontmatter (---)")
	}

	expectedMarkers := []string{
		"name: calyra",
		"description:",
		"## When to use calyra",
		"mcp__calyra__list_tables",
		"mcp__calyra__get_table",
		"mcp__calyra__add_table",
		"mcp__calyra__rename_table",
		"mcp__calyra__delete_table",
		"mcp__calyra__add_column",
		"mcp__calyra__remove_column",
		"mcp__calyra__set_row",
		"mcp__calyra__toggle_heatmap",
		"mcp__calyra__get_heatmap",
		"mcp__calyra__get_chart",
		"mcp__calyra__export_visualization",
	}
	for _, marker := range expectedMarkers {
		if !strings.Contains(contentStr, marker) {
			t.Errorf("Expected SKILL.md to contain %q", marker)
		}
	}
}

func TestInstallSkillWithoutPrompt(t *testing.T) {
	home := t.TempDir()
	var out bytes.Buffer

	path, err := installSkill(home, false, strings.NewReader(""), &out)
	if err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}

	want := filepath.Join(home, ".claude", "skills", "calyra", "SKILL.md")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Skill file not created: %v", err)
	}
	embedded, _ := skillFS.ReadFile("skill/SKILL.md")
	if !bytes.Equal(written, embedded) {
		t.Error("Installed skill differs from the embedded one")
	}
	if strings.Contains(out.String(), "[y/N]") {
		t.Error("Expected no confirmation prompt")
	}
}

func TestInstallSkillConfirmation(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		installed bool
	}{
		{"yes", "y\n", true},
		{"full yes", "YES\n", true},
		{"no", "n\n", false},
		{"empty", "\n", false},
		{"eof", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := t.TempDir()
			var out bytes.Buffer

			path, err := installSkill(home, true, strings.NewReader(tt.input), &out)
			if err != nil {
				t.Fatalf("installSkill failed: %v", err)
			}
			if (path != "") != tt.installed {
				t.Errorf("installed = %v, want %v", path != "", tt.installed)
			}

			_, statErr := os.Stat(filepath.Join(home, ".claude", "skills", "calyra", "SKILL.md"))
			if tt.installed && statErr != nil {
				t.Errorf("Expected skill file: %v", statErr)
			}
			if !tt.installed && statErr == nil {
				t.Error("Skill file should not exist after declining")
			}
			if !tt.installed && !strings.Contains(out.String(), "Installation canceled.") {
				t.Error("Expected cancel message")
			}
		})
	}
}

// TestInstallSkillOverwritesExistingFile verifies a stale skill file is replaced.
func TestInstallSkillOverwritesExistingFile(t *testing.T) {
	home := t.TempDir()
	skillDir := filepath.Join(home, ".claude", "skills", "calyra")
	if err := os.MkdirAll(skillDir, 0755); err != nil {
		t.Fatalf("Failed to create skill directory: %v", err)
	}
	skillPath := filepath.Join(skillDir, "SKILL.md")
	if err := os.WriteFile(skillPath, []byte("# Old Skill\nstale content"), 0644); err != nil {
		t.Fatalf("Failed to write old skill file: %v", err)
	}

	var out bytes.Buffer
	if _, err := installSkill(home, false, strings.NewReader(""), &out); err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}

	if !strings.Contains(out.String(), "already exists") {
		t.Error("Expected overwrite notice")
	}
	data, err := os.ReadFile(skillPath)
	if err != nil {
		t.Fatalf("Failed to read skill file: %v", err)
	}
	if strings.Contains(string(data), "stale content") {
		t.Error("Old content should have been replaced")
	}
}
