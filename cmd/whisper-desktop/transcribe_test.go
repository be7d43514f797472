package main

import (
	"os"
	"path/filepath"
	"testing"

	"whisper-desktop/internal/domain"
)

// TestApplyFlagsOnlyOverridesChanged verifies unset flags keep config values.
func TestApplyFlagsOnlyOverridesChanged(t *testing.T) {
	cmd := transcribeCmd()
	if err := cmd.Flags().Parse([]string{"--model", "small", "--format", "srt,vtt"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	formats, _ := cmd.Flags().GetStringSlice("format")
	model, _ := cmd.Flags().GetString("model")

	settings := domain.Settings{Model: "base", Language: "de", Task: "transcribe", OutputFormat: "txt", OutputDir: "/out"}
	applyFlags(cmd, &settings, transcribeFlags{model: model, formats: formats})

	if settings.Model != "small" || settings.OutputFormat != "srt,vtt" {
		t.Fatalf("settings = %+v", settings)
	}
	if settings.Language != "de" || settings.OutputDir != "/out" {
		t.Fatalf("unchanged flags overrode settings: %+v", settings)
	}

	cfg, err := settings.BatchConfig().Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(cfg.OutputFormats) != 2 || cfg.OutputFormats[0] != domain.FormatSRT || cfg.OutputFormats[1] != domain.FormatVTT {
		t.Fatalf("formats = %v", cfg.OutputFormats)
	}
}

// TestExpandInputsScansFolders verifies folders expand and files pass through.
func TestExpandInputsScansFolders(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.mp3", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	missing := filepath.Join(root, "gone.wav")

	got, err := expandInputs([]string{root, missing})
	if err != nil {
		t.Fatalf("expandInputs() error = %v", err)
	}
	if len(got) != 2 || got[0] != filepath.Join(root, "a.mp3") || got[1] != missing {
		t.Fatalf("expandInputs() = %v", got)
	}
}
