// Package diagnostics verifies the external tools, model files, and output
// location a transcription run depends on.
package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"

	"whisper-desktop/internal/domain"
	"whisper-desktop/internal/transcribe"
)

// Checker validates external tools and required filesystem paths.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	readDir    func(string) ([]os.DirEntry, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
	now        func() time.Time
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		readDir:    os.ReadDir,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
		now:        time.Now,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg", valueOr(settings.FFmpegPath, "ffmpeg")),
		c.checkTool("whisper", valueOr(settings.WhisperPath, "whisper-cli")),
		c.checkModelsDir(settings.ModelsDir),
		c.checkModel(settings.Model, settings.ModelsDir),
		c.checkOutputDir(settings.OutputDir),
	}

	return domain.DiagnosticReport{
		GeneratedAt: c.now().UTC(),
		HasFailures: lo.ContainsBy(items, func(item domain.DiagnosticItem) bool {
			return item.Status == domain.DiagnosticStatusFail
		}),
		Items: items,
	}
}

// checkTool verifies a required CLI executable is on PATH.
func (c *Checker) checkTool(id, binary string) domain.DiagnosticItem {
	path, err := c.lookPath(binary)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + id,
			Name:    binary,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found in PATH: %s", binary),
			Hint:    "Install it or set its path in config.toml before starting a run.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + id,
		Name:    binary,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkModelsDir reports how many model files are installed.
func (c *Checker) checkModelsDir(modelsDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "models_dir",
		Name: "Models directory",
	}

	entries, err := c.readDir(modelsDir)
	if err != nil {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = fmt.Sprintf("Cannot read models directory: %s", modelsDir)
		item.Hint = "Create it and place ggml model files inside, e.g. ggml-base.bin."
		return item
	}

	count := lo.CountBy(entries, func(entry os.DirEntry) bool {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		return !entry.IsDir() && (ext == ".bin" || ext == ".gguf")
	})
	if count == 0 {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = fmt.Sprintf("No model files found in %s", modelsDir)
		item.Hint = "Place a .bin or .gguf whisper.cpp model file in this directory."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("%d model file(s) in %s", count, modelsDir)
	return item
}

// checkModel validates that the configured model resolves to a file.
func (c *Checker) checkModel(model, modelsDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "model",
		Name: "Model",
	}

	model = strings.TrimSpace(model)
	if model == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "No model configured."
		item.Hint = "Set model to a size such as base or to a model file path."
		return item
	}

	path := model
	if option, ok := transcribe.LookupModel(model); ok {
		path = filepath.Join(modelsDir, option.FileName)
	}

	if _, err := c.stat(path); err != nil {
		item.Status = domain.DiagnosticStatusFail
		if errors.Is(err, os.ErrNotExist) {
			item.Message = fmt.Sprintf("Model %s is not installed: %s", model, path)
		} else {
			item.Message = fmt.Sprintf("Cannot access model %s: %s", model, path)
		}
		item.Hint = "Download the whisper.cpp model file into the models directory."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Model %s found: %s", model, path)
	return item
}

// checkOutputDir validates output directory existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_dir",
		Name: "Output directory",
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output directory is empty."
		item.Hint = "Set an output directory where transcript files can be written."
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for transcript export."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}

func valueOr(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

// NewCheckerForTests creates checker with an injectable PATH lookup.
func NewCheckerForTests(lookPath func(string) (string, error)) *Checker {
	c := NewChecker()
	c.lookPath = lookPath
	return c
}
