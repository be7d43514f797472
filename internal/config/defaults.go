package config

import (
	"os"
	"path/filepath"

	"whisper-desktop/internal/domain"
)

const appDirName = "whisper-desktop"

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		Model:        "base",
		ModelsDir:    filepath.Join(homeDir, ".local", "share", appDirName, "models"),
		OutputDir:    filepath.Join(homeDir, "Documents", "Whisper_Output"),
		Language:     "auto",
		Task:         string(domain.TaskTranscribe),
		OutputFormat: string(domain.FormatTXT),
		FFmpegPath:   "ffmpeg",
		WhisperPath:  "whisper-cli",
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appDirName, "config.toml"), nil
}
