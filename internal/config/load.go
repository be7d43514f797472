package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"whisper-desktop/internal/domain"
)

// Load reads settings from a TOML file. Keys absent from the file keep their
// defaults; a missing file yields the defaults unchanged.
func Load(path string) (domain.Settings, error) {
	settings := DefaultSettings()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Printf("Config: %s not found, using defaults", path)
		return settings, nil
	} else if err != nil {
		return domain.Settings{}, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	meta, err := toml.DecodeFile(path, &settings)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	for _, key := range meta.Undecoded() {
		log.Printf("Config: ignoring unknown key %s", key)
	}

	if err := Validate(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	log.Printf("Config: loaded configuration from %s", path)
	return settings, nil
}

// Validate checks the values a run depends on.
func Validate(s domain.Settings) error {
	if strings.TrimSpace(s.Model) == "" {
		return fmt.Errorf("invalid model: empty")
	}
	if s.Threads < 0 {
		return fmt.Errorf("invalid threads: %d", s.Threads)
	}
	if _, err := s.BatchConfig().Normalize(); err != nil {
		return err
	}
	return nil
}
