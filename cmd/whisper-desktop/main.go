package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"whisper-desktop/internal/bootstrap"
	"whisper-desktop/internal/config"
	"whisper-desktop/internal/console"
	"whisper-desktop/internal/diagnostics"
	"whisper-desktop/internal/domain"
	"whisper-desktop/internal/transcribe"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "whisper-desktop",
	Short: "Transcribe audio files with whisper.cpp models",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml (default: user config dir)")
	rootCmd.AddCommand(
		guiCmd(),
		transcribeCmd(),
		modelsCmd(),
		doctorCmd(),
	)
}

// loadSettings reads the config file named by --config or the default one.
func loadSettings() (domain.Settings, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return domain.Settings{}, fmt.Errorf("resolve config path: %w", err)
		}
	}
	return config.Load(path)
}

func guiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Run the desktop application",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New()
			if err != nil {
				return fmt.Errorf("bootstrap app: %w", err)
			}
			return app.Run()
		},
	}
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List known models and which are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			printer := console.NewPrinter(cmd.OutOrStdout(), false)
			printer.Models(transcribe.Catalog(settings.ModelsDir), settings.Model)
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, models, and the output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			report := diagnostics.NewChecker().Run(settings)
			console.NewPrinter(cmd.OutOrStdout(), false).Diagnostics(report)
			if report.HasFailures {
				return fmt.Errorf("diagnostics reported failures")
			}
			return nil
		},
	}
}
