package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"whisper-desktop/internal/console"
	"whisper-desktop/internal/domain"
	"whisper-desktop/internal/events"
	"whisper-desktop/internal/jobs"
	"whisper-desktop/internal/models"
	"whisper-desktop/internal/transcribe"
)

type transcribeFlags struct {
	model          string
	language       string
	task           string
	formats        []string
	wordTimestamps bool
	output         string
	verbose        bool
}

func transcribeCmd() *cobra.Command {
	var f transcribeFlags

	cmd := &cobra.Command{
		Use:   "transcribe [files or folders...]",
		Short: "Transcribe audio files and export the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			applyFlags(cmd, &settings, f)
			return runTranscribe(cmd, settings, args, f.verbose)
		},
	}

	cmd.Flags().StringVarP(&f.model, "model", "m", "", "model size or path to a model file")
	cmd.Flags().StringVarP(&f.language, "language", "l", "", "language code or auto")
	cmd.Flags().StringVar(&f.task, "task", "", "transcribe or translate")
	cmd.Flags().StringSliceVarP(&f.formats, "format", "f", nil, "output formats: txt, json, srt, vtt, all")
	cmd.Flags().BoolVar(&f.wordTimestamps, "word-timestamps", false, "include per-word timings")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output directory")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "print log lines and progress")

	return cmd
}

// applyFlags overrides settings with the flags the user actually set.
func applyFlags(cmd *cobra.Command, settings *domain.Settings, f transcribeFlags) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		settings.Model = f.model
	}
	if flags.Changed("language") {
		settings.Language = f.language
	}
	if flags.Changed("task") {
		settings.Task = f.task
	}
	if flags.Changed("format") {
		settings.OutputFormat = strings.Join(f.formats, ",")
	}
	if flags.Changed("word-timestamps") {
		settings.WordTimestamps = f.wordTimestamps
	}
	if flags.Changed("output") {
		settings.OutputDir = f.output
	}
}

// expandInputs replaces folder arguments with the audio files inside them.
func expandInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			// missing files still become jobs and fail individually
			paths = append(paths, arg)
			continue
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := jobs.Discover(arg)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", arg, err)
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

func runTranscribe(cmd *cobra.Command, settings domain.Settings, args []string, verbose bool) error {
	cfg := settings.BatchConfig()
	if _, err := cfg.Normalize(); err != nil {
		return err
	}
	paths, err := expandInputs(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus(1000)
	ch, unsubscribe := bus.Subscribe()
	printer := console.NewPrinter(cmd.OutOrStdout(), verbose)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for event := range ch {
			printer.Event(event)
			if event.Type == events.TypeRunCompleted {
				return
			}
		}
	}()
	defer unsubscribe()

	manager := models.NewManager(transcribe.NewWhisperCPP(settings), bus)
	defer manager.Close()
	manager.RequestLoad(settings.Model)
	if err := manager.Wait(ctx); err != nil {
		return err
	}
	if !manager.IsReady() {
		return fmt.Errorf("model %s could not be loaded: %s", settings.Model, manager.Status().LastError)
	}

	controller := jobs.NewController(manager, bus)
	handle, err := controller.SubmitBatch(jobs.NewJobs(paths, settings.OutputDir), cfg)
	if err != nil {
		return err
	}

	select {
	case <-handle.Done():
	case <-ctx.Done():
		handle.Cancel()
	}
	summary, err := handle.Wait(context.Background())
	if err != nil {
		return err
	}
	<-finished

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.Failed, summary.Total)
	}
	return nil
}
