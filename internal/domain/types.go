package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
)

// ErrUnknownFormat is returned when an output format name is not supported.
var ErrUnknownFormat = errors.New("unknown output format")

// JobStatus tracks the lifecycle of a single transcription job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusFailed     JobStatus = "failed"
)

// Task selects between same-language transcription and translation to English.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// OutputFormat is one exportable transcript representation.
type OutputFormat string

const (
	FormatTXT  OutputFormat = "txt"
	FormatJSON OutputFormat = "json"
	FormatSRT  OutputFormat = "srt"
	FormatVTT  OutputFormat = "vtt"

	// FormatAll is a selection keyword, never a file extension.
	FormatAll = "all"
)

// AllFormats lists every concrete format in export order.
var AllFormats = []OutputFormat{FormatTXT, FormatJSON, FormatSRT, FormatVTT}

// Ext returns the file extension for the format, including the dot.
func (f OutputFormat) Ext() string {
	return "." + string(f)
}

// ParseFormats expands "all", removes duplicates, and rejects unknown names.
func ParseFormats(names []string) ([]OutputFormat, error) {
	var out []OutputFormat
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if name == FormatAll {
			out = append(out, AllFormats...)
			continue
		}

		format := OutputFormat(name)
		if !lo.Contains(AllFormats, format) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
		}
		out = append(out, format)
	}
	return lo.Uniq(out), nil
}

// BatchConfig is captured at submission and stays fixed for one run.
type BatchConfig struct {
	LanguageHint   string         `json:"languageHint"`
	Task           Task           `json:"task"`
	WordTimestamps bool           `json:"wordTimestamps"`
	OutputFormats  []OutputFormat `json:"outputFormats"`
}

// Normalize validates the config and returns a copy with defaults applied.
func (c BatchConfig) Normalize() (BatchConfig, error) {
	lang := strings.TrimSpace(c.LanguageHint)
	if strings.EqualFold(lang, "auto") {
		lang = ""
	}

	task := Task(strings.ToLower(strings.TrimSpace(string(c.Task))))
	switch task {
	case "":
		task = TaskTranscribe
	case TaskTranscribe, TaskTranslate:
	default:
		return BatchConfig{}, fmt.Errorf("unknown task: %q", c.Task)
	}

	names := make([]string, len(c.OutputFormats))
	for i, f := range c.OutputFormats {
		names[i] = string(f)
	}
	formats, err := ParseFormats(names)
	if err != nil {
		return BatchConfig{}, err
	}
	if len(formats) == 0 {
		return BatchConfig{}, fmt.Errorf("at least one output format is required")
	}

	return BatchConfig{
		LanguageHint:   lang,
		Task:           task,
		WordTimestamps: c.WordTimestamps,
		OutputFormats:  formats,
	}, nil
}

// Job describes one file to transcribe and its outcome.
type Job struct {
	ID          int                  `json:"id"`
	SourcePath  string               `json:"sourcePath"`
	OutputDir   string               `json:"outputDir"`
	Status      JobStatus            `json:"status"`
	Error       string               `json:"error,omitempty"`
	Result      *TranscriptionResult `json:"result,omitempty"`
	OutputPaths []string             `json:"outputPaths,omitempty"`
}

// Stem returns the source file name without its extension.
func (j Job) Stem() string {
	base := filepath.Base(j.SourcePath)
	name := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "transcript"
	}
	return name
}

// BatchRun is the single source of truth for one run's progress.
type BatchRun struct {
	ID         string     `json:"id"`
	Jobs       []Job      `json:"jobs"`
	Progress   float64    `json:"progress"`
	IsRunning  bool       `json:"isRunning"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Counts returns how many jobs completed, failed, or have not finished.
func (r BatchRun) Counts() (completed, failed, pending int) {
	completed = lo.CountBy(r.Jobs, func(j Job) bool { return j.Status == JobStatusComplete })
	failed = lo.CountBy(r.Jobs, func(j Job) bool { return j.Status == JobStatusFailed })
	return completed, failed, len(r.Jobs) - completed - failed
}

// Settings contains defaults read from the configuration file.
type Settings struct {
	Model          string `toml:"model" json:"model"`
	ModelsDir      string `toml:"models_dir" json:"modelsDir"`
	OutputDir      string `toml:"output_dir" json:"outputDir"`
	Language       string `toml:"language" json:"language"`
	Task           string `toml:"task" json:"task"`
	WordTimestamps bool   `toml:"word_timestamps" json:"wordTimestamps"`
	OutputFormat   string `toml:"output_format" json:"outputFormat"`
	FFmpegPath     string `toml:"ffmpeg_path" json:"ffmpegPath"`
	WhisperPath    string `toml:"whisper_path" json:"whisperPath"`
	Threads        int    `toml:"threads" json:"threads"`
}

// BatchConfig builds the submission config implied by these settings.
// OutputFormat may list several formats separated by commas.
func (s Settings) BatchConfig() BatchConfig {
	formats := lo.Map(strings.Split(s.OutputFormat, ","), func(name string, _ int) OutputFormat {
		return OutputFormat(name)
	})
	return BatchConfig{
		LanguageHint:   s.Language,
		Task:           Task(s.Task),
		WordTimestamps: s.WordTimestamps,
		OutputFormats:  formats,
	}
}
