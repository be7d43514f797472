package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"whisper-desktop/internal/domain"
)

// Pipeline stage names reported by PipelineError.
const (
	StageLoading       = "loading"
	StagePreprocessing = "preprocessing"
	StageTranscribing  = "transcribing"
	StageParsing       = "parsing"
)

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// PipelineError is a stage-aware error with optional command context.
type PipelineError struct {
	Stage      string     `json:"stage"`
	Message    string     `json:"message"`
	CommandLog CommandLog `json:"commandLog"`
	Err        error      `json:"-"`
}

// Error formats pipeline failures for logs and UI.
func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s (cmd=%s exit=%d)",
		e.Stage,
		e.Message,
		e.CommandLog.Command,
		e.CommandLog.ExitCode,
	)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// WhisperCPP is an Engine backed by ffmpeg and whisper-cli.
type WhisperCPP struct {
	ffmpegPath  string
	whisperPath string
	modelsDir   string
	threads     int
	runner      commandRunner
	lookPath    func(file string) (string, error)
	mkdirTemp   func(dir, pattern string) (string, error)
	removeAll   func(path string) error
	stat        func(name string) (os.FileInfo, error)
	readDir     func(name string) ([]os.DirEntry, error)
	readFile    func(name string) ([]byte, error)
}

// NewWhisperCPP constructs the production engine from settings.
func NewWhisperCPP(settings domain.Settings) *WhisperCPP {
	return &WhisperCPP{
		ffmpegPath:  valueOr(settings.FFmpegPath, "ffmpeg"),
		whisperPath: valueOr(settings.WhisperPath, "whisper-cli"),
		modelsDir:   settings.ModelsDir,
		threads:     settings.Threads,
		runner:      &execRunner{},
		lookPath:    exec.LookPath,
		mkdirTemp:   os.MkdirTemp,
		removeAll:   os.RemoveAll,
		stat:        os.Stat,
		readDir:     os.ReadDir,
		readFile:    os.ReadFile,
	}
}

// Load resolves modelID to a model file and verifies the tools are present.
// modelID is a catalog ID, a model file path, or a directory of models.
func (w *WhisperCPP) Load(ctx context.Context, modelID string) (Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	modelPath, err := w.resolveModelPath(modelID)
	if err != nil {
		return nil, &PipelineError{Stage: StageLoading, Message: err.Error(), Err: err}
	}

	for _, tool := range []string{w.ffmpegPath, w.whisperPath} {
		if _, err := w.lookPath(tool); err != nil {
			return nil, &PipelineError{
				Stage:   StageLoading,
				Message: fmt.Sprintf("tool not found in PATH: %s", tool),
				Err:     err,
			}
		}
	}

	return &whisperModel{engine: w, path: modelPath}, nil
}

// resolveModelPath returns a model file path for an ID, file, or directory.
func (w *WhisperCPP) resolveModelPath(modelID string) (string, error) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return "", fmt.Errorf("model id is required")
	}

	if option, ok := LookupModel(id); ok {
		path := filepath.Join(w.modelsDir, option.FileName)
		info, err := w.stat(path)
		if err != nil || info.IsDir() {
			return "", fmt.Errorf("model %s is not installed: %s", id, path)
		}
		return path, nil
	}

	info, err := w.stat(id)
	if err != nil {
		return "", fmt.Errorf("unknown model or missing path: %s", id)
	}
	if !info.IsDir() {
		if !isModelFile(id) {
			return "", fmt.Errorf("not a .bin or .gguf model file: %s", id)
		}
		return id, nil
	}

	entries, err := w.readDir(id)
	if err != nil {
		return "", fmt.Errorf("cannot read model directory: %s", id)
	}

	modelNames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && isModelFile(entry.Name()) {
			modelNames = append(modelNames, entry.Name())
		}
	}
	if len(modelNames) == 0 {
		return "", fmt.Errorf("no .bin or .gguf model files found in: %s", id)
	}

	sort.Strings(modelNames)
	return filepath.Join(id, modelNames[0]), nil
}

// whisperModel is one resolved model file.
type whisperModel struct {
	engine *WhisperCPP
	path   string
}

// Transcribe converts the input to 16 kHz mono WAV, runs whisper-cli with
// JSON output, and parses the result.
func (m *whisperModel) Transcribe(ctx context.Context, inputPath string, opts Options) (domain.TranscriptionResult, error) {
	w := m.engine
	if strings.TrimSpace(inputPath) == "" {
		return domain.TranscriptionResult{}, &PipelineError{
			Stage:   StagePreprocessing,
			Message: "input audio path is required",
		}
	}
	if _, err := w.stat(inputPath); err != nil {
		return domain.TranscriptionResult{}, &PipelineError{
			Stage:   StagePreprocessing,
			Message: fmt.Sprintf("cannot access input audio: %s", inputPath),
			Err:     err,
		}
	}

	tempDir, err := w.mkdirTemp("", "whisper-desktop-*")
	if err != nil {
		return domain.TranscriptionResult{}, &PipelineError{
			Stage:   StagePreprocessing,
			Message: "failed to create temporary workspace",
			Err:     err,
		}
	}
	defer func() { _ = w.removeAll(tempDir) }()

	wavPath := filepath.Join(tempDir, "audio-16k-mono.wav")
	args := buildFFmpegArgs(inputPath, wavPath)
	ffmpegLog, err := w.run(ctx, w.ffmpegPath, args, opts.OnLog)
	if err != nil {
		return domain.TranscriptionResult{}, &PipelineError{
			Stage:      StagePreprocessing,
			Message:    "ffmpeg audio conversion failed",
			CommandLog: ffmpegLog,
			Err:        err,
		}
	}

	outBase := filepath.Join(tempDir, "transcript")
	whisperArgs := buildWhisperArgs(m.path, wavPath, outBase, opts, w.threads)
	whisperLog, err := w.run(ctx, w.whisperPath, whisperArgs, opts.OnLog)
	if err != nil {
		return domain.TranscriptionResult{}, &PipelineError{
			Stage:      StageTranscribing,
			Message:    "whisper-cli transcription failed",
			CommandLog: whisperLog,
			Err:        err,
		}
	}

	data, err := w.readFile(outBase + ".json")
	if err != nil {
		return domain.TranscriptionResult{}, &PipelineError{
			Stage:      StageParsing,
			Message:    "whisper-cli completed but JSON output is missing",
			CommandLog: whisperLog,
			Err:        err,
		}
	}

	result, err := parseWhisperJSON(data, opts.WordTimestamps)
	if err != nil {
		return domain.TranscriptionResult{}, &PipelineError{
			Stage:      StageParsing,
			Message:    "cannot parse whisper-cli JSON output",
			CommandLog: whisperLog,
			Err:        err,
		}
	}
	return result, nil
}

// run executes one command and reports its log to the callback.
func (w *WhisperCPP) run(ctx context.Context, name string, args []string, onLog func(CommandLog)) (CommandLog, error) {
	res, err := w.runner.Run(ctx, name, args...)
	log := CommandLog{
		Command:  name,
		Args:     args,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}
	if onLog != nil {
		onLog(log)
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return log, err
}

// buildFFmpegArgs builds preprocessing CLI args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// buildWhisperArgs builds whisper-cli args for JSON transcript export.
func buildWhisperArgs(modelPath, audioPath, outBase string, opts Options, threads int) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", outBase,
		"-np",
	}

	// full JSON carries per-token offsets needed for word timings
	if opts.WordTimestamps {
		args = append(args, "-ojf")
	} else {
		args = append(args, "-oj")
	}

	lang := strings.TrimSpace(opts.Language)
	if lang == "" || strings.EqualFold(lang, "auto") {
		lang = "auto"
	}
	args = append(args, "-l", lang)

	if opts.Task == domain.TaskTranslate {
		args = append(args, "-tr")
	}
	if threads > 0 {
		args = append(args, "-t", strconv.Itoa(threads))
	}
	return args
}

func valueOr(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

// NewWhisperCPPForTests constructs an engine with injectable dependencies.
func NewWhisperCPPForTests(
	ffmpegPath string,
	whisperPath string,
	modelsDir string,
	runner commandRunner,
	lookPath func(file string) (string, error),
) *WhisperCPP {
	return &WhisperCPP{
		ffmpegPath:  ffmpegPath,
		whisperPath: whisperPath,
		modelsDir:   modelsDir,
		runner:      runner,
		lookPath:    lookPath,
		mkdirTemp:   os.MkdirTemp,
		removeAll:   os.RemoveAll,
		stat:        os.Stat,
		readDir:     os.ReadDir,
		readFile:    os.ReadFile,
	}
}
