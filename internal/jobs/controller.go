// Package jobs runs transcription jobs sequentially against the adopted
// model and exports their results.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"whisper-desktop/internal/domain"
	"whisper-desktop/internal/events"
	"whisper-desktop/internal/export"
	"whisper-desktop/internal/models"
	"whisper-desktop/internal/transcribe"
)

// ErrAlreadyRunning is returned when a run is submitted while another is active.
var ErrAlreadyRunning = errors.New("run already in progress")

// ErrModelNotReady is returned when a run is submitted before any model loaded.
var ErrModelNotReady = models.ErrNotReady

// ErrInvalidConfig is returned for configurations rejected at submission.
var ErrInvalidConfig = errors.New("invalid run configuration")

// errRunCancelled marks jobs the run never reached.
var errRunCancelled = errors.New("run cancelled")

// TranscriptionError is an engine or input failure isolated to one job.
type TranscriptionError struct {
	JobID int
	Path  string
	Err   error
}

// Error formats the failing job and cause.
func (e *TranscriptionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("transcribe job %d (%s): %v", e.JobID, e.Path, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *TranscriptionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ModelSource hands out the currently adopted model.
type ModelSource interface {
	Acquire() (models.Loaded, error)
}

// OutputWriter stores one encoded format and returns the written path.
type OutputWriter interface {
	Write(dir, stem string, format domain.OutputFormat, result domain.TranscriptionResult) (string, error)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithWriter replaces the filesystem output writer.
func WithWriter(w OutputWriter) Option {
	return func(c *Controller) { c.writer = w }
}

// WithClock replaces the time source used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller drives at most one run at a time, one job after another.
type Controller struct {
	models    ModelSource
	publisher events.Publisher
	writer    OutputWriter
	mkdirAll  func(path string, perm os.FileMode) error
	stat      func(name string) (os.FileInfo, error)
	now       func() time.Time
	newID     func() string

	mu  sync.Mutex
	run domain.BatchRun
}

// NewController creates an idle controller.
func NewController(source ModelSource, publisher events.Publisher, opts ...Option) *Controller {
	c := &Controller{
		models:    source,
		publisher: publisher,
		writer:    export.NewWriter(),
		mkdirAll:  os.MkdirAll,
		stat:      os.Stat,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitSingle starts a run with exactly one job.
func (c *Controller) SubmitSingle(job domain.Job, cfg domain.BatchConfig) (*RunHandle, error) {
	return c.SubmitBatch([]domain.Job{job}, cfg)
}

// SubmitBatch validates cfg, claims the run slot, and processes jobs in the
// background. A batch with no jobs finishes immediately without a model.
func (c *Controller) SubmitBatch(jobs []domain.Job, cfg domain.BatchConfig) (*RunHandle, error) {
	normalized, err := cfg.Normalize()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for i, job := range jobs {
		if strings.TrimSpace(job.SourcePath) == "" {
			return nil, fmt.Errorf("%w: job %d has no source path", ErrInvalidConfig, i)
		}
		if strings.TrimSpace(job.OutputDir) == "" {
			return nil, fmt.Errorf("%w: job %d has no output directory", ErrInvalidConfig, i)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run.IsRunning {
		return nil, ErrAlreadyRunning
	}

	runID := c.newID()
	if len(jobs) == 0 {
		handle := newRunHandle(runID, 0, func() {})
		c.publish(events.Event{Type: events.TypeRunCompleted, RunID: runID, Progress: 1})
		handle.finish(Summary{RunID: runID})
		return handle, nil
	}

	loaded, err := c.models.Acquire()
	if err != nil {
		return nil, err
	}

	queued := make([]domain.Job, len(jobs))
	for i, job := range jobs {
		queued[i] = domain.Job{
			ID:         i,
			SourcePath: job.SourcePath,
			OutputDir:  job.OutputDir,
			Status:     domain.JobStatusPending,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.run = domain.BatchRun{
		ID:        runID,
		Jobs:      queued,
		IsRunning: true,
		StartedAt: c.now().UTC(),
	}
	handle := newRunHandle(runID, len(queued), cancel)

	log.Printf("Batch controller: run %s started with %d job(s) on model %s", runID, len(queued), loaded.Handle.Name)
	c.publish(events.Event{
		Type:    events.TypeLog,
		RunID:   runID,
		Level:   events.LevelInfo,
		Message: fmt.Sprintf("starting %d job(s) with model %s", len(queued), loaded.Handle.Name),
	})

	go c.process(ctx, handle, loaded.Model, normalized)
	return handle, nil
}

// process runs every job in order. A job failure never stops the run.
func (c *Controller) process(ctx context.Context, handle *RunHandle, model transcribe.Model, cfg domain.BatchConfig) {
	defer handle.cancel()

	dirs := make(map[string]error)
	for i := 0; i < handle.Total; i++ {
		if ctx.Err() != nil {
			for j := i; j < handle.Total; j++ {
				c.finishJob(handle.ID, j, nil, nil, errRunCancelled)
			}
			break
		}
		c.processJob(ctx, handle.ID, i, model, cfg, dirs)
	}

	handle.finish(c.complete(handle.ID, ctx.Err() != nil))
}

// processJob transcribes one source and writes every requested format.
func (c *Controller) processJob(
	ctx context.Context,
	runID string,
	index int,
	model transcribe.Model,
	cfg domain.BatchConfig,
	dirs map[string]error,
) {
	job, ok := c.startJob(runID, index)
	if !ok {
		return
	}

	if err := c.ensureDir(job.OutputDir, dirs); err != nil {
		c.finishJob(runID, index, nil, nil, err)
		return
	}
	if _, err := c.stat(job.SourcePath); err != nil {
		c.finishJob(runID, index, nil, nil, &TranscriptionError{JobID: job.ID, Path: job.SourcePath, Err: err})
		return
	}

	result, err := model.Transcribe(ctx, job.SourcePath, transcribe.Options{
		Language:       cfg.LanguageHint,
		Task:           cfg.Task,
		WordTimestamps: cfg.WordTimestamps,
		OnLog: func(cmd transcribe.CommandLog) {
			c.publish(events.Event{
				Type:    events.TypeLog,
				RunID:   runID,
				JobID:   index,
				Level:   events.LevelInfo,
				Message: fmt.Sprintf("%s exited with code %d", filepath.Base(cmd.Command), cmd.ExitCode),
			})
		},
	})
	if err != nil {
		c.finishJob(runID, index, nil, nil, &TranscriptionError{JobID: job.ID, Path: job.SourcePath, Err: err})
		return
	}

	paths := make([]string, 0, len(cfg.OutputFormats))
	var writeErrs []error
	for _, format := range cfg.OutputFormats {
		path, err := c.writer.Write(job.OutputDir, job.Stem(), format, result)
		if err != nil {
			writeErrs = append(writeErrs, err)
			continue
		}
		paths = append(paths, path)
	}
	if len(writeErrs) > 0 {
		c.finishJob(runID, index, nil, paths, errors.Join(writeErrs...))
		return
	}
	c.finishJob(runID, index, &result, paths, nil)
}

// ensureDir creates dir once per run and remembers the outcome.
func (c *Controller) ensureDir(dir string, dirs map[string]error) error {
	if err, ok := dirs[dir]; ok {
		return err
	}
	err := c.mkdirAll(dir, 0o755)
	if err != nil {
		err = fmt.Errorf("create output directory %s: %w", dir, err)
	}
	dirs[dir] = err
	return err
}

// startJob moves a pending job to processing and announces it.
func (c *Controller) startJob(runID string, index int) (domain.Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	job := &c.run.Jobs[index]
	if !isValidTransition(job.Status, domain.JobStatusProcessing) {
		log.Printf("Batch controller: job %d cannot start from %s", index, job.Status)
		return domain.Job{}, false
	}
	job.Status = domain.JobStatusProcessing

	c.publish(events.Event{
		Type:       events.TypeJobStatus,
		RunID:      runID,
		JobID:      job.ID,
		SourcePath: job.SourcePath,
		Status:     job.Status,
		Progress:   c.progressLocked(),
	})
	c.publish(events.Event{
		Type:    events.TypeLog,
		RunID:   runID,
		JobID:   job.ID,
		Level:   events.LevelInfo,
		Message: fmt.Sprintf("processing %s", filepath.Base(job.SourcePath)),
	})
	return *job, true
}

// finishJob records the job outcome and emits status and progress events.
func (c *Controller) finishJob(runID string, index int, result *domain.TranscriptionResult, paths []string, jobErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	job := &c.run.Jobs[index]
	status := domain.JobStatusComplete
	if jobErr != nil {
		status = domain.JobStatusFailed
	}
	if !isValidTransition(job.Status, status) {
		log.Printf("Batch controller: invalid transition for job %d: %s -> %s", index, job.Status, status)
		return
	}

	job.Status = status
	job.OutputPaths = paths
	level := events.LevelInfo
	message := fmt.Sprintf("completed %s", filepath.Base(job.SourcePath))
	if jobErr != nil {
		job.Error = jobErr.Error()
		level = events.LevelError
		message = fmt.Sprintf("failed %s: %s", filepath.Base(job.SourcePath), job.Error)
		log.Printf("Batch controller: job %d failed: %v", index, jobErr)
	} else {
		job.Result = result
	}

	c.run.Progress = c.progressLocked()
	c.publish(events.Event{
		Type:        events.TypeJobStatus,
		RunID:       runID,
		JobID:       job.ID,
		SourcePath:  job.SourcePath,
		Status:      job.Status,
		Message:     job.Error,
		Progress:    c.run.Progress,
		OutputPaths: append([]string(nil), paths...),
	})
	c.publish(events.Event{
		Type:    events.TypeLog,
		RunID:   runID,
		JobID:   job.ID,
		Level:   level,
		Message: message,
	})
	c.publish(events.Event{
		Type:     events.TypeProgress,
		RunID:    runID,
		JobID:    job.ID,
		Progress: c.run.Progress,
	})
}

// complete releases the run slot and emits the summary in one step, so a
// follow-up submission always observes the finished run.
func (c *Controller) complete(runID string, cancelled bool) Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	finishedAt := c.now().UTC()
	c.run.IsRunning = false
	c.run.FinishedAt = &finishedAt
	completed, failed, _ := c.run.Counts()

	log.Printf("Batch controller: run %s finished: %d complete, %d failed", runID, completed, failed)
	c.publish(events.Event{
		Type:      events.TypeRunCompleted,
		RunID:     runID,
		Progress:  c.run.Progress,
		Completed: completed,
		Failed:    failed,
	})

	return Summary{
		RunID:     runID,
		Total:     len(c.run.Jobs),
		Completed: completed,
		Failed:    failed,
		Cancelled: cancelled,
	}
}

// progressLocked returns finished jobs over total.
func (c *Controller) progressLocked() float64 {
	if len(c.run.Jobs) == 0 {
		return 0
	}
	finished := 0
	for _, job := range c.run.Jobs {
		if isFinished(job.Status) {
			finished++
		}
	}
	return float64(finished) / float64(len(c.run.Jobs))
}

// Snapshot returns a deep copy of the latest run.
func (c *Controller) Snapshot() domain.BatchRun {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.run
	out.Jobs = make([]domain.Job, len(c.run.Jobs))
	for i, job := range c.run.Jobs {
		job.OutputPaths = append([]string(nil), job.OutputPaths...)
		out.Jobs[i] = job
	}
	if c.run.FinishedAt != nil {
		finishedAt := *c.run.FinishedAt
		out.FinishedAt = &finishedAt
	}
	return out
}

// IsRunning reports whether a run currently holds the slot.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run.IsRunning
}

func (c *Controller) publish(event events.Event) {
	if c.publisher == nil {
		return
	}
	c.publisher.Publish(event)
}
