// Package bootstrap wires configuration, the model manager, and the batch
// controller into the Wails desktop runtime.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"whisper-desktop/internal/config"
	"whisper-desktop/internal/diagnostics"
	"whisper-desktop/internal/domain"
	"whisper-desktop/internal/events"
	"whisper-desktop/internal/jobs"
	"whisper-desktop/internal/models"
	"whisper-desktop/internal/transcribe"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// EventName is the runtime event carrying every core event to the frontend.
const EventName = "core:event"

// ErrNoActiveRun is returned when cancel is requested while idle.
var ErrNoActiveRun = errors.New("no active run")

// settingsSource supplies the current settings.
type settingsSource interface {
	Settings() domain.Settings
}

// App exposes the transcription core to the desktop frontend.
type App struct {
	settings   settingsSource
	watcher    *config.Watcher
	models     *models.Manager
	controller *jobs.Controller
	bus        *events.Bus
	checker    *diagnostics.Checker
	assets     fs.FS

	mu          sync.Mutex
	diagnostics domain.DiagnosticReport
	runtimeCtx  context.Context
	handle      *jobs.RunHandle
	unsubscribe func()
	stopWatch   context.CancelFunc
}

// New builds the application from the user config file.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	watcher, err := config.NewWatcher(path)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	app := newApp(watcher, transcribe.NewWhisperCPP(watcher.Settings()), diagnostics.NewChecker())
	app.watcher = watcher
	app.assets = assets
	watcher.OnChange(app.settingsChanged)
	return app, nil
}

// newApp assembles the core around a settings source and model loader.
func newApp(settings settingsSource, loader models.Loader, checker *diagnostics.Checker) *App {
	bus := events.NewBus(1000)
	manager := models.NewManager(loader, bus)

	return &App{
		settings:    settings,
		models:      manager,
		controller:  jobs.NewController(manager, bus),
		bus:         bus,
		checker:     checker,
		diagnostics: checker.Run(settings.Settings()),
	}
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Whisper Desktop",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores the runtime context, starts pushing events, and loads the
// configured model.
func (a *App) Startup(ctx context.Context) {
	ch, unsubscribe := a.bus.Subscribe()

	a.mu.Lock()
	a.runtimeCtx = ctx
	a.unsubscribe = unsubscribe
	a.mu.Unlock()
	go a.forwardEvents(ch)

	if a.watcher != nil {
		watchCtx, cancel := context.WithCancel(context.Background())
		if err := a.watcher.Start(watchCtx); err != nil {
			log.Printf("App: config watcher disabled: %v", err)
			cancel()
		} else {
			a.mu.Lock()
			a.stopWatch = cancel
			a.mu.Unlock()
		}
	}

	a.models.RequestLoad(a.settings.Settings().Model)
}

// Shutdown stops background work owned by the app.
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = nil
	unsubscribe := a.unsubscribe
	stopWatch := a.stopWatch
	handle := a.handle
	a.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if stopWatch != nil {
		stopWatch()
		a.watcher.Stop()
	}
	if handle != nil {
		handle.Cancel()
	}
	a.models.Close()
}

// forwardEvents pushes bus events to the frontend in publish order.
func (a *App) forwardEvents(ch <-chan events.Event) {
	for event := range ch {
		a.mu.Lock()
		ctx := a.runtimeCtx
		a.mu.Unlock()
		if ctx != nil {
			wailsruntime.EventsEmit(ctx, EventName, event)
		}
	}
}

// settingsChanged refreshes diagnostics and follows a changed model choice.
func (a *App) settingsChanged(settings domain.Settings) {
	report := a.checker.Run(settings)
	a.mu.Lock()
	a.diagnostics = report
	a.mu.Unlock()

	a.bus.Publish(events.Event{
		Type:    events.TypeLog,
		Level:   events.LevelInfo,
		Message: "settings reloaded",
	})
	if settings.Model != a.models.Current().Name {
		a.models.RequestLoad(settings.Model)
	}
}

// RequestModelLoad starts loading a model without blocking the UI.
func (a *App) RequestModelLoad(modelID string) {
	a.models.RequestLoad(modelID)
}

// ModelStatus returns the current model, pending target, and last error.
func (a *App) ModelStatus() domain.ModelStatus {
	return a.models.Status()
}

// DefaultConfig returns the run configuration implied by settings.
func (a *App) DefaultConfig() domain.BatchConfig {
	return a.settings.Settings().BatchConfig()
}

// SubmitSingle starts a run for one file and returns its run ID.
func (a *App) SubmitSingle(path, outputDir string, cfg domain.BatchConfig) (string, error) {
	queued := jobs.NewJobs([]string{path}, a.outputDir(outputDir))
	if len(queued) == 0 {
		return "", fmt.Errorf("%w: input path is empty", jobs.ErrInvalidConfig)
	}
	handle, err := a.controller.SubmitSingle(queued[0], cfg)
	return a.track(handle, err)
}

// SubmitBatch starts a run for files in the given order and returns its run ID.
func (a *App) SubmitBatch(paths []string, outputDir string, cfg domain.BatchConfig) (string, error) {
	handle, err := a.controller.SubmitBatch(jobs.NewJobs(paths, a.outputDir(outputDir)), cfg)
	return a.track(handle, err)
}

func (a *App) track(handle *jobs.RunHandle, err error) (string, error) {
	if err != nil {
		return "", err
	}
	a.mu.Lock()
	a.handle = handle
	a.mu.Unlock()
	return handle.ID, nil
}

// outputDir falls back to the configured directory.
func (a *App) outputDir(dir string) string {
	if dir = strings.TrimSpace(dir); dir != "" {
		return dir
	}
	return a.settings.Settings().OutputDir
}

// CancelRun stops the active run after its current job.
func (a *App) CancelRun() error {
	a.mu.Lock()
	handle := a.handle
	a.mu.Unlock()

	if handle == nil || !a.controller.IsRunning() {
		return ErrNoActiveRun
	}
	handle.Cancel()
	return nil
}

// RunSnapshot returns the state of the latest run.
func (a *App) RunSnapshot() domain.BatchRun {
	return a.controller.Snapshot()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []events.Event {
	return a.bus.Since(sinceSeq)
}

// GetSettings returns the settings currently in effect.
func (a *App) GetSettings() domain.Settings {
	return a.settings.Settings()
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.diagnostics
}

// RefreshDiagnostics reruns dependency checks against current settings.
func (a *App) RefreshDiagnostics() domain.DiagnosticReport {
	report := a.checker.Run(a.settings.Settings())
	a.mu.Lock()
	a.diagnostics = report
	a.mu.Unlock()
	return report
}

// GetWhisperModels lists known models and marks the installed ones.
func (a *App) GetWhisperModels() []domain.WhisperModelOption {
	return transcribe.Catalog(a.settings.Settings().ModelsDir)
}

// DiscoverFolder lists supported audio files under root.
func (a *App) DiscoverFolder(root string) ([]string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("folder path is empty")
	}
	return jobs.Discover(root)
}
