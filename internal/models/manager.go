// Package models owns the single loaded recognition model and its
// asynchronous load lifecycle.
package models

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"whisper-desktop/internal/domain"
	"whisper-desktop/internal/events"
	"whisper-desktop/internal/transcribe"
)

// ErrNotReady is returned by Acquire before any load has succeeded.
var ErrNotReady = errors.New("model not ready")

// Loader initializes a recognition model by identifier.
type Loader interface {
	Load(ctx context.Context, modelID string) (transcribe.Model, error)
}

// LoadError reports that the engine failed to initialize a model.
type LoadError struct {
	Model string
	Err   error
}

// Error formats the failed model and cause.
func (e *LoadError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("load model %s: %v", e.Model, e.Err)
}

// Unwrap exposes the engine error.
func (e *LoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Loaded pairs the adopted handle with its model instance. A run holds one
// Loaded for its whole duration, so later swaps never reach it.
type Loaded struct {
	Handle domain.ModelHandle
	Model  transcribe.Model
}

// Manager loads models one at a time and adopts only the latest request.
type Manager struct {
	loader    Loader
	publisher events.Publisher
	ctx       context.Context
	cancel    context.CancelFunc

	mu      sync.Mutex
	current domain.ModelHandle
	model   transcribe.Model
	target  string
	loading string
	lastErr string
	idle    chan struct{}
}

// NewManager creates a manager with no model loaded.
func NewManager(loader Loader, publisher events.Publisher) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	return &Manager{
		loader:    loader,
		publisher: publisher,
		ctx:       ctx,
		cancel:    cancel,
		current:   domain.ModelHandle{State: domain.ModelStateUnloaded},
		idle:      idle,
	}
}

// RequestLoad starts loading modelID without blocking. While a load is in
// flight the request only replaces the pending target; the worker loads it
// next and discards the superseded result.
func (m *Manager) RequestLoad(modelID string) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		m.publish(events.Event{
			Type:    events.TypeLog,
			Level:   events.LevelError,
			Message: "model load rejected: model id is required",
		})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.target = id
	if m.loading != "" {
		m.publishStatusLocked(id, domain.ModelStateLoading, "")
		return
	}
	if m.current.State == domain.ModelStateReady && m.current.Name == id {
		m.publishStatusLocked(id, domain.ModelStateReady, "")
		return
	}

	m.loading = id
	m.idle = make(chan struct{})
	m.publishStatusLocked(id, domain.ModelStateLoading, "")
	go m.run(id)
}

// run is the single load worker. It keeps loading until the model it just
// finished is still the latest requested one.
func (m *Manager) run(id string) {
	for {
		log.Printf("Model manager: loading %s", id)
		model, err := m.loader.Load(m.ctx, id)

		m.mu.Lock()
		if m.target != id {
			next := m.target
			log.Printf("Model manager: discarding %s, superseded by %s", id, next)
			m.publishLogLocked(events.LevelInfo, fmt.Sprintf("discarded model %s, superseded by %s", id, next))

			if m.current.State == domain.ModelStateReady && m.current.Name == next {
				m.publishStatusLocked(next, domain.ModelStateReady, "")
				m.finishLocked()
				m.mu.Unlock()
				return
			}

			id = next
			m.loading = id
			m.publishStatusLocked(id, domain.ModelStateLoading, "")
			m.mu.Unlock()
			continue
		}

		if err != nil {
			loadErr := &LoadError{Model: id, Err: err}
			log.Printf("Model manager: %v", loadErr)
			m.lastErr = loadErr.Error()
			m.publishStatusLocked(id, domain.ModelStateFailed, m.lastErr)
			m.publishLogLocked(events.LevelError, m.lastErr)
		} else {
			m.current = domain.ModelHandle{Name: id, State: domain.ModelStateReady}
			m.model = model
			m.lastErr = ""
			log.Printf("Model manager: %s ready", id)
			m.publishStatusLocked(id, domain.ModelStateReady, "")
			m.publishLogLocked(events.LevelInfo, fmt.Sprintf("model %s loaded", id))
		}

		m.finishLocked()
		m.mu.Unlock()
		return
	}
}

// finishLocked marks the worker idle and releases waiters.
func (m *Manager) finishLocked() {
	m.loading = ""
	close(m.idle)
}

// Current returns the last successfully loaded handle, or an unloaded one.
func (m *Manager) Current() domain.ModelHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsReady reports whether a model can serve runs.
func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.State == domain.ModelStateReady
}

// Status returns a consistent snapshot for the presentation layer.
func (m *Manager) Status() domain.ModelStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := domain.ModelStatus{
		Current:   m.current,
		LastError: m.lastErr,
	}
	if m.loading != "" {
		status.Pending = m.target
	}
	return status
}

// Acquire returns the adopted model for the duration of one run.
func (m *Manager) Acquire() (Loaded, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.State != domain.ModelStateReady || m.model == nil {
		return Loaded{}, ErrNotReady
	}
	return Loaded{Handle: m.current, Model: m.model}, nil
}

// Wait blocks until no load is in flight or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	idle := m.idle
	m.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels any in-flight load.
func (m *Manager) Close() {
	m.cancel()
}

func (m *Manager) publishStatusLocked(id string, state domain.ModelState, message string) {
	m.publish(events.Event{
		Type:       events.TypeModelStatus,
		Model:      id,
		ModelState: state,
		Message:    message,
	})
}

func (m *Manager) publishLogLocked(level events.Level, message string) {
	m.publish(events.Event{
		Type:    events.TypeLog,
		Level:   level,
		Message: message,
	})
}

func (m *Manager) publish(event events.Event) {
	if m.publisher == nil {
		return
	}
	m.publisher.Publish(event)
}
