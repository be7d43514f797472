package models

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"whisper-desktop/internal/domain"
	"whisper-desktop/internal/events"
	"whisper-desktop/internal/transcribe"
)

// fakeModel remembers which identifier produced it.
type fakeModel struct {
	id string
}

// Transcribe returns a fixed result naming the model.
func (m *fakeModel) Transcribe(ctx context.Context, path string, opts transcribe.Options) (domain.TranscriptionResult, error) {
	return domain.TranscriptionResult{Text: m.id}, nil
}

// fakeLoader records load calls and can block or fail per identifier.
type fakeLoader struct {
	mu      sync.Mutex
	calls   []string
	gates   map[string]chan struct{}
	errs    map[string]error
	started chan string
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		gates:   make(map[string]chan struct{}),
		errs:    make(map[string]error),
		started: make(chan string, 16),
	}
}

// Load blocks on the identifier gate when one is registered.
func (f *fakeLoader) Load(ctx context.Context, modelID string) (transcribe.Model, error) {
	f.mu.Lock()
	f.calls = append(f.calls, modelID)
	gate := f.gates[modelID]
	err := f.errs[modelID]
	f.mu.Unlock()

	f.started <- modelID
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &fakeModel{id: modelID}, nil
}

func (f *fakeLoader) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

func waitIdle(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func waitStarted(t *testing.T, f *fakeLoader, want string) {
	t.Helper()
	select {
	case got := <-f.started:
		if got != want {
			t.Fatalf("load started for %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for load of %q", want)
	}
}

// TestManagerStartsUnloaded verifies the initial handle and readiness.
func TestManagerStartsUnloaded(t *testing.T) {
	m := NewManager(newFakeLoader(), events.NewBus(10))

	if m.IsReady() {
		t.Fatal("new manager must not be ready")
	}
	if got := m.Current().State; got != domain.ModelStateUnloaded {
		t.Fatalf("state = %s, want unloaded", got)
	}
	if _, err := m.Acquire(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Acquire() error = %v, want ErrNotReady", err)
	}
}

// TestManagerLoadSuccess verifies adoption and emitted status events.
func TestManagerLoadSuccess(t *testing.T) {
	bus := events.NewBus(50)
	m := NewManager(newFakeLoader(), bus)

	m.RequestLoad("base")
	waitIdle(t, m)

	if !m.IsReady() || m.Current().Name != "base" {
		t.Fatalf("current = %+v, want ready base", m.Current())
	}
	loaded, err := m.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if loaded.Model.(*fakeModel).id != "base" {
		t.Fatalf("acquired model = %+v", loaded.Model)
	}

	var states []domain.ModelState
	for _, event := range bus.Since(0) {
		if event.Type == events.TypeModelStatus {
			states = append(states, event.ModelState)
		}
	}
	if len(states) != 2 || states[0] != domain.ModelStateLoading || states[1] != domain.ModelStateReady {
		t.Fatalf("status events = %v, want [loading ready]", states)
	}
}

// TestManagerLatestRequestWins verifies a superseded load is discarded.
func TestManagerLatestRequestWins(t *testing.T) {
	loader := newFakeLoader()
	gate := make(chan struct{})
	loader.gates["small"] = gate
	m := NewManager(loader, events.NewBus(50))

	m.RequestLoad("small")
	waitStarted(t, loader, "small")
	m.RequestLoad("tiny")
	m.RequestLoad("medium")

	if got := m.Status().Pending; got != "medium" {
		t.Fatalf("pending = %q, want medium", got)
	}
	if m.IsReady() {
		t.Fatal("manager must not be ready while the first load is in flight")
	}

	close(gate)
	waitIdle(t, m)

	if got := m.Current().Name; got != "medium" {
		t.Fatalf("current = %q, want medium", got)
	}
	calls := loader.Calls()
	if len(calls) != 2 || calls[0] != "small" || calls[1] != "medium" {
		t.Fatalf("load calls = %v, want [small medium]", calls)
	}
}

// TestManagerLoadFailureKeepsCurrent verifies failures never replace the
// adopted model.
func TestManagerLoadFailureKeepsCurrent(t *testing.T) {
	bus := events.NewBus(50)
	loader := newFakeLoader()
	loader.errs["large"] = errors.New("out of memory")
	m := NewManager(loader, bus)

	m.RequestLoad("base")
	waitIdle(t, m)
	m.RequestLoad("large")
	waitIdle(t, m)

	if got := m.Current(); got.Name != "base" || got.State != domain.ModelStateReady {
		t.Fatalf("current = %+v, want ready base", got)
	}
	status := m.Status()
	if status.LastError == "" || status.Pending != "" {
		t.Fatalf("status = %+v, want last error and no pending", status)
	}

	var failed, errorLogs int
	for _, event := range bus.Since(0) {
		if event.Type == events.TypeModelStatus && event.ModelState == domain.ModelStateFailed {
			failed++
			if event.Model != "large" {
				t.Fatalf("failed event model = %q", event.Model)
			}
		}
		if event.Type == events.TypeLog && event.Level == events.LevelError {
			errorLogs++
		}
	}
	if failed != 1 || errorLogs != 1 {
		t.Fatalf("failed events = %d, error logs = %d", failed, errorLogs)
	}
}

// TestManagerSameModelIsNoop verifies re-requesting the ready model does not
// reload it.
func TestManagerSameModelIsNoop(t *testing.T) {
	loader := newFakeLoader()
	m := NewManager(loader, events.NewBus(50))

	m.RequestLoad("base")
	waitIdle(t, m)
	m.RequestLoad(" base ")
	waitIdle(t, m)

	if calls := loader.Calls(); len(calls) != 1 {
		t.Fatalf("load calls = %v, want one", calls)
	}
}

// TestManagerEmptyIDRejected verifies empty identifiers become error events.
func TestManagerEmptyIDRejected(t *testing.T) {
	bus := events.NewBus(10)
	loader := newFakeLoader()
	m := NewManager(loader, bus)

	m.RequestLoad("  ")
	waitIdle(t, m)

	if calls := loader.Calls(); len(calls) != 0 {
		t.Fatalf("load calls = %v, want none", calls)
	}
	got := bus.Since(0)
	if len(got) != 1 || got[0].Level != events.LevelError {
		t.Fatalf("events = %+v, want one error log", got)
	}
}

// TestAcquireIsFrozenAcrossSwap verifies an acquired model survives a swap.
func TestAcquireIsFrozenAcrossSwap(t *testing.T) {
	m := NewManager(newFakeLoader(), events.NewBus(50))

	m.RequestLoad("base")
	waitIdle(t, m)
	held, err := m.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	m.RequestLoad("small")
	waitIdle(t, m)

	if held.Handle.Name != "base" || held.Model.(*fakeModel).id != "base" {
		t.Fatalf("held = %+v, want base", held)
	}
	if m.Current().Name != "small" {
		t.Fatalf("current = %q, want small", m.Current().Name)
	}
}

// TestLoadErrorUnwrap verifies errors.Is reaches the engine cause.
func TestLoadErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := error(&LoadError{Model: "tiny", Err: cause})
	if !errors.Is(err, cause) {
		t.Fatal("expected LoadError to unwrap cause")
	}
	if err.Error() != "load model tiny: boom" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
