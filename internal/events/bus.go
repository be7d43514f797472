// Package events carries ordered status, progress, and log messages from
// background work to the presentation layer.
package events

import (
	"sync"
	"time"

	"whisper-desktop/internal/domain"
)

// Type classifies messages emitted by the model manager and batch runs.
type Type string

const (
	TypeModelStatus  Type = "model_status"
	TypeJobStatus    Type = "job_status"
	TypeProgress     Type = "progress"
	TypeLog          Type = "log"
	TypeRunCompleted Type = "run_completed"
)

// Level is the severity of a log event.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is a sequenced payload consumed by UI subscribers.
type Event struct {
	Seq         int64             `json:"seq"`
	Timestamp   time.Time         `json:"timestamp"`
	Type        Type              `json:"type"`
	RunID       string            `json:"runId,omitempty"`
	JobID       int               `json:"jobId"`
	SourcePath  string            `json:"sourcePath,omitempty"`
	Status      domain.JobStatus  `json:"status,omitempty"`
	Model       string            `json:"model,omitempty"`
	ModelState  domain.ModelState `json:"modelState,omitempty"`
	Progress    float64           `json:"progress"`
	Level       Level             `json:"level,omitempty"`
	Message     string            `json:"message,omitempty"`
	Completed   int               `json:"completed"`
	Failed      int               `json:"failed"`
	OutputPaths []string          `json:"outputPaths,omitempty"`
}

// Publisher is implemented by anything that accepts events.
type Publisher interface {
	Publish(event Event) Event
}

// Bus stores recent events and fans them out to subscribers in order.
type Bus struct {
	mu          sync.RWMutex
	nextSeq     int64
	maxEvents   int
	events      []Event
	subscribers map[*subscriber]struct{}
}

// NewBus creates a bounded in-memory event history.
func NewBus(maxEvents int) *Bus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &Bus{
		maxEvents:   maxEvents,
		events:      make([]Event, 0, maxEvents),
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Publish appends one event, assigns sequence and timestamp, and queues it
// for every subscriber. It never blocks on slow consumers.
func (b *Bus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		b.events = dropOne(b.events)
	}

	for sub := range b.subscribers {
		sub.push(event)
	}
	return event
}

// dropOne removes the oldest log line, or the oldest event when the history
// holds no log lines.
func dropOne(events []Event) []Event {
	idx := 0
	for i, event := range events {
		if event.Type == TypeLog {
			idx = i
			break
		}
	}
	out := make([]Event, 0, len(events)-1)
	out = append(out, events[:idx]...)
	return append(out, events[idx+1:]...)
}

// Since returns events with sequence strictly greater than seq.
func (b *Bus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// Subscribe returns a channel receiving every event published from now on,
// and a function that detaches the subscriber and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	sub := newSubscriber()

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, sub)
			b.mu.Unlock()
			sub.close()
		})
	}
	return sub.out, cancel
}

// subscriber buffers events in an unbounded FIFO drained by one goroutine.
type subscriber struct {
	mu     sync.Mutex
	queue  []Event
	wake   chan struct{}
	done   chan struct{}
	out    chan Event
	closed bool
}

func newSubscriber() *subscriber {
	s := &subscriber{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		out:  make(chan Event),
	}
	go s.pump()
	return s
}

func (s *subscriber) push(event Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, event)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	s.mu.Unlock()
}

// pump forwards queued events to out until the subscriber is closed.
func (s *subscriber) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, event := range batch {
			select {
			case s.out <- event:
			case <-s.done:
				return
			}
		}

		if len(batch) > 0 {
			continue
		}
		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}
