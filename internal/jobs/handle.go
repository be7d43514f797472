package jobs

import (
	"context"
	"sync"
)

// Summary reports how a run ended.
type Summary struct {
	RunID     string `json:"runId"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Cancelled bool   `json:"cancelled"`
}

// RunHandle lets the submitter observe or cancel one run.
type RunHandle struct {
	ID    string
	Total int

	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	summary Summary
}

func newRunHandle(id string, total int, cancel context.CancelFunc) *RunHandle {
	return &RunHandle{
		ID:     id,
		Total:  total,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// finish stores the summary and releases waiters exactly once.
func (h *RunHandle) finish(summary Summary) {
	h.once.Do(func() {
		h.summary = summary
		close(h.done)
	})
}

// Done is closed when the run has completed.
func (h *RunHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run completes or ctx is done.
func (h *RunHandle) Wait(ctx context.Context) (Summary, error) {
	select {
	case <-h.done:
		return h.summary, nil
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	}
}

// Cancel stops the run after the current job; unreached jobs fail.
func (h *RunHandle) Cancel() {
	h.cancel()
}
