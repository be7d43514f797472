// Package transcribe adapts the whisper.cpp command line tools to the
// recognition engine contract used by the batch core.
package transcribe

import (
	"context"

	"whisper-desktop/internal/domain"
)

// Options are per-call decoding settings.
type Options struct {
	// Language forces decoding in one language; empty means auto-detect.
	Language       string
	Task           domain.Task
	WordTimestamps bool
	OnLog          func(log CommandLog)
}

// Model transcribes audio files with one loaded model variant.
// Implementations are not assumed safe for concurrent calls.
type Model interface {
	Transcribe(ctx context.Context, path string, opts Options) (domain.TranscriptionResult, error)
}

// Engine loads models by identifier.
type Engine interface {
	Load(ctx context.Context, modelID string) (Model, error)
}
