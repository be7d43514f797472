package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"

	"whisper-desktop/internal/domain"
	"whisper-desktop/internal/events"
)

func plainPrinter(verbose bool) (*Printer, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewPrinter(&buf, verbose, termenv.WithProfile(termenv.Ascii)), &buf
}

// TestPrinterRunLines verifies job and summary lines.
func TestPrinterRunLines(t *testing.T) {
	p, buf := plainPrinter(false)

	p.Event(events.Event{Type: events.TypeModelStatus, Model: "base", ModelState: domain.ModelStateReady})
	p.Event(events.Event{Type: events.TypeJobStatus, JobID: 0, SourcePath: "/in/a.mp3", Status: domain.JobStatusProcessing})
	p.Event(events.Event{Type: events.TypeJobStatus, JobID: 0, SourcePath: "/in/a.mp3", Status: domain.JobStatusComplete, OutputPaths: []string{"/out/a.txt"}})
	p.Event(events.Event{Type: events.TypeJobStatus, JobID: 1, SourcePath: "/in/b.mp3", Status: domain.JobStatusFailed, Message: "boom"})
	p.Event(events.Event{Type: events.TypeRunCompleted, Completed: 1, Failed: 1})

	want := strings.Join([]string{
		"model base: ready",
		"[1] a.mp3",
		"ok a.mp3 /out/a.txt",
		"failed b.mp3: boom",
		"done: 1 complete, 1 failed",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Fatalf("output =\n%s\nwant\n%s", got, want)
	}
}

// TestPrinterVerboseLogs verifies info logs and progress need verbose mode.
func TestPrinterVerboseLogs(t *testing.T) {
	quiet, quietBuf := plainPrinter(false)
	loud, loudBuf := plainPrinter(true)

	for _, p := range []*Printer{quiet, loud} {
		p.Event(events.Event{Type: events.TypeLog, Level: events.LevelInfo, Message: "ffmpeg exited with code 0"})
		p.Event(events.Event{Type: events.TypeProgress, Progress: 0.5})
	}

	if quietBuf.Len() != 0 {
		t.Fatalf("quiet output = %q", quietBuf.String())
	}
	if got := loudBuf.String(); !strings.Contains(got, "ffmpeg exited") || !strings.Contains(got, "progress 50%") {
		t.Fatalf("verbose output = %q", got)
	}
}

// TestPrinterDiagnosticsAndModels verifies report rendering.
func TestPrinterDiagnosticsAndModels(t *testing.T) {
	p, buf := plainPrinter(false)

	p.Diagnostics(domain.DiagnosticReport{Items: []domain.DiagnosticItem{
		{Name: "ffmpeg", Status: domain.DiagnosticStatusPass, Message: "Found at /usr/bin/ffmpeg"},
		{Name: "Model", Status: domain.DiagnosticStatusFail, Message: "Model base is not installed", Hint: "Download it."},
	}})
	p.Models([]domain.WhisperModelOption{
		{ID: "base", Description: "Balanced.", SizeLabel: "~142 MB", Installed: true},
		{ID: "tiny", Description: "Fastest.", SizeLabel: "~75 MB"},
	}, "base")

	got := buf.String()
	for _, want := range []string{
		"[pass] ffmpeg: Found at /usr/bin/ffmpeg",
		"[fail] Model: Model base is not installed",
		"Download it.",
		"  [x] base - Balanced. [~142 MB]",
		"  [ ] tiny - Fastest. [~75 MB]",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}
