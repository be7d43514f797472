// Package console renders core events and reports for terminal users.
package console

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"whisper-desktop/internal/domain"
	"whisper-desktop/internal/events"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorSuccess = lipgloss.Color("#22C55E")
	colorError   = lipgloss.Color("#EF4444")
	colorWarning = lipgloss.Color("#F59E0B")
	colorMuted   = lipgloss.Color("#94A3B8")
)

type styles struct {
	header  lipgloss.Style
	success lipgloss.Style
	err     lipgloss.Style
	warning lipgloss.Style
	muted   lipgloss.Style
}

// Printer writes one line per event, styled for the output's color profile.
type Printer struct {
	w       io.Writer
	verbose bool
	styles  styles
}

// NewPrinter detects the color profile of w unless opts override it.
func NewPrinter(w io.Writer, verbose bool, opts ...termenv.OutputOption) *Printer {
	out := termenv.NewOutput(w, opts...)
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(out.Profile)
	return &Printer{
		w:       w,
		verbose: verbose,
		styles: styles{
			header:  r.NewStyle().Bold(true).Foreground(colorPrimary),
			success: r.NewStyle().Foreground(colorSuccess),
			err:     r.NewStyle().Foreground(colorError).Bold(true),
			warning: r.NewStyle().Foreground(colorWarning),
			muted:   r.NewStyle().Foreground(colorMuted),
		},
	}
}

// Event prints a single event. Info logs appear only in verbose mode.
func (p *Printer) Event(event events.Event) {
	line := p.format(event)
	if line == "" {
		return
	}
	fmt.Fprintln(p.w, line)
}

func (p *Printer) format(event events.Event) string {
	s := p.styles
	switch event.Type {
	case events.TypeModelStatus:
		text := fmt.Sprintf("model %s: %s", event.Model, event.ModelState)
		switch event.ModelState {
		case domain.ModelStateReady:
			return s.success.Render(text)
		case domain.ModelStateFailed:
			return s.err.Render(text + ": " + event.Message)
		default:
			return s.muted.Render(text)
		}

	case events.TypeJobStatus:
		name := filepath.Base(event.SourcePath)
		switch event.Status {
		case domain.JobStatusProcessing:
			return fmt.Sprintf("%s %s", s.header.Render(fmt.Sprintf("[%d]", event.JobID+1)), name)
		case domain.JobStatusComplete:
			return fmt.Sprintf("%s %s %s", s.success.Render("ok"), name, s.muted.Render(strings.Join(event.OutputPaths, ", ")))
		case domain.JobStatusFailed:
			return fmt.Sprintf("%s %s: %s", s.err.Render("failed"), name, event.Message)
		}
		return ""

	case events.TypeProgress:
		if !p.verbose {
			return ""
		}
		return s.muted.Render(fmt.Sprintf("progress %.0f%%", event.Progress*100))

	case events.TypeLog:
		switch event.Level {
		case events.LevelError:
			// failures already print through job and model status lines
			if !p.verbose {
				return ""
			}
			return s.err.Render(event.Message)
		case events.LevelWarning:
			return s.warning.Render(event.Message)
		default:
			if !p.verbose {
				return ""
			}
			return s.muted.Render(event.Message)
		}

	case events.TypeRunCompleted:
		text := fmt.Sprintf("done: %d complete, %d failed", event.Completed, event.Failed)
		if event.Failed > 0 {
			return s.warning.Render(text)
		}
		return s.success.Render(text)
	}
	return ""
}

// Diagnostics prints a report, one check per line.
func (p *Printer) Diagnostics(report domain.DiagnosticReport) {
	s := p.styles
	fmt.Fprintln(p.w, s.header.Render("Diagnostics"))
	for _, item := range report.Items {
		var mark string
		switch item.Status {
		case domain.DiagnosticStatusPass:
			mark = s.success.Render("[pass]")
		case domain.DiagnosticStatusWarn:
			mark = s.warning.Render("[warn]")
		default:
			mark = s.err.Render("[fail]")
		}
		fmt.Fprintf(p.w, "%s %s: %s\n", mark, item.Name, item.Message)
		if item.Hint != "" && item.Status != domain.DiagnosticStatusPass {
			fmt.Fprintf(p.w, "       %s\n", s.muted.Render(item.Hint))
		}
	}
}

// Models prints the catalog with installed markers.
func (p *Printer) Models(models []domain.WhisperModelOption, selected string) {
	s := p.styles
	fmt.Fprintln(p.w, s.header.Render("Models"))
	for _, m := range models {
		prefix := "  [ ]"
		if m.Installed {
			prefix = "  " + s.success.Render("[x]")
		}
		id := m.ID
		if m.ID == selected {
			id = s.header.Render(m.ID)
		}
		fmt.Fprintf(p.w, "%s %s - %s %s\n", prefix, id, m.Description, s.muted.Render("["+m.SizeLabel+"]"))
	}
}
