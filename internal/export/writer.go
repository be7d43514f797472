package export

import (
	"fmt"
	"os"
	"path/filepath"

	"whisper-desktop/internal/domain"
)

// WriteError is an I/O failure while exporting one format.
type WriteError struct {
	Format domain.OutputFormat `json:"format"`
	Path   string              `json:"path"`
	Err    error               `json:"-"`
}

// Error formats write failures for logs and UI.
func (e *WriteError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("write %s output %s: %v", e.Format, e.Path, e.Err)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *WriteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Writer stores encoded results as <dir>/<stem>.<ext> with atomic renames.
type Writer struct {
	createTemp func(dir, pattern string) (*os.File, error)
	rename     func(oldpath, newpath string) error
	remove     func(name string) error
}

// NewWriter constructs a writer backed by the real filesystem.
func NewWriter() *Writer {
	return &Writer{
		createTemp: os.CreateTemp,
		rename:     os.Rename,
		remove:     os.Remove,
	}
}

// Path returns the destination file for one format.
func Path(dir, stem string, format domain.OutputFormat) string {
	return filepath.Join(dir, stem+format.Ext())
}

// Write encodes result and writes it to its destination. The destination
// either receives complete content or is left untouched.
func (w *Writer) Write(dir, stem string, format domain.OutputFormat, result domain.TranscriptionResult) (string, error) {
	target := Path(dir, stem, format)
	data, err := Encode(format, result)
	if err != nil {
		return "", &WriteError{Format: format, Path: target, Err: err}
	}

	if err := w.writeAtomic(target, data); err != nil {
		return "", &WriteError{Format: format, Path: target, Err: err}
	}
	return target, nil
}

// writeAtomic writes to a sibling temp file and renames it over target.
func (w *Writer) writeAtomic(target string, data []byte) error {
	tmp, err := w.createTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = w.remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = w.remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = w.remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := w.rename(tmpPath, target); err != nil {
		_ = w.remove(tmpPath)
		return fmt.Errorf("finalize file: %w", err)
	}
	return nil
}

// NewWriterForTests constructs a writer with injectable filesystem calls.
func NewWriterForTests(
	createTemp func(dir, pattern string) (*os.File, error),
	rename func(oldpath, newpath string) error,
) *Writer {
	return &Writer{
		createTemp: createTemp,
		rename:     rename,
		remove:     os.Remove,
	}
}
