package jobs

import (
	"os"
	"path/filepath"
	"testing"

	"whisper-desktop/internal/domain"
)

// TestDiscoverFindsAudioRecursively verifies extension filtering and order.
func TestDiscoverFindsAudioRecursively(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"b.mp3",
		"a.WAV",
		"notes.txt",
		filepath.Join("sub", "c.flac"),
		filepath.Join("sub", "deeper", "d.opus"),
		filepath.Join("sub", "cover.jpg"),
	} {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	got, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want := []string{
		filepath.Join(root, "a.WAV"),
		filepath.Join(root, "b.mp3"),
		filepath.Join(root, "sub", "c.flac"),
		filepath.Join(root, "sub", "deeper", "d.opus"),
	}
	if len(got) != len(want) {
		t.Fatalf("Discover() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Discover()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestDiscoverMissingRoot verifies walk errors surface.
func TestDiscoverMissingRoot(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

// TestNewJobsSkipsDuplicates verifies dedupe and index assignment.
func TestNewJobsSkipsDuplicates(t *testing.T) {
	jobs := NewJobs([]string{"/a/x.mp3", " ", "/a/y.mp3", "/a/./x.mp3"}, "/out")

	if len(jobs) != 2 {
		t.Fatalf("jobs = %+v, want 2", jobs)
	}
	for i, want := range []string{"/a/x.mp3", "/a/y.mp3"} {
		job := jobs[i]
		if job.ID != i || job.SourcePath != want || job.OutputDir != "/out" || job.Status != domain.JobStatusPending {
			t.Fatalf("job %d = %+v", i, job)
		}
	}
}

// TestSupportedExtensions verifies the accepted audio set.
func TestSupportedExtensions(t *testing.T) {
	got := SupportedExtensions()
	if len(got) != 7 || got[0] != ".flac" || got[len(got)-1] != ".wma" {
		t.Fatalf("SupportedExtensions() = %v", got)
	}
	if !IsAudioFile("/music/Song.OGG") || IsAudioFile("/music/song.mp4") {
		t.Fatal("unexpected IsAudioFile result")
	}
}

// TestJobTransitions verifies the job state machine edges.
func TestJobTransitions(t *testing.T) {
	cases := []struct {
		from, to domain.JobStatus
		ok       bool
	}{
		{domain.JobStatusPending, domain.JobStatusProcessing, true},
		{domain.JobStatusPending, domain.JobStatusFailed, true},
		{domain.JobStatusPending, domain.JobStatusComplete, false},
		{domain.JobStatusProcessing, domain.JobStatusComplete, true},
		{domain.JobStatusProcessing, domain.JobStatusFailed, true},
		{domain.JobStatusComplete, domain.JobStatusProcessing, false},
		{domain.JobStatusFailed, domain.JobStatusPending, false},
	}
	for _, tc := range cases {
		if got := isValidTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("isValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}
