package jobs

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"whisper-desktop/internal/domain"
)

// Supported audio file extensions (lowercase, with leading dot).
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".wma":  true,
}

// SupportedExtensions returns the accepted audio extensions sorted.
func SupportedExtensions() []string {
	exts := lo.Keys(audioExtensions)
	sort.Strings(exts)
	return exts
}

// IsAudioFile reports whether path has a supported audio extension.
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// Discover walks root recursively, collects audio files, and returns them
// sorted lexicographically for deterministic processing order.
func Discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsAudioFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// NewJobs builds pending jobs for paths, skipping blanks and duplicates
// while keeping first-seen order.
func NewJobs(paths []string, outputDir string) []domain.Job {
	cleaned := lo.FilterMap(paths, func(path string, _ int) (string, bool) {
		path = strings.TrimSpace(path)
		if path == "" {
			return "", false
		}
		return filepath.Clean(path), true
	})

	return lo.Map(lo.Uniq(cleaned), func(path string, i int) domain.Job {
		return domain.Job{
			ID:         i,
			SourcePath: path,
			OutputDir:  outputDir,
			Status:     domain.JobStatusPending,
		}
	})
}
