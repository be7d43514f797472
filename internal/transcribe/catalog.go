package transcribe

import (
	"os"
	"path/filepath"
	"strings"

	"whisper-desktop/internal/domain"
)

var whisperModelCatalog = []domain.WhisperModelOption{
	{ID: "tiny.en", Name: "Tiny (English)", FileName: "ggml-tiny.en.bin", SizeLabel: "~75 MB", Description: "Fastest, English-only model."},
	{ID: "tiny", Name: "Tiny", FileName: "ggml-tiny.bin", SizeLabel: "~75 MB", Description: "Fastest multilingual model.", Multilingual: true},
	{ID: "base.en", Name: "Base (English)", FileName: "ggml-base.en.bin", SizeLabel: "~142 MB", Description: "Balanced speed/quality, English-only."},
	{ID: "base", Name: "Base", FileName: "ggml-base.bin", SizeLabel: "~142 MB", Description: "Balanced speed/quality, multilingual.", Multilingual: true},
	{ID: "small.en", Name: "Small (English)", FileName: "ggml-small.en.bin", SizeLabel: "~466 MB", Description: "Higher quality, English-only."},
	{ID: "small", Name: "Small", FileName: "ggml-small.bin", SizeLabel: "~466 MB", Description: "Higher quality multilingual model.", Multilingual: true},
	{ID: "medium.en", Name: "Medium (English)", FileName: "ggml-medium.en.bin", SizeLabel: "~1.5 GB", Description: "High quality, English-only."},
	{ID: "medium", Name: "Medium", FileName: "ggml-medium.bin", SizeLabel: "~1.5 GB", Description: "High quality multilingual model.", Multilingual: true},
	{ID: "large", Name: "Large", FileName: "ggml-large-v3.bin", SizeLabel: "~2.9 GB", Description: "Alias for large-v3.", Multilingual: true},
	{ID: "large-v2", Name: "Large v2", FileName: "ggml-large-v2.bin", SizeLabel: "~2.9 GB", Description: "Very high quality multilingual model.", Multilingual: true},
	{ID: "large-v3", Name: "Large v3", FileName: "ggml-large-v3.bin", SizeLabel: "~2.9 GB", Description: "Latest large multilingual model.", Multilingual: true},
	{ID: "large-v3-turbo", Name: "Large v3 Turbo", FileName: "ggml-large-v3-turbo.bin", SizeLabel: "~1.6 GB", Description: "Faster large-v3 variant.", Multilingual: true},
}

// Catalog returns the known model variants, marking those present in modelsDir.
func Catalog(modelsDir string) []domain.WhisperModelOption {
	models := make([]domain.WhisperModelOption, len(whisperModelCatalog))
	copy(models, whisperModelCatalog)

	for i := range models {
		candidate := filepath.Join(modelsDir, models[i].FileName)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() || info.Size() == 0 {
			continue
		}
		models[i].Installed = true
		models[i].LocalPath = candidate
	}
	return models
}

// LookupModel finds a catalog entry by ID.
func LookupModel(id string) (domain.WhisperModelOption, bool) {
	for _, model := range whisperModelCatalog {
		if model.ID == id {
			return model, true
		}
	}
	return domain.WhisperModelOption{}, false
}

// isModelFile reports whether name has a whisper.cpp model extension.
func isModelFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".bin" || ext == ".gguf"
}
