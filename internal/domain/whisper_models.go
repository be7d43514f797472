package domain

// WhisperModelOption describes one whisper.cpp model variant the engine can load.
type WhisperModelOption struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FileName     string `json:"fileName"`
	SizeLabel    string `json:"sizeLabel,omitempty"`
	Description  string `json:"description,omitempty"`
	Multilingual bool   `json:"multilingual"`
	Installed    bool   `json:"installed"`
	LocalPath    string `json:"localPath,omitempty"`
}
