// Package export serializes transcription results into txt, json, srt, and
// vtt files.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"whisper-desktop/internal/domain"
)

// Encode renders result in the given format.
func Encode(format domain.OutputFormat, result domain.TranscriptionResult) ([]byte, error) {
	switch format {
	case domain.FormatTXT:
		return EncodeText(result), nil
	case domain.FormatJSON:
		return EncodeJSON(result)
	case domain.FormatSRT:
		return EncodeSRT(result), nil
	case domain.FormatVTT:
		return EncodeVTT(result), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFormat, format)
	}
}

// EncodeText returns the transcript text verbatim.
func EncodeText(result domain.TranscriptionResult) []byte {
	return []byte(result.Text)
}

// EncodeJSON returns an indented, lossless JSON dump of result.
func EncodeJSON(result domain.TranscriptionResult) ([]byte, error) {
	if result.Segments == nil {
		result.Segments = []domain.Segment{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return nil, fmt.Errorf("encode json transcript: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeJSON parses output produced by EncodeJSON.
func DecodeJSON(data []byte) (domain.TranscriptionResult, error) {
	var result domain.TranscriptionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("decode json transcript: %w", err)
	}
	return result, nil
}

// EncodeSRT renders numbered SubRip cues, one per segment.
func EncodeSRT(result domain.TranscriptionResult) []byte {
	var b strings.Builder
	for i, seg := range result.Segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", TimestampSRT(seg.Start), TimestampSRT(seg.End))
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(seg.Text))
	}
	return []byte(b.String())
}

// EncodeVTT renders a WebVTT document, one cue per segment.
func EncodeVTT(result domain.TranscriptionResult) []byte {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, seg := range result.Segments {
		fmt.Fprintf(&b, "%s --> %s\n", TimestampVTT(seg.Start), TimestampVTT(seg.End))
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(seg.Text))
	}
	return []byte(b.String())
}

// TimestampSRT formats seconds as HH:MM:SS,mmm.
func TimestampSRT(seconds float64) string {
	return formatTimestamp(seconds, ',')
}

// TimestampVTT formats seconds as HH:MM:SS.mmm.
func TimestampVTT(seconds float64) string {
	return formatTimestamp(seconds, '.')
}

// formatTimestamp floors to whole milliseconds before splitting into fields.
func formatTimestamp(seconds float64, sep byte) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}

	// 1e-6 absorbs binary representation error, e.g. 59.999 -> 59998.999...
	total := int64(math.Floor(seconds*1000 + 1e-6))
	hours := total / 3_600_000
	minutes := (total % 3_600_000) / 60_000
	secs := (total % 60_000) / 1000
	millis := total % 1000

	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, secs, sep, millis)
}
