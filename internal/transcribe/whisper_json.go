package transcribe

import (
	"encoding/json"
	"strings"

	"whisper-desktop/internal/domain"
)

// whisperOffsets are millisecond offsets as written by whisper-cli.
type whisperOffsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type whisperToken struct {
	Text    string         `json:"text"`
	Offsets whisperOffsets `json:"offsets"`
	P       float64        `json:"p"`
}

// whisperOutput mirrors the parts of whisper-cli -oj/-ojf output we consume.
type whisperOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets whisperOffsets `json:"offsets"`
		Text    string         `json:"text"`
		Tokens  []whisperToken `json:"tokens"`
	} `json:"transcription"`
}

// parseWhisperJSON converts whisper-cli JSON into a typed result.
func parseWhisperJSON(data []byte, withWords bool) (domain.TranscriptionResult, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return domain.TranscriptionResult{}, err
	}

	result := domain.TranscriptionResult{
		Language: out.Result.Language,
		Segments: make([]domain.Segment, 0, len(out.Transcription)),
	}

	var text strings.Builder
	for i, item := range out.Transcription {
		seg := domain.Segment{
			ID:    i,
			Start: msToSeconds(item.Offsets.From),
			End:   msToSeconds(item.Offsets.To),
			Text:  item.Text,
		}
		if seg.End < seg.Start {
			seg.End = seg.Start
		}
		if withWords {
			seg.Words = tokensToWords(item.Tokens)
		}
		result.Segments = append(result.Segments, seg)
		text.WriteString(item.Text)
	}

	result.Text = strings.TrimSpace(text.String())
	return result, nil
}

// tokensToWords merges sub-word tokens into words. A token that starts with a
// space opens a new word; special tokens such as [_BEG_] are skipped.
func tokensToWords(tokens []whisperToken) []domain.Word {
	var words []domain.Word
	var probSum float64
	var probCount int

	flush := func() {
		if len(words) == 0 || probCount == 0 {
			return
		}
		words[len(words)-1].Probability = probSum / float64(probCount)
	}

	for _, tok := range tokens {
		if tok.Text == "" || strings.HasPrefix(tok.Text, "[_") {
			continue
		}

		start := msToSeconds(tok.Offsets.From)
		end := msToSeconds(tok.Offsets.To)
		if len(words) == 0 || strings.HasPrefix(tok.Text, " ") {
			flush()
			words = append(words, domain.Word{Word: tok.Text, Start: start, End: end})
			probSum, probCount = tok.P, 1
			continue
		}

		last := &words[len(words)-1]
		last.Word += tok.Text
		if end > last.End {
			last.End = end
		}
		probSum += tok.P
		probCount++
	}
	flush()
	return words
}

func msToSeconds(ms int64) float64 {
	return float64(ms) / 1000
}
