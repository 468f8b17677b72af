package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Record is one line of a JSONL training corpus.
type Record struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToLitGPT converts dataset entries into training records for LitGPT.
// Tokenization is left to the trainer.
func ToLitGPT(entries []Entry) []Record {
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, Record{
			Text: e.Text,
			Metadata: map[string]any{
				"audio_path": e.AudioPath,
				"filename":   e.Filename,
				"duration":   e.Duration,
			},
		})
	}
	return records
}

// WriteJSONL writes one JSON object per line.
func WriteJSONL(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return fmt.Errorf("cannot encode record %d: %w", i, err)
		}
	}
	return nil
}

// Validation counts the lines of a JSONL corpus.
type Validation struct {
	Valid   int
	Invalid []int // 1-based line numbers
}

// ValidateJSONL checks that every non-empty line of r is a JSON object with
// a text field.
func ValidateJSONL(r io.Reader) (Validation, error) {
	var (
		v       Validation
		lineNo  int
		scanner = bufio.NewScanner(r)
	)

	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.Text == "" {
			v.Invalid = append(v.Invalid, lineNo)
			continue
		}
		v.Valid++
	}

	if err := scanner.Err(); err != nil {
		return v, fmt.Errorf("cannot read corpus: %w", err)
	}
	return v, nil
}
