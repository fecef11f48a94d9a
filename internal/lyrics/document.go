package lyrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DocumentVersion = "1.0"

var ErrEmptyDocument = errors.New("lyrics document has no lines")

type Meta struct {
	Title           string `json:"title"`
	Artist          string `json:"artist,omitempty"`
	TotalDurationMs int64  `json:"totalDurationMs"`
	Version         string `json:"version"`
}

// Word times are milliseconds. Duration is informational and never used
// for classification.
type Word struct {
	Text      string `json:"text"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
	Duration  int64  `json:"duration"`
}

type Line struct {
	ID        string `json:"id"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
	Text      string `json:"text"`
	Words     []Word `json:"words"`
}

// Document is replaced wholesale on every track change; nothing downstream
// mutates it. Lines must already be ordered by StartTime.
type Document struct {
	Meta  Meta   `json:"meta"`
	Lines []Line `json:"lyrics"`
}

func (d *Document) LineByID(id string) (Line, bool) {
	if d == nil {
		return Line{}, false
	}
	for _, line := range d.Lines {
		if line.ID == id {
			return line, true
		}
	}
	return Line{}, false
}

// HasWords reports whether any line carries word timing.
func (d *Document) HasWords() bool {
	if d == nil {
		return false
	}
	for _, line := range d.Lines {
		if len(line.Words) > 0 {
			return true
		}
	}
	return false
}

// Length is how long the document runs: the declared total, or the end
// of the last line when that is later.
func (d *Document) Length() time.Duration {
	if d == nil {
		return 0
	}
	ms := d.Meta.TotalDurationMs
	if n := len(d.Lines); n > 0 && d.Lines[n-1].EndTime > ms {
		ms = d.Lines[n-1].EndTime
	}
	return time.Duration(ms) * time.Millisecond
}

// Decode reads the lyrics json format. Lines with a missing or repeated id
// get a generated one so ids stay unique within the document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode lyrics json: %w", err)
	}

	if len(doc.Lines) == 0 {
		return nil, ErrEmptyDocument
	}

	seen := make(map[string]bool, len(doc.Lines))
	for i := range doc.Lines {
		line := &doc.Lines[i]
		if line.ID == "" || seen[line.ID] {
			line.ID = "line-" + uuid.NewString()
		}
		seen[line.ID] = true

		if line.Words == nil {
			line.Words = []Word{}
		}
		if strings.TrimSpace(line.Text) == "" && len(line.Words) > 0 {
			line.Text = joinWords(line.Words)
		}
	}

	if doc.Meta.Version == "" {
		doc.Meta.Version = DocumentVersion
	}
	if doc.Meta.TotalDurationMs == 0 {
		doc.Meta.TotalDurationMs = doc.Lines[len(doc.Lines)-1].EndTime
	}

	return &doc, nil
}

func Encode(w io.Writer, doc *Document) error {
	if doc == nil {
		return ErrEmptyDocument
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode lyrics json: %w", err)
	}
	return nil
}

// LoadFile picks the parser by extension: .lrc files go through ParseLRC,
// anything else is treated as the json format.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lyrics file: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".lrc") {
		raw, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read lrc file: %w", err)
		}
		doc := ParseLRC(string(raw), LRCOptions{})
		if doc == nil {
			return nil, ErrEmptyDocument
		}
		return doc, nil
	}

	return Decode(f)
}

func joinWords(words []Word) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if w.Text != "" {
			parts = append(parts, w.Text)
		}
	}
	return strings.Join(parts, " ")
}
