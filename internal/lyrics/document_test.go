package lyrics

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleJSON = `{
  "meta": {"title": "Song", "totalDurationMs": 0, "version": ""},
  "lyrics": [
    {"id": "a", "startTime": 0, "endTime": 1000, "text": "one", "words": [{"text": "one", "startTime": 0, "endTime": 1000, "duration": 1000}]},
    {"id": "a", "startTime": 1000, "endTime": 2000, "text": "two"},
    {"startTime": 2000, "endTime": 3500, "text": "", "words": [
      {"text": "three", "startTime": 2000, "endTime": 2500, "duration": 500},
      {"text": "four", "startTime": 2500, "endTime": 3500, "duration": 1000}
    ]}
  ]
}`

func TestDecodeAssignsUniqueIDs(t *testing.T) {
	doc, err := Decode(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	seen := make(map[string]bool)
	for _, line := range doc.Lines {
		if line.ID == "" || seen[line.ID] {
			t.Errorf("duplicate or empty id %q", line.ID)
		}
		seen[line.ID] = true
	}
	if doc.Lines[0].ID != "a" {
		t.Errorf("first id rewritten to %q", doc.Lines[0].ID)
	}
	if !strings.HasPrefix(doc.Lines[1].ID, "line-") {
		t.Errorf("generated id = %q", doc.Lines[1].ID)
	}
}

func TestDecodeFillsDefaults(t *testing.T) {
	doc, err := Decode(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}

	if doc.Lines[1].Words == nil {
		t.Error("missing words decoded as nil, want empty")
	}
	if doc.Lines[2].Text != "three four" {
		t.Errorf("text from words = %q", doc.Lines[2].Text)
	}
	if doc.Meta.Version != DocumentVersion {
		t.Errorf("version = %q", doc.Meta.Version)
	}
	if doc.Meta.TotalDurationMs != 3500 {
		t.Errorf("duration = %d, want 3500", doc.Meta.TotalDurationMs)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"lyrics": []}`)); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("empty doc err = %v", err)
	}
	if _, err := Decode(strings.NewReader(`{`)); err == nil {
		t.Error("expected error for malformed json")
	}
}

func TestEncodeDecodeKeepsIDs(t *testing.T) {
	doc, err := Decode(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatal(err)
	}
	again, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}

	for i := range doc.Lines {
		if again.Lines[i].ID != doc.Lines[i].ID {
			t.Errorf("line %d id changed from %q to %q", i, doc.Lines[i].ID, again.Lines[i].ID)
		}
	}
}

func TestLineLookup(t *testing.T) {
	doc := &Document{Lines: []Line{{ID: "x"}, {ID: "y", Text: "why"}}}

	if line, ok := doc.LineByID("y"); !ok || line.Text != "why" {
		t.Errorf("LineByID(y) = %+v, %v", line, ok)
	}
	if _, ok := doc.LineByID("z"); ok {
		t.Error("LineByID found a missing line")
	}

	var none *Document
	if _, ok := none.LineByID("x"); ok || none.HasWords() || none.Length() != 0 {
		t.Error("nil document lookups should be empty")
	}
}

func TestLength(t *testing.T) {
	tests := []struct {
		name    string
		totalMs int64
		lastEnd int64
		want    time.Duration
	}{
		{"declared total wins", 9000, 8000, 9 * time.Second},
		{"last line runs past total", 8000, 20000, 20 * time.Second},
		{"no total", 0, 4500, 4500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &Document{
				Meta:  Meta{TotalDurationMs: tt.totalMs},
				Lines: []Line{{ID: "a", StartTime: 0, EndTime: 1000}, {ID: "b", StartTime: 1000, EndTime: tt.lastEnd}},
			}
			if got := doc.Length(); got != tt.want {
				t.Errorf("Length() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadFileByExtension(t *testing.T) {
	dir := t.TempDir()

	lrcPath := filepath.Join(dir, "song.LRC")
	if err := os.WriteFile(lrcPath, []byte("[ar:Band]\n[00:01.00]hi"), 0644); err != nil {
		t.Fatal(err)
	}
	doc, err := LoadFile(lrcPath)
	if err != nil {
		t.Fatalf("LoadFile(lrc): %v", err)
	}
	if doc.Meta.Artist != "Band" || len(doc.Lines) != 1 {
		t.Errorf("lrc doc = %+v", doc)
	}

	jsonPath := filepath.Join(dir, "song.json")
	if err := os.WriteFile(jsonPath, []byte(sampleJSON), 0644); err != nil {
		t.Fatal(err)
	}
	doc, err = LoadFile(jsonPath)
	if err != nil {
		t.Fatalf("LoadFile(json): %v", err)
	}
	if len(doc.Lines) != 3 || !doc.HasWords() {
		t.Errorf("json doc = %+v", doc)
	}

	emptyLrc := filepath.Join(dir, "empty.lrc")
	if err := os.WriteFile(emptyLrc, []byte("no stamps here"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(emptyLrc); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("empty lrc err = %v", err)
	}
}
