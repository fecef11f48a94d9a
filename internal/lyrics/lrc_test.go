package lyrics

import (
	"testing"
)

func TestParseLRCPlain(t *testing.T) {
	raw := "[ti:Song]\n[ar:Band]\n[00:01.00]first line\n[00:03.50]second line\n[00:06.00]\n[00:07.00]last"
	doc := ParseLRC(raw, LRCOptions{})
	if doc == nil {
		t.Fatal("ParseLRC returned nil")
	}

	if doc.Meta.Title != "Song" || doc.Meta.Artist != "Band" {
		t.Errorf("meta = %+v", doc.Meta)
	}

	want := []struct {
		id         string
		start, end int64
		text       string
	}{
		{"line-1", 1000, 3500, "first line"},
		{"line-2", 3500, 6000, "second line"},
		{"line-3", 7000, 7000 + lastLineTailMs, "last"},
	}
	if len(doc.Lines) != len(want) {
		t.Fatalf("lines = %d, want %d", len(doc.Lines), len(want))
	}
	for i, w := range want {
		got := doc.Lines[i]
		if got.ID != w.id || got.StartTime != w.start || got.EndTime != w.end || got.Text != w.text {
			t.Errorf("line %d = %+v, want %+v", i, got, w)
		}
	}

	if doc.Meta.TotalDurationMs != 12000 {
		t.Errorf("duration = %d, want 12000", doc.Meta.TotalDurationMs)
	}

	words := doc.Lines[0].Words
	if len(words) != 2 || words[0].StartTime != 1000 || words[1].EndTime != 3500 || words[0].EndTime != words[1].StartTime {
		t.Errorf("even words = %+v", words)
	}
}

func TestParseLRCEnhancedWords(t *testing.T) {
	raw := "[00:10.00]<00:10.00>Hello <00:10.50>big <00:11.20>world\n[00:12.00]next"
	doc := ParseLRC(raw, LRCOptions{Title: "given", DurationMs: 20000})
	if doc == nil {
		t.Fatal("ParseLRC returned nil")
	}

	line := doc.Lines[0]
	if line.Text != "Hello big world" {
		t.Errorf("text = %q", line.Text)
	}

	want := []Word{
		{Text: "Hello", StartTime: 10000, EndTime: 10500, Duration: 500},
		{Text: "big", StartTime: 10500, EndTime: 11200, Duration: 700},
		{Text: "world", StartTime: 11200, EndTime: 12000, Duration: 800},
	}
	if len(line.Words) != len(want) {
		t.Fatalf("words = %+v", line.Words)
	}
	for i := range want {
		if line.Words[i] != want[i] {
			t.Errorf("word %d = %+v, want %+v", i, line.Words[i], want[i])
		}
	}

	if doc.Meta.Title != "given" || doc.Meta.TotalDurationMs != 20000 {
		t.Errorf("meta = %+v", doc.Meta)
	}
	if last := doc.Lines[1]; last.EndTime != 20000 {
		t.Errorf("last line end = %d, want track duration", last.EndTime)
	}
}

func TestParseLRCRepeatedStamps(t *testing.T) {
	doc := ParseLRC("[00:05.00][00:01.00]chorus\n[00:03.00]verse", LRCOptions{})
	if doc == nil || len(doc.Lines) != 3 {
		t.Fatalf("doc = %+v", doc)
	}

	texts := []string{"chorus", "verse", "chorus"}
	for i, text := range texts {
		if doc.Lines[i].Text != text {
			t.Errorf("line %d = %q, want %q", i, doc.Lines[i].Text, text)
		}
	}
	if doc.Lines[0].EndTime != 3000 {
		t.Errorf("first chorus ends at %d, want 3000", doc.Lines[0].EndTime)
	}
}

func TestParseLRCNothingTimed(t *testing.T) {
	tests := []string{
		"",
		"just plain lyrics\nwith no stamps",
		"[ti:Title only]",
		"[00:01.00]\n[00:02.00]",
	}
	for _, raw := range tests {
		if doc := ParseLRC(raw, LRCOptions{}); doc != nil {
			t.Errorf("ParseLRC(%q) = %+v, want nil", raw, doc)
		}
	}
}

func TestParseLrcTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"00:01.00", 1000, false},
		{"1:02.5", 62500, false},
		{"01:00:00.00", 3600000, false},
		{"00:00.005", 5, false},
		{"", 0, true},
		{"ti:Song", 0, true},
		{"1", 0, true},
		{"-1:00", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLrcTimestamp(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLrcTimestamp(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLrcTimestamp(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := map[int64]string{
		0:      "0:00.00",
		62500:  "1:02.50",
		-10:    "0:00.00",
		599990: "9:59.99",
	}
	for ms, want := range tests {
		if got := FormatTimestamp(ms); got != want {
			t.Errorf("FormatTimestamp(%d) = %q, want %q", ms, got, want)
		}
	}
}
