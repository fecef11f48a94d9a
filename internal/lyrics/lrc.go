package lyrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// lastLineTailMs is how long the final line stays active when the track
// duration is unknown.
const lastLineTailMs = 5000

type LRCOptions struct {
	Title      string
	DurationMs int64
}

type lrcEntry struct {
	startMs int64
	text    string
}

// ParseLRC converts plain or enhanced lrc text into a Document. Each line
// ends where the next timestamp begins, blank timestamped lines included,
// so instrumental gaps close the previous line. Returns nil when nothing
// timed was found.
func ParseLRC(raw string, opts LRCOptions) *Document {
	if raw == "" {
		return nil
	}

	title := opts.Title
	var artist string
	durationMs := opts.DurationMs
	var entries []lrcEntry

	for _, rawLine := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(rawLine)
		if trimmed == "" {
			continue
		}

		stamps, text, tags := splitLrcLine(trimmed)
		for key, value := range tags {
			switch key {
			case "ti":
				if title == "" {
					title = value
				}
			case "ar":
				artist = value
			case "length":
				if durationMs == 0 {
					if ms, err := parseLrcTimestamp(value); err == nil {
						durationMs = ms
					}
				}
			}
		}

		for _, stamp := range stamps {
			entries = append(entries, lrcEntry{startMs: stamp, text: text})
		}
	}

	if len(entries) == 0 {
		return nil
	}

	// repeated-chorus lines carry several stamps, so order is not guaranteed
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].startMs < entries[j].startMs
	})

	doc := &Document{
		Meta: Meta{
			Title:   title,
			Artist:  artist,
			Version: DocumentVersion,
		},
	}

	for i, entry := range entries {
		if entry.text == "" {
			continue
		}

		endMs := entry.startMs + lastLineTailMs
		if i+1 < len(entries) {
			endMs = entries[i+1].startMs
		} else if durationMs > entry.startMs {
			endMs = durationMs
		}
		if endMs <= entry.startMs {
			endMs = entry.startMs + 1
		}

		words, plain := parseWordTags(entry.text, entry.startMs, endMs)
		doc.Lines = append(doc.Lines, Line{
			ID:        fmt.Sprintf("line-%d", len(doc.Lines)+1),
			StartTime: entry.startMs,
			EndTime:   endMs,
			Text:      plain,
			Words:     words,
		})
	}

	if len(doc.Lines) == 0 {
		return nil
	}

	doc.Meta.TotalDurationMs = durationMs
	if doc.Meta.TotalDurationMs == 0 {
		doc.Meta.TotalDurationMs = doc.Lines[len(doc.Lines)-1].EndTime
	}

	return doc
}

// splitLrcLine peels the leading [..] groups off a line. Timestamps are
// returned in ms; id tags like [ti:..] come back in the map.
func splitLrcLine(line string) ([]int64, string, map[string]string) {
	var stamps []int64
	tags := make(map[string]string)

	rest := line
	for strings.HasPrefix(rest, "[") {
		endIndex := strings.Index(rest, "]")
		if endIndex <= 1 {
			break
		}

		inner := rest[1:endIndex]
		rest = rest[endIndex+1:]

		if ms, err := parseLrcTimestamp(inner); err == nil {
			stamps = append(stamps, ms)
			continue
		}

		if key, value, ok := strings.Cut(inner, ":"); ok {
			tags[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
		}
	}

	return stamps, strings.TrimSpace(rest), tags
}

// parseWordTags reads enhanced lrc word stamps (<mm:ss.xx>word). Lines with
// no stamps get their words spread evenly over the line interval.
func parseWordTags(text string, lineStart int64, lineEnd int64) ([]Word, string) {
	if !strings.Contains(text, "<") {
		return evenWords(text, lineStart, lineEnd), text
	}

	type stamped struct {
		startMs int64
		text    string
	}

	var segments []stamped
	var leading strings.Builder
	rest := text

	for {
		open := strings.Index(rest, "<")
		if open < 0 {
			break
		}
		closeIdx := strings.Index(rest[open:], ">")
		if closeIdx < 0 {
			break
		}
		closeIdx += open

		ms, err := parseLrcTimestamp(rest[open+1 : closeIdx])
		if err != nil {
			leading.WriteString(rest[:closeIdx+1])
			rest = rest[closeIdx+1:]
			continue
		}

		if len(segments) == 0 {
			leading.WriteString(rest[:open])
		} else {
			segments[len(segments)-1].text += rest[:open]
		}
		segments = append(segments, stamped{startMs: ms})
		rest = rest[closeIdx+1:]
	}

	if len(segments) == 0 {
		return evenWords(text, lineStart, lineEnd), text
	}
	segments[len(segments)-1].text += rest

	var words []Word
	var plain []string
	if lead := strings.TrimSpace(leading.String()); lead != "" {
		plain = append(plain, lead)
	}

	for i, seg := range segments {
		wordText := strings.TrimSpace(seg.text)
		if wordText == "" {
			continue
		}

		endMs := lineEnd
		if i+1 < len(segments) {
			endMs = segments[i+1].startMs
		}
		if endMs < seg.startMs {
			endMs = seg.startMs
		}

		words = append(words, Word{
			Text:      wordText,
			StartTime: seg.startMs,
			EndTime:   endMs,
			Duration:  endMs - seg.startMs,
		})
		plain = append(plain, wordText)
	}

	return words, strings.Join(plain, " ")
}

func evenWords(text string, lineStart int64, lineEnd int64) []Word {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return []Word{}
	}

	span := lineEnd - lineStart
	words := make([]Word, len(fields))
	for i, field := range fields {
		start := lineStart + span*int64(i)/int64(len(fields))
		end := lineStart + span*int64(i+1)/int64(len(fields))
		words[i] = Word{
			Text:      field,
			StartTime: start,
			EndTime:   end,
			Duration:  end - start,
		}
	}
	return words
}

// parseLrcTimestamp accepts mm:ss, mm:ss.xx and hh:mm:ss.xx.
func parseLrcTimestamp(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty time value")
	}

	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time format: %s", raw)
	}

	values := make([]float64, len(parts))
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse time %q: %w", raw, err)
		}
		values[i] = value
	}

	var total float64
	if len(values) == 3 {
		total = values[0]*3600 + values[1]*60 + values[2]
	} else {
		total = values[0]*60 + values[1]
	}

	if total < 0 {
		return 0, errors.New("negative time not allowed")
	}

	return int64(math.Round(total * 1000)), nil
}

// FormatTimestamp renders ms as m:ss.xx, the way lrc files write it.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	minutes := ms / 60000
	seconds := float64(ms%60000) / 1000
	return fmt.Sprintf("%d:%05.2f", minutes, seconds)
}
