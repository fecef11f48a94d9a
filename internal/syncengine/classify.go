package syncengine

import (
	"karolbroda.com/lyricsync/internal/lyrics"
)

type State int

const (
	StateFuture State = iota
	StateActive
	StatePast
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StatePast:
		return "past"
	default:
		return "future"
	}
}

// Classifier decides the state of lines and words at a playback time in ms.
type Classifier interface {
	Line(nowMs int64, line lyrics.Line) State
	Word(nowMs int64, word lyrics.Word) State
}

type TimeClassifier struct{}

func (TimeClassifier) Line(nowMs int64, line lyrics.Line) State {
	return ClassifyLine(nowMs, line)
}

func (TimeClassifier) Word(nowMs int64, word lyrics.Word) State {
	return ClassifyWord(nowMs, word)
}

// ClassifyLine uses the half-open interval [start, end).
func ClassifyLine(nowMs int64, line lyrics.Line) State {
	if nowMs >= line.EndTime {
		return StatePast
	}
	if nowMs >= line.StartTime {
		return StateActive
	}
	return StateFuture
}

// ClassifyWord uses an open interval: a word sitting exactly on its start
// time has not started yet.
func ClassifyWord(nowMs int64, word lyrics.Word) State {
	if nowMs >= word.EndTime {
		return StatePast
	}
	if nowMs > word.StartTime {
		return StateActive
	}
	return StateFuture
}

// WordProgress is the fill fraction of a started word, clamped to [0, 1].
// ok is false for words that have not started. Zero-length words jump
// straight to 1.
func WordProgress(nowMs int64, word lyrics.Word) (progress float64, ok bool) {
	if ClassifyWord(nowMs, word) == StateFuture {
		return 0, false
	}

	span := word.EndTime - word.StartTime
	if span <= 0 {
		return 1, true
	}

	progress = float64(nowMs-word.StartTime) / float64(span)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	return progress, true
}
