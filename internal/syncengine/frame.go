package syncengine

import (
	"karolbroda.com/lyricsync/internal/lyrics"
)

type WordView struct {
	Text     string
	State    State
	Progress float64
}

type LineView struct {
	ID        string
	Index     int
	Text      string
	StartTime int64
	EndTime   int64
	State     State
	Words     []WordView
}

// Frame is the classified render model for one tick.
type Frame struct {
	CurrentTimeMs int64
	Lines         []LineView
	ActiveIndex   int
	ActiveLineID  string
	Mode          Mode
	ShowResync    bool
}

func (f Frame) ActiveLine() (LineView, bool) {
	if f.ActiveIndex < 0 || f.ActiveIndex >= len(f.Lines) {
		return LineView{}, false
	}
	return f.Lines[f.ActiveIndex], true
}

// buildFrame classifies every line, and the words of the active line only.
// Words of other lines take their line's state so they render uniformly.
func buildFrame(c Classifier, doc *lyrics.Document, nowMs int64) Frame {
	frame := Frame{
		CurrentTimeMs: nowMs,
		ActiveIndex:   -1,
	}
	if doc == nil {
		return frame
	}

	frame.Lines = make([]LineView, len(doc.Lines))
	for i, line := range doc.Lines {
		state := c.Line(nowMs, line)

		view := LineView{
			ID:        line.ID,
			Index:     i,
			Text:      line.Text,
			StartTime: line.StartTime,
			EndTime:   line.EndTime,
			State:     state,
			Words:     make([]WordView, len(line.Words)),
		}

		// overlapping input can classify several lines active; only the first
		// drives word highlighting and scrolling
		if state == StateActive && frame.ActiveIndex < 0 {
			frame.ActiveIndex = i
			frame.ActiveLineID = line.ID
			for j, word := range line.Words {
				wordState := c.Word(nowMs, word)
				progress, _ := WordProgress(nowMs, word)
				view.Words[j] = WordView{Text: word.Text, State: wordState, Progress: progress}
			}
		} else {
			for j, word := range line.Words {
				wv := WordView{Text: word.Text, State: state}
				if state == StatePast {
					wv.Progress = 1
				}
				view.Words[j] = wv
			}
		}

		frame.Lines[i] = view
	}

	return frame
}
