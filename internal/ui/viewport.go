package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/syncengine"
)

const (
	// blank rows between lyric lines
	lineGap    = 1
	sideMargin = 4
	minWrap    = 10
	// shown for lines with no text, usually instrumental breaks
	emptyLineGlyph = "♪"
)

type lineSpan struct {
	id     string
	index  int
	top    int
	height int
}

// LyricsViewport lays the document out as wrapped rows and scrolls over
// them. It is the engine's Viewport: the engine asks it whether a line is
// centered and tells it when to center one.
type LyricsViewport struct {
	band   syncengine.Band
	width  int
	height int

	doc       *lyrics.Document
	spans     []lineSpan
	index     map[string]int
	totalRows int

	offset float64
	anim   AnimState
}

func NewLyricsViewport(band syncengine.Band) *LyricsViewport {
	v := &LyricsViewport{band: band, index: map[string]int{}}
	v.anim.Reset()
	return v
}

// SetSize relayouts the current document for a new area.
func (v *LyricsViewport) SetSize(width int, height int) {
	if width == v.width && height == v.height {
		return
	}
	v.width = width
	v.height = height
	v.relayout()
}

// Layout replaces the document and parks the first line in the center.
func (v *LyricsViewport) Layout(doc *lyrics.Document) {
	v.doc = doc
	v.relayout()
	v.anim.Reset()

	v.offset = float64(v.minTop())
	if len(v.spans) > 0 {
		v.offset = float64(v.centerTop(v.spans[0]))
	}
}

func (v *LyricsViewport) relayout() {
	v.spans = v.spans[:0]
	v.index = make(map[string]int)
	v.totalRows = 0

	if v.doc == nil {
		return
	}

	wrap := v.wrapWidth()
	row := 0
	for i, line := range v.doc.Lines {
		h := wrappedHeight(displayText(line.Text), wrap)
		v.index[line.ID] = len(v.spans)
		v.spans = append(v.spans, lineSpan{id: line.ID, index: i, top: row, height: h})
		row += h + lineGap
	}
	v.totalRows = max(row-lineGap, 0)
	v.offset = v.clamp(v.offset)
}

func (v *LyricsViewport) wrapWidth() int {
	return max(v.width-2*sideMargin, minWrap)
}

// Top is the document row shown on the first visible row.
func (v *LyricsViewport) Top() int {
	return int(math.Round(v.offset))
}

func (v *LyricsViewport) Height() int {
	return v.height
}

// IsCentered reports whether the line's midpoint is in the centered band of
// what is currently on screen.
func (v *LyricsViewport) IsCentered(lineID string) bool {
	span, ok := v.span(lineID)
	if !ok {
		return false
	}
	return v.band.Contains(span.top-v.Top(), span.height, v.height)
}

// ScrollToCenter eases the line into the middle of the viewport.
func (v *LyricsViewport) ScrollToCenter(lineID string) {
	span, ok := v.span(lineID)
	if !ok {
		return
	}

	target := float64(v.centerTop(span))
	if v.height <= 0 {
		v.offset = target
		return
	}
	v.anim.Start(v.offset, target, scrollTicks)
}

// ScrollBy moves the viewport by rows immediately and reports whether it
// actually moved. Any automatic scroll in flight is abandoned.
func (v *LyricsViewport) ScrollBy(rows int) bool {
	v.anim.Cancel()

	before := v.Top()
	v.offset = v.clamp(float64(before + rows))
	return v.Top() != before
}

// Step advances the scroll animation by one tick and reports whether the
// visible rows changed.
func (v *LyricsViewport) Step(tickCount int) bool {
	moving := v.anim.Moving()
	pos := v.anim.Step(tickCount)
	if !moving {
		return false
	}

	before := v.Top()
	v.offset = v.clamp(pos)
	return v.Top() != before
}

func (v *LyricsViewport) Anim() *AnimState {
	return &v.anim
}

// LineAt maps a row inside the viewport to the line drawn there.
func (v *LyricsViewport) LineAt(row int) (string, bool) {
	if row < 0 || row >= v.height {
		return "", false
	}
	docRow := v.Top() + row
	for _, span := range v.spans {
		if docRow >= span.top && docRow < span.top+span.height {
			return span.id, true
		}
	}
	return "", false
}

// visible returns the spans that intersect the viewport.
func (v *LyricsViewport) visible() []lineSpan {
	top := v.Top()
	bottom := top + v.height

	var out []lineSpan
	for _, span := range v.spans {
		if span.top+span.height <= top {
			continue
		}
		if span.top >= bottom {
			break
		}
		out = append(out, span)
	}
	return out
}

func (v *LyricsViewport) span(lineID string) (lineSpan, bool) {
	i, ok := v.index[lineID]
	if !ok {
		return lineSpan{}, false
	}
	return v.spans[i], true
}

func (v *LyricsViewport) centerTop(span lineSpan) int {
	return v.clampInt(span.top + span.height/2 - v.height/2)
}

// Scrolling stops once the first line reaches the middle from below, or
// the last line from above.
func (v *LyricsViewport) minTop() int {
	return -(v.height / 2)
}

func (v *LyricsViewport) maxTop() int {
	return max(v.totalRows-v.height/2, v.minTop())
}

func (v *LyricsViewport) clamp(offset float64) float64 {
	return math.Max(float64(v.minTop()), math.Min(offset, float64(v.maxTop())))
}

func (v *LyricsViewport) clampInt(offset int) int {
	return min(max(offset, v.minTop()), v.maxTop())
}

func displayText(text string) string {
	if strings.TrimSpace(text) == "" {
		return emptyLineGlyph
	}
	return text
}

func wrappedHeight(text string, width int) int {
	return max(lipgloss.Height(lipgloss.NewStyle().Width(width).Render(text)), 1)
}
