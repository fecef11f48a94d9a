package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"

	"karolbroda.com/lyricsync/internal/artwork"
	"karolbroda.com/lyricsync/internal/colors"
	"karolbroda.com/lyricsync/internal/syncengine"
	"karolbroda.com/lyricsync/internal/terminal"
)

const (
	footerRows  = 1
	bannerText  = "lyricsync"
	bannerFont  = "standard"
	errorColor  = "#FF6B6B"
	resyncLabel = " ↺ back to now (s) "
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width, height := m.width, m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	palette := m.display.Palette
	if palette == nil {
		palette = artwork.DefaultPalette()
	}

	if m.display.Track == nil && m.display.Doc == nil {
		return m.renderWaitingScreen(palette, width, height)
	}

	return m.renderMainScreen(palette, width, height)
}

func (m Model) renderWaitingScreen(palette *artwork.Palette, width int, height int) string {
	banner := RenderBanner(bannerText, palette.Gradient, width)

	pulseChars := []string{"·", "•", "●", "•"}
	pulse := pulseChars[(m.tickCount/4)%len(pulseChars)]

	block := append([]string{}, banner...)
	block = append(block, "",
		centerText(lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Italic(true).Render("awaiting music"), width),
		centerText(lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Accent)).Render(pulse), width),
	)

	return lipgloss.PlaceVertical(height, lipgloss.Center, strings.Join(block, "\n"))
}

// RenderBanner draws text as a figlet banner colored with the gradient, or
// plain centered text when the terminal is too narrow for it.
func RenderBanner(text string, gradient []string, width int) []string {
	rows := figure.NewFigure(text, bannerFont, false).Slicify()

	widest := 0
	for _, row := range rows {
		widest = max(widest, lipgloss.Width(row))
	}
	if widest == 0 || widest > width-2 {
		return []string{centerText(colors.RenderGradientText(text, gradient, true), width)}
	}

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row) == "" {
			continue
		}
		padded := row + strings.Repeat(" ", widest-lipgloss.Width(row))
		out = append(out, centerText(colors.RenderGradientText(padded, gradient, true), width))
	}
	return out
}

func (m Model) renderMainScreen(palette *artwork.Palette, width int, height int) string {
	lines := make([]string, 0, height)

	headerRows := m.headerRows(width, height)
	if headerRows > 0 {
		lines = append(lines, fitRows(m.renderHeader(palette, width, height), headerRows)...)
	}

	lyricsHeight := max(height-headerRows-footerRows, 0)
	switch {
	case m.display.Doc != nil:
		lines = append(lines, m.renderLyrics(palette, width, lyricsHeight)...)
	case m.err != nil:
		lines = append(lines, m.renderMessage(lipgloss.NewStyle().Foreground(lipgloss.Color(errorColor)).Render(m.err.Error()), width, lyricsHeight)...)
	default:
		lines = append(lines, m.renderWaitingForLyrics(palette, width, lyricsHeight)...)
	}

	lines = append(lines, m.renderFooter(palette, width))

	screen := strings.Join(fitRows(lines, height), "\n")
	if m.kittyEnabled() {
		// kitty placements survive redraws, so drop the previous cover first
		screen = terminal.ClearKittyImages() + screen
	}
	return screen
}

// artSize shrinks the cover with the terminal and drops it when there is
// no room.
func (m Model) artSize(width int, height int) (int, int) {
	if m.display.Image == nil || width < 50 || height < 25 {
		return 0, 0
	}
	if width < 80 {
		return 8, 4
	}
	return 12, 6
}

func (m Model) kittyEnabled() bool {
	return m.termCaps != nil && m.termCaps.SupportsKittyGraphics
}

func (m Model) useKitty(artWidth int) bool {
	return m.kittyEnabled() && artWidth > 0
}

func (m Model) infoRows() int {
	trk := m.display.Track
	if trk == nil {
		return 0
	}
	rows := 2
	if trk.Album != "" {
		rows++
	}
	return rows
}

// headerRows is computed without rendering so Update can map mouse rows
// before View runs.
func (m Model) headerRows(width int, height int) int {
	if m.hideHeader || m.display.Track == nil {
		return 0
	}

	artWidth, artHeight := m.artSize(width, height)
	body := max(artHeight, m.infoRows())
	if m.useKitty(artWidth) {
		body = artHeight + m.infoRows()
	}

	rows := 1 + body + 1
	if m.display.Track.Duration > 0 {
		rows++
	}
	return rows + 1
}

func (m Model) renderHeader(palette *artwork.Palette, width int, height int) []string {
	lines := []string{""}

	artWidth, artHeight := m.artSize(width, height)
	infoLines := m.renderTrackInfo(palette, width)

	kitty := ""
	if m.useKitty(artWidth) {
		kitty = terminal.EncodeImageForKitty(m.display.Image, artWidth, artHeight)
	}

	if kitty != "" {
		lines = append(lines, "  "+kitty)
		for i := 0; i < artHeight-1; i++ {
			lines = append(lines, "")
		}
		for _, info := range infoLines {
			lines = append(lines, "  "+info)
		}
	} else {
		art := artwork.RenderHalfBlockArt(m.display.Image, artWidth, artHeight)
		rows := max(artHeight, len(infoLines))
		if artWidth == 0 {
			rows = len(infoLines)
		}

		for i := 0; i < rows; i++ {
			var line strings.Builder
			line.WriteString("  ")
			if artWidth > 0 {
				if i < len(art) {
					line.WriteString(art[i])
				} else {
					line.WriteString(strings.Repeat(" ", artWidth))
				}
				line.WriteString("  ")
			}
			if i < len(infoLines) {
				line.WriteString(infoLines[i])
			}
			lines = append(lines, line.String())
		}
	}

	lines = append(lines, "")
	if m.display.Track.Duration > 0 {
		lines = append(lines, m.renderProgress(palette, width))
	}
	return append(lines, "")
}

func (m Model) renderTrackInfo(palette *artwork.Palette, width int) []string {
	trk := m.display.Track
	if trk == nil {
		return nil
	}

	maxWidth := max(width-20, 20)
	truncate := lipgloss.NewStyle().MaxWidth(maxWidth)

	lines := []string{
		truncate.Foreground(lipgloss.Color(palette.Active)).Bold(true).Render(trk.Title),
		truncate.Foreground(lipgloss.Color(palette.Accent)).Render(trk.Artist),
	}
	if trk.Album != "" {
		lines = append(lines, truncate.Foreground(lipgloss.Color(palette.Dim)).Render(trk.Album))
	}
	return lines
}

func (m Model) renderProgress(palette *artwork.Palette, width int) string {
	total := m.display.Track.Duration.Seconds()
	barWidth := max(width-20, 20)

	progress := 0.0
	if total > 0 {
		progress = min(max(m.state.Position/total, 0), 1)
	}
	filled := int(float64(barWidth) * progress)

	fill := func(i int) string {
		if len(palette.Gradient) == 0 {
			return palette.Sung
		}
		return palette.Gradient[i*len(palette.Gradient)/barWidth]
	}

	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		switch {
		case i < filled:
			bar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(fill(i))).Render("━"))
		case i == filled:
			bar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Sung)).Render("●"))
		default:
			bar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Faint(true).Render("─"))
		}
	}

	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))
	return fmt.Sprintf("  %s  %s  %s",
		timeStyle.Render(colors.FormatTime(m.state.Position)),
		bar.String(),
		timeStyle.Render(colors.FormatTime(total)))
}

// renderLyrics draws the visible part of the document at the viewport's
// current offset.
func (m Model) renderLyrics(palette *artwork.Palette, width int, height int) []string {
	out := make([]string, height)
	if height == 0 {
		return out
	}

	top := m.viewport.Top()
	wrap := m.viewport.wrapWidth()
	glow := m.viewport.Anim().Glow
	margin := strings.Repeat(" ", sideMargin)

	for _, span := range m.viewport.visible() {
		if span.index >= len(m.frame.Lines) {
			continue
		}
		rows := strings.Split(renderLine(m.frame.Lines[span.index], palette, wrap, glow), "\n")
		for j, row := range rows {
			y := span.top - top + j
			if y >= 0 && y < height {
				out[y] = margin + row
			}
		}
	}

	return out
}

// renderLine styles one line by state. The active line gets per-word fill;
// other lines are a single color.
func renderLine(line syncengine.LineView, palette *artwork.Palette, wrap int, glow float64) string {
	block := lipgloss.NewStyle().Width(wrap).Align(lipgloss.Center)

	switch line.State {
	case syncengine.StatePast:
		return block.Foreground(lipgloss.Color(palette.Dim)).Render(displayText(line.Text))
	case syncengine.StateFuture:
		return block.Foreground(lipgloss.Color(palette.Upcoming)).Render(displayText(line.Text))
	}

	base := palette.Active
	if glow > 0 {
		base = colors.BlendColors(palette.Active, "#FFFFFF", glow*0.5)
	}

	if len(line.Words) == 0 {
		return block.Foreground(lipgloss.Color(base)).Bold(true).Render(displayText(line.Text))
	}

	parts := make([]string, 0, len(line.Words))
	for _, word := range line.Words {
		style := lipgloss.NewStyle().Bold(true)
		switch word.State {
		case syncengine.StatePast:
			style = style.Foreground(lipgloss.Color(palette.Sung))
		case syncengine.StateActive:
			style = style.Foreground(lipgloss.Color(palette.WordColor(word.Progress)))
		default:
			style = style.Foreground(lipgloss.Color(base))
		}
		parts = append(parts, style.Render(word.Text))
	}
	return block.Render(strings.Join(parts, " "))
}

func (m Model) renderFooter(palette *artwork.Palette, width int) string {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))

	mode := dim.Render("● synced")
	if m.engine.Mode() == syncengine.ModeManual {
		mode = lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Accent)).Render("○ manual")
	}

	left := " " + mode
	if m.syncOffset != 0 {
		left += dim.Render(fmt.Sprintf("  offset %+.1fs", m.syncOffset))
	}
	if m.display.Source != "" {
		left += dim.Render("  " + string(m.display.Source))
	}
	if m.notice != "" {
		left += lipgloss.NewStyle().Foreground(lipgloss.Color(errorColor)).Render("  " + m.notice)
	}

	right := ""
	if m.frame.ShowResync {
		accent := colors.BlendColors(palette.Accent, "#FFFFFF", m.viewport.Anim().Pulse()*0.3)
		right = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color(accent)).
			Bold(true).
			Render(resyncLabel) + " "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return lipgloss.NewStyle().MaxWidth(width).Render(left + " " + right)
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderMessage(text string, width int, height int) []string {
	lines := make([]string, height)
	if height > 0 {
		lines[height/2] = centerText(text, width)
	}
	return lines
}

func (m Model) renderWaitingForLyrics(palette *artwork.Palette, width int, height int) []string {
	if m.loadingState.IsLoadingLyrics() {
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		spinner := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Accent)).Render(frames[m.tickCount%len(frames)])
		return m.renderMessage(spinner+lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Render(" loading"), width, height)
	}
	return m.renderMessage(lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Render(emptyLineGlyph), width, height)
}

func centerText(text string, screenWidth int) string {
	padding := max((screenWidth-lipgloss.Width(text))/2, 0)
	return strings.Repeat(" ", padding) + text
}

// fitRows pads or cuts lines to exactly n rows.
func fitRows(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines
}
