package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"

	"karolbroda.com/lyrelay/internal/artwork"
	"karolbroda.com/lyrelay/internal/colors"
)

const (
	bannerText   = "lyrelay"
	fadeDuration = 300 * time.Millisecond
	errorColor   = "#FF6B6B"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

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

	palette := m.display.palette
	if palette == nil {
		palette = artwork.DefaultPalette()
	}

	var lines []string
	if !m.display.snap.HasTrack() {
		lines = m.renderWaitingScreen(palette, width, height)
	} else {
		lines = m.renderMainScreen(palette, width, height)
	}
	return strings.Join(fit(lines, height), "\n")
}

func fit(lines []string, height int) []string {
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines[:height]
}

func (m Model) renderWaitingScreen(palette *artwork.Palette, width int, height int) []string {
	var body []string

	banner := figure.NewFigure(bannerText, "", true).Slicify()
	if bannerWidth(banner) <= width-4 && height >= len(banner)+6 {
		gradient := palette.Gradient
		for _, row := range banner {
			body = append(body, center(colors.RenderGradientText(row, gradient, true), width))
		}
		body = append(body, "")
	}

	waitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Italic(true)
	body = append(body, center(waitStyle.Render("awaiting music"), width))

	pulse := []string{"·", "•", "●", "•"}
	pulseStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Secondary))
	body = append(body, center(pulseStyle.Render(pulse[(m.tickCount/4)%len(pulse)]), width))

	if msg := m.statusMessage(); msg != "" {
		body = append(body, "", center(lipgloss.NewStyle().Foreground(lipgloss.Color(errorColor)).Render(msg), width))
	}

	top := max((height-len(body))/2, 0)
	return append(make([]string, top), body...)
}

func bannerWidth(rows []string) int {
	w := 0
	for _, row := range rows {
		w = max(w, lipgloss.Width(row))
	}
	return w
}

func (m Model) renderMainScreen(palette *artwork.Palette, width int, height int) []string {
	var lines []string

	if !m.hideHeader {
		lines = append(lines, m.renderCompactHeader(palette, width)...)
	}

	status := m.renderStatusLine(palette, width)
	bodyHeight := height - len(lines)
	if status != "" {
		bodyHeight--
	}

	set := m.display.snap.Lyrics
	switch {
	case m.display.snap.LyricsPending:
		lines = append(lines, m.renderLoading(palette, bodyHeight, width)...)
	case len(set.Lines) == 0:
		lines = append(lines, m.renderNoLyrics(palette, bodyHeight, width)...)
	case !set.Synced:
		lines = append(lines, m.renderPlainLyrics(palette, bodyHeight, width)...)
	default:
		lines = append(lines, m.renderSlidingLyrics(palette, bodyHeight, width)...)
	}

	lines = fit(lines, height-1)
	if status != "" {
		lines = append(lines, status)
	} else {
		lines = append(lines, "")
	}
	return lines
}

func (m Model) renderCompactHeader(palette *artwork.Palette, width int) []string {
	lines := []string{""}

	artWidth, artHeight := 12, 6
	if width < 80 {
		artWidth, artHeight = 8, 4
	}
	if width < 50 || m.height < 25 {
		artWidth, artHeight = 0, 0
	}

	artLines := artwork.RenderHalfBlockArt(m.display.image, artWidth, artHeight)
	if len(artLines) == 0 {
		artWidth = 0
	}
	infoLines := m.renderTrackInfo(palette, width-artWidth-6)

	for i := 0; i < max(len(artLines), len(infoLines)); i++ {
		var line strings.Builder
		if artWidth > 0 {
			line.WriteString("  ")
			if i < len(artLines) {
				line.WriteString(artLines[i])
			} else {
				line.WriteString(strings.Repeat(" ", artWidth))
			}
			line.WriteString("  ")
		} else {
			line.WriteString("  ")
		}
		if i < len(infoLines) {
			line.WriteString(infoLines[i])
		}
		lines = append(lines, line.String())
	}

	lines = append(lines, "")
	if m.display.snap.Track.DurationMs > 0 {
		lines = append(lines, m.renderMinimalProgress(palette, width))
	}
	return append(lines, "")
}

func truncate(text string, width int) string {
	if lipgloss.Width(text) <= width {
		return text
	}
	var b strings.Builder
	used := 0
	for _, r := range text {
		w := lipgloss.Width(string(r))
		if used+w > width-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return b.String() + "…"
}

func (m Model) renderTrackInfo(palette *artwork.Palette, width int) []string {
	trk := m.display.snap.Track
	width = max(width, 20)

	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Primary)).Bold(true)
	artistStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Secondary))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))

	lines := []string{
		titleStyle.Render(truncate(trk.Title, width)),
		artistStyle.Render(truncate(trk.DisplayArtists(), width)),
	}
	if trk.Album != "" {
		lines = append(lines, dimStyle.Render(truncate(trk.Album, width)))
	}

	state := "▶ playing"
	if !m.display.snap.Sample.Playing {
		state = "⏸ paused"
	}
	if m.syncOffset != 0 {
		state += fmt.Sprintf("  offset %+.1fs", m.syncOffset)
	}
	return append(lines, dimStyle.Render(state))
}

func (m Model) renderMinimalProgress(palette *artwork.Palette, width int) string {
	duration := time.Duration(m.display.snap.Track.DurationMs) * time.Millisecond
	position := time.Duration((m.position - m.syncOffset) * float64(time.Second))

	barWidth := max(width-20, 20)
	progress := clamp(float64(position)/float64(duration), 0, 1)
	filled := int(float64(barWidth) * progress)

	filledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Primary))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Faint(true)

	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		switch {
		case i < filled:
			bar.WriteString(filledStyle.Render("━"))
		case i == filled:
			bar.WriteString(filledStyle.Render("●"))
		default:
			bar.WriteString(emptyStyle.Render("─"))
		}
	}

	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))
	return fmt.Sprintf("  %s  %s  %s",
		timeStyle.Render(colors.FormatTime(min(position, duration))),
		bar.String(),
		timeStyle.Render(colors.FormatTime(duration)))
}

func (m Model) statusMessage() string {
	if m.feedErr != nil {
		return m.feedErr.Error()
	}
	return m.display.snap.Err
}

func (m Model) renderStatusLine(palette *artwork.Palette, width int) string {
	msg := m.statusMessage()
	if msg == "" {
		return ""
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(colors.BlendColors(palette.Dim, errorColor, 0.6)))
	return center(style.Render(truncate(msg, width-4)), width)
}

func (m Model) lyricRenderer(palette *artwork.Palette, width int) *LyricRenderer {
	return &LyricRenderer{
		palette:         palette,
		anim:            &m.animState,
		screenWidth:     width,
		showPhonetic:    m.showPhonetic,
		showTranslation: m.showTranslation,
		annotationFade:  clamp(float64(m.elapsedSinceLineChange())/float64(fadeDuration), 0, 1),
	}
}

func (m Model) renderSlidingLyrics(palette *artwork.Palette, height int, width int) []string {
	renderer := m.lyricRenderer(palette, width)
	lines := m.display.snap.Lyrics.Lines
	current := m.display.currentIndex
	slideT := m.animState.SlideOffset()

	contextCount := 2
	if height < 20 {
		contextCount = 1
	}

	type block struct {
		rows   []string
		offset int
	}
	var blocks []block
	focus := -1

	for offset := -contextCount - 1; offset <= contextCount+1; offset++ {
		idx := current + offset
		if offset == 0 {
			focus = len(blocks)
			if idx < 0 {
				// before the first line
				style := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))
				blocks = append(blocks, block{rows: []string{center(style.Render(restingGlyph), width)}})
			} else {
				blocks = append(blocks, block{rows: renderer.RenderFocus(lines[idx])})
			}
			continue
		}
		if idx < 0 || idx >= len(lines) {
			continue
		}

		var brightness float64
		switch {
		case offset == -1:
			brightness = lerp(0.7, 0.4, slideT)
		case offset == 1:
			brightness = lerp(0.35, 0.5, slideT)
		default:
			dist := max(offset, -offset)
			brightness = max(0.5-float64(dist-1)*0.1, 0.3)
		}
		blocks = append(blocks, block{rows: renderer.RenderContext(lines[idx], brightness, offset < 0), offset: offset})
	}

	const spacing = 1
	focusHeight := len(blocks[focus].rows)
	centerY := max((height-focusHeight)/2, 0)

	positions := make([]int, len(blocks))
	positions[focus] = centerY
	y := centerY
	for i := focus - 1; i >= 0; i-- {
		y -= len(blocks[i].rows) + spacing
		positions[i] = y
	}
	y = centerY + focusHeight + spacing
	for i := focus + 1; i < len(blocks); i++ {
		positions[i] = y
		y += len(blocks[i].rows) + spacing
	}

	// lines glide up into place after a change
	slide := int((1 - slideT) * float64(focusHeight+spacing))

	output := make([]string, max(height, 0))
	for i, b := range blocks {
		for j, row := range b.rows {
			r := positions[i] + slide + j
			if r < 0 || r >= len(output) {
				continue
			}
			if output[r] == "" || i == focus {
				output[r] = row
			}
		}
	}
	return output
}

func (m Model) renderPlainLyrics(palette *artwork.Palette, height int, width int) []string {
	renderer := m.lyricRenderer(palette, width)
	out := []string{center(lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Italic(true).Render("unsynced lyrics"), width), ""}
	for _, line := range m.display.snap.Lyrics.Lines {
		out = append(out, renderer.RenderContext(line, 0.8, false)...)
		if len(out) >= height {
			break
		}
	}
	return out
}

func (m Model) renderLoading(palette *artwork.Palette, height int, width int) []string {
	spinner := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Secondary)).Render(spinnerFrames[m.tickCount%len(spinnerFrames)])
	text := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Render(" loading lyrics")
	return append(make([]string, max(height/2-1, 0)), center(spinner+text, width))
}

func (m Model) renderNoLyrics(palette *artwork.Palette, height int, width int) []string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))
	return append(make([]string, max(height/2-1, 0)),
		center(style.Render(restingGlyph), width),
		center(style.Italic(true).Render("no lyrics found"), width),
	)
}
