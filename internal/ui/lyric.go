package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"karolbroda.com/lyrelay/internal/artwork"
	"karolbroda.com/lyrelay/internal/colors"
	"karolbroda.com/lyrelay/internal/lyrics"
)

const (
	lyricMargin  = 8
	restingGlyph = "♪"
)

// LyricRenderer draws lyric lines with their annotations. Widths are measured
// in terminal cells so wide scripts wrap and center correctly.
type LyricRenderer struct {
	palette         *artwork.Palette
	anim            *AnimState
	screenWidth     int
	showPhonetic    bool
	showTranslation bool
	// annotationFade runs from 0 to 1 after the focus changes.
	annotationFade float64
}

func (r *LyricRenderer) maxWidth() int {
	return max(r.screenWidth-lyricMargin, 10)
}

// RenderFocus draws the active line with a moving gradient, followed by its
// phonetic and translation rows when those are shown and present.
func (r *LyricRenderer) RenderFocus(line lyrics.Line) []string {
	text := line.Text
	if text == "" {
		text = "···"
	}

	var out []string
	for _, row := range wrap(text, r.maxWidth()) {
		out = append(out, center(r.shimmer(row), r.screenWidth))
	}

	annotation := colors.BlendColors(r.palette.Dim, r.palette.Accent, r.annotationFade)
	if r.showPhonetic && line.Phonetic.Text != "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(annotation)).Italic(true)
		for _, row := range wrap(line.Phonetic.Text, r.maxWidth()) {
			out = append(out, center(style.Render(row), r.screenWidth))
		}
	}
	if r.showTranslation && line.Translation.Text != "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(colors.BlendColors(r.palette.Dim, r.palette.Secondary, r.annotationFade*0.7)))
		for _, row := range wrap(line.Translation.Text, r.maxWidth()) {
			out = append(out, center(style.Render(row), r.screenWidth))
		}
	}
	return out
}

// RenderContext draws a neighbouring line, dimmed by brightness.
func (r *LyricRenderer) RenderContext(line lyrics.Line, brightness float64, past bool) []string {
	text := line.Text
	if text == "" {
		text = "···"
	}

	base := r.palette.Secondary
	if past {
		base = r.palette.Dim
	}
	fg := colors.BlendColors("#1A1A1A", base, clamp(brightness, 0, 1))
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(fg))

	var out []string
	for _, row := range wrap(text, r.maxWidth()) {
		out = append(out, center(style.Render(row), r.screenWidth))
	}
	return out
}

// shimmer colors text along the palette gradient, scrolled by the animation
// phase. Runes not yet revealed are drawn dim.
func (r *LyricRenderer) shimmer(text string) string {
	runes := []rune(text)
	gradient := r.palette.Gradient
	if len(gradient) == 0 {
		gradient = []string{r.palette.Primary}
	}

	revealed := int(math.Ceil(r.anim.CharReveal * float64(len(runes))))
	var b strings.Builder
	for i, ch := range runes {
		if i >= revealed {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(r.palette.Dim)).Render(string(ch)))
			continue
		}

		pos := float64(i) / float64(max(len(runes)-1, 1))
		wave := (math.Sin((pos-r.anim.ShimmerPhase)*2*math.Pi) + 1) / 2
		c := gradient[int(wave*float64(len(gradient)-1))]
		if r.anim.GlowIntensity > 0 {
			c = colors.BlendColors(c, "#FFFFFF", r.anim.GlowIntensity*0.4)
		}
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Bold(true).Render(string(ch)))
	}
	return b.String()
}

// wrap breaks text into rows no wider than width cells. Words are kept
// whole where they fit; unspaced runs such as CJK break between runes.
func wrap(text string, width int) []string {
	var rows []string
	var row strings.Builder
	rowWidth := 0

	flush := func() {
		if row.Len() > 0 {
			rows = append(rows, row.String())
		}
		row.Reset()
		rowWidth = 0
	}

	for _, word := range strings.Fields(text) {
		w := lipgloss.Width(word)
		sep := 0
		if rowWidth > 0 {
			sep = 1
		}
		if rowWidth+sep+w <= width {
			if sep == 1 {
				row.WriteByte(' ')
			}
			row.WriteString(word)
			rowWidth += sep + w
			continue
		}
		flush()
		if w <= width {
			row.WriteString(word)
			rowWidth = w
			continue
		}
		for _, ch := range word {
			cw := lipgloss.Width(string(ch))
			if rowWidth+cw > width {
				flush()
			}
			row.WriteRune(ch)
			rowWidth += cw
		}
	}
	flush()
	return rows
}

func center(text string, screenWidth int) string {
	padding := (screenWidth - lipgloss.Width(text)) / 2
	if padding <= 0 {
		return text
	}
	return strings.Repeat(" ", padding) + text
}
