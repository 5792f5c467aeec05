package ui

import (
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case snapshotMsg:
		return m.handleSnapshot(msg)

	case artworkMsg:
		return m.handleArtwork(msg)

	case frameMsg:
		return m.handleFrame()
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "k", "+", "=":
		m.shiftOffset(0.1)
	case "down", "j", "-":
		m.shiftOffset(-0.1)
	case "right", "l":
		m.shiftOffset(0.5)
	case "left", "h":
		m.shiftOffset(-0.5)
	case "0":
		m.syncOffset = 0
		m.refreshPosition()
		m.updateLyricIndex()

	case "tab", "i":
		m.hideHeader = !m.hideHeader
	case "p":
		m.showPhonetic = !m.showPhonetic
	case "t":
		m.showTranslation = !m.showTranslation
	}

	return m, nil
}

func (m *Model) shiftOffset(delta float64) {
	// keep the offset on a tenth of a second grid
	m.syncOffset = math.Round((m.syncOffset+delta)*10) / 10
	m.refreshPosition()
	m.updateLyricIndex()
}

func (m Model) handleSnapshot(msg snapshotMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.pollCmd()}

	if msg.err != nil {
		m.feedErr = msg.err
		return m, tea.Batch(cmds...)
	}
	m.feedErr = nil

	if cmd := m.applySnapshot(msg.snap); cmd != nil {
		cmds = append(cmds, cmd)
	}
	m.refreshPosition()
	if m.updateLyricIndex() {
		m.animState.Update(m.tickCount, true, transitionTicks)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleArtwork(msg artworkMsg) (tea.Model, tea.Cmd) {
	// the track may have moved on while the image loaded
	if msg.url != m.display.artworkURL {
		return m, nil
	}
	if msg.err != nil || msg.image == nil {
		return m, nil
	}
	m.display.image = msg.image
	if msg.palette != nil {
		m.display.palette = msg.palette
	}
	return m, nil
}

func (m Model) handleFrame() (tea.Model, tea.Cmd) {
	m.tickCount++
	m.refreshPosition()
	lineChanged := m.updateLyricIndex()
	m.animState.Update(m.tickCount, lineChanged, transitionTicks)
	return m, frameCmd()
}

// elapsedSinceLineChange is used by the view to fade in annotations.
func (m Model) elapsedSinceLineChange() time.Duration {
	return m.now().Sub(m.lastLineChange)
}
