// Package tui provides a BubbleTea popup presenter for terminals.
package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/jmylchreest/notiwin/internal/popup"
)

const (
	maxBoxWidth = 60
	maxRowChars = 200
	ageInterval = time.Second
)

// Messages sent by Presenter. Each carries the instance it belongs to.
type (
	openMsg struct {
		id      string
		dismiss func()
	}
	renderMsg struct {
		id   string
		view popup.View
	}
	clearSelectionMsg struct{ id string }
	opacityMsg        struct {
		id      string
		opacity float64
	}
	closeMsg struct{ id string }
	tickMsg  time.Time
)

// Model is the TUI model. It shows the newest popup instance; messages for
// an instance that has been replaced are ignored.
type Model struct {
	keys KeyMap
	help help.Model
	now  func() time.Time

	id       string
	dismiss  func()
	view     popup.View
	opacity  float64
	visible  bool
	selected int

	width int
}

// New creates a new TUI model.
func New() Model {
	return Model{
		keys:     DefaultKeyMap(),
		help:     help.New(),
		now:      time.Now,
		selected: -1,
	}
}

// Init starts the age ticker.
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(ageInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m, tick()

	case openMsg:
		m.id = msg.id
		m.dismiss = msg.dismiss
		m.view = popup.View{}
		m.opacity = 1
		m.visible = true
		m.selected = -1
		return m, nil
	}

	if id, ok := instanceOf(msg); !ok || id != m.id {
		return m, nil
	}

	switch msg := msg.(type) {
	case renderMsg:
		m.view = msg.view
		if m.selected >= len(m.view.Notifications) {
			m.selected = -1
		}
	case clearSelectionMsg:
		m.selected = -1
	case opacityMsg:
		m.opacity = min(max(msg.opacity, 0), 1)
	case closeMsg:
		m.visible = false
		m.dismiss = nil
	}
	return m, nil
}

func instanceOf(msg tea.Msg) (string, bool) {
	switch msg := msg.(type) {
	case renderMsg:
		return msg.id, true
	case clearSelectionMsg:
		return msg.id, true
	case opacityMsg:
		return msg.id, true
	case closeMsg:
		return msg.id, true
	}
	return "", false
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Dismiss):
		if !m.visible || m.dismiss == nil {
			return m, nil
		}
		// The controller may be blocked sending to this program, so the
		// callback runs off the event loop.
		dismiss := m.dismiss
		return m, func() tea.Msg {
			dismiss()
			return nil
		}
	case msg.Type == tea.KeyUp:
		if n := len(m.view.Notifications); n > 0 {
			if m.selected <= 0 {
				m.selected = n - 1
			} else {
				m.selected--
			}
		}
		return m, nil
	case msg.Type == tea.KeyDown:
		if n := len(m.view.Notifications); n > 0 {
			m.selected = (m.selected + 1) % n
		}
		return m, nil
	}
	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	footer := m.help.View(m.keys)
	if !m.visible {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("no notifications") + "\n" + footer
	}

	now := m.now()
	rows := make([]string, 0, len(m.view.Notifications))
	for i, n := range m.view.Notifications {
		row := n.TextTruncated(maxRowChars) + "  " + humanize.RelTime(n.CreatedAt, now, "ago", "from now")
		if n.Severity.IsError() {
			row = "! " + row
		}
		if i == m.selected {
			row = lipgloss.NewStyle().Reverse(true).Render(row)
		}
		rows = append(rows, row)
	}

	box := lipgloss.NewStyle().
		Background(lipgloss.Color(m.background())).
		Foreground(lipgloss.Color(m.foreground())).
		Padding(0, 1).
		Width(m.boxWidth())

	return box.Render(strings.Join(rows, "\n")) + "\n" + footer
}

func (m Model) boxWidth() int {
	if m.width > 0 && m.width-2 < maxBoxWidth {
		return max(m.width-2, 10)
	}
	return maxBoxWidth
}

// background blends the popup colour toward black as opacity drops.
func (m Model) background() string {
	return fade(m.view.Background, m.opacity, colorful.Color{})
}

func (m Model) foreground() string {
	return fade("#eceff4", m.opacity, colorful.Color{})
}

func fade(hex string, opacity float64, toward colorful.Color) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		c = colorful.Color{}
	}
	return c.BlendRgb(toward, 1-opacity).Clamped().Hex()
}
