package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmylchreest/notiwin/internal/popup"
)

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Factory creates terminal presenters that drive one BubbleTea program.
type Factory struct {
	sender Sender
}

// NewFactory creates a presenter factory for the given program.
func NewFactory(sender Sender) *Factory {
	return &Factory{sender: sender}
}

// NewPresenter switches the program to a new popup instance.
func (f *Factory) NewPresenter(instanceID string, dismiss func()) (popup.Presenter, error) {
	f.sender.Send(openMsg{id: instanceID, dismiss: dismiss})
	return &Presenter{id: instanceID, sender: f.sender}, nil
}

// Presenter forwards popup calls to the program as messages.
type Presenter struct {
	id     string
	sender Sender
}

func (p *Presenter) Render(view popup.View) {
	p.sender.Send(renderMsg{id: p.id, view: view})
}

func (p *Presenter) ClearSelection() {
	p.sender.Send(clearSelectionMsg{id: p.id})
}

func (p *Presenter) SetOpacity(opacity float64) {
	p.sender.Send(opacityMsg{id: p.id, opacity: opacity})
}

func (p *Presenter) Close() {
	p.sender.Send(closeMsg{id: p.id})
}

// NewProgram creates a program on the alternate screen and a factory bound to it.
// The caller runs the program with p.Run.
func NewProgram(opts ...tea.ProgramOption) (*tea.Program, *Factory) {
	p := tea.NewProgram(New(), append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
	return p, NewFactory(p)
}
