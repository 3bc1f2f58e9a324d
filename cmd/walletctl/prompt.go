package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/keepkey-host/kkcore/internal/interactive"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2563EB"))
	hintStyle  = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
)

type promptEventMsg interactive.PromptEvent

type operationDoneMsg struct {
	err error
}

// promptModel drives the PIN matrix and passphrase prompts for a
// single device operation. It owns nothing about the operation
// itself: the caller runs the operation in its own goroutine and
// signals completion on done.
type promptModel struct {
	handle handleSurface

	events <-chan interactive.PromptEvent
	done   <-chan error

	waiting   bool
	kind      interactive.Kind
	sessionID string
	input     textinput.Model

	err      error
	finished bool
}

// handleSurface is the minimal surface promptModel needs from a
// worker.Handle; kept as an interface so this file has no import-cycle
// concern with package worker.
type handleSurface interface {
	ProvidePIN(sessionID, pin string) bool
	ProvidePassphrase(sessionID, passphrase string) bool
	CancelPrompt(sessionID string) bool
}

func newPromptModel(h handleSurface, events <-chan interactive.PromptEvent, done <-chan error) promptModel {
	ti := textinput.New()
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.CharLimit = 50
	return promptModel{handle: h, events: events, done: done, input: ti}
}

func waitForPromptEvent(events <-chan interactive.PromptEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return promptEventMsg(ev)
	}
}

func waitForDone(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return operationDoneMsg{err: <-done}
	}
}

func (m promptModel) Init() tea.Cmd {
	return tea.Batch(waitForPromptEvent(m.events), waitForDone(m.done))
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case promptEventMsg:
		m.waiting = true
		m.kind = msg.Kind
		m.sessionID = msg.SessionID
		m.input.SetValue("")
		m.input.Focus()
		return m, nil

	case operationDoneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if !m.waiting {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyEnter:
			text := m.input.Value()
			switch m.kind {
			case interactive.KindPassphrase:
				m.handle.ProvidePassphrase(m.sessionID, text)
			default:
				m.handle.ProvidePIN(m.sessionID, text)
			}
			m.waiting = false
			return m, waitForPromptEvent(m.events)
		case tea.KeyEsc, tea.KeyCtrlC:
			m.handle.CancelPrompt(m.sessionID)
			m.waiting = false
			return m, waitForPromptEvent(m.events)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.finished {
		return ""
	}
	if !m.waiting {
		return hintStyle.Render("waiting on device...") + "\n"
	}
	label := "Enter PIN"
	hint := "device screen shows a scrambled 3x3 layout; enter the positions as digits 1-9"
	if m.kind == interactive.KindPassphrase {
		label = "Enter passphrase"
		hint = "this passphrase is never stored"
	}
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s\n",
		titleStyle.Render(label),
		hintStyle.Render(hint),
		m.input.View(),
		hintStyle.Render("enter to submit, esc to cancel"))
}

func runInteractive(run func(emit func(interactive.PromptEvent)) (<-chan error, handleSurface)) error {
	events := make(chan interactive.PromptEvent, 4)
	done, handle := run(func(ev interactive.PromptEvent) { events <- ev })

	m := newPromptModel(handle, events, done)
	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(promptModel); ok {
		return fm.err
	}
	return nil
}
