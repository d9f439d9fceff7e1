// Package ui renders a spinner while a resolution runs in the foreground.
package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vidsan-cli/vidsan/color"
	"github.com/vidsan-cli/vidsan/style"
	"golang.org/x/term"
)

// doneMsg carries the outcome of the task.
type doneMsg struct {
	value any
	err   error
}

// model spins until the task finishes.
type model struct {
	spinner spinner.Model
	title   string
	task    func() (any, error)

	value any
	err   error
	done  bool
}

func newModel(title string, task func() (any, error)) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = style.New().Foreground(color.Purple)

	return &model{spinner: s, title: title, task: task}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		value, err := m.task()
		return doneMsg{value: value, err: err}
	})
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.value, m.err, m.done = msg.value, msg.err, true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.err, m.done = ErrInterrupted, true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), style.Faint(m.title))
}

// Interactive reports whether stdout and stdin are terminals.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

// Spin runs task and shows title with a spinner meanwhile. Outside a
// terminal the task runs without any output.
func Spin[T any](title string, task func() (T, error)) (T, error) {
	var zero T
	if !Interactive() {
		return task()
	}

	m := newModel(title, func() (any, error) { return task() })
	if _, err := tea.NewProgram(m, tea.WithOutput(os.Stderr)).Run(); err != nil {
		return zero, err
	}
	if m.err != nil {
		return zero, m.err
	}

	value, _ := m.value.(T)
	return value, nil
}
