package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/destiny-cli/internal/application"
)

type bootDoneMsg struct {
	err error
}

// bootProgressMsg replaces the spinner label.
type bootProgressMsg string

type bootSpinnerModel struct {
	spinner  spinner.Model
	label    string
	wait     tea.Cmd
	progress <-chan string
	stop     <-chan struct{}
	err      error
	done     bool
}

func newBootSpinnerModel(label string, wait tea.Cmd, progress <-chan string, stop <-chan struct{}) bootSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("214"))),
	)

	return bootSpinnerModel{
		spinner:  s,
		label:    label,
		wait:     wait,
		progress: progress,
		stop:     stop,
	}
}

func (m bootSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.wait, m.listen())
}

// listen yields the next progress label, or nothing once the spinner stopped.
func (m bootSpinnerModel) listen() tea.Cmd {
	if m.progress == nil {
		return nil
	}
	progress, stop := m.progress, m.stop
	return func() tea.Msg {
		select {
		case label := <-progress:
			return bootProgressMsg(label)
		case <-stop:
			return nil
		}
	}
}

func (m bootSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case bootProgressMsg:
		m.label = string(msg)
		return m, m.listen()
	case bootDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m bootSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// bootLabel describes how far the bootstrap got, for the events worth showing.
func bootLabel(event application.Event) (string, bool) {
	switch event.Kind {
	case application.EventRefresh:
		return "Looking up your Bungie.net account...", true
	case application.EventChanged:
		if event.Field == "username" && event.To != "" {
			return fmt.Sprintf("Searching Destiny for %v...", event.To), true
		}
	case application.EventUpdate:
		return "Loading characters...", true
	}
	return "", false
}

// subscribeBootProgress forwards bootstrap progress labels from client. Labels
// are dropped rather than blocking the client when nobody reads them.
func subscribeBootProgress(client *application.Client) (<-chan string, func()) {
	progress := make(chan string, 8)
	unsubscribe := client.Subscribe(func(event application.Event) {
		label, ok := bootLabel(event)
		if !ok {
			return
		}
		select {
		case progress <- label:
		default:
		}
	})
	return progress, unsubscribe
}

// runBootSpinner shows a spinner on output while wait runs and returns its
// error. The label follows progress until wait returns.
func runBootSpinner(ctx context.Context, output io.Writer, label string, progress <-chan string, wait func(context.Context) error) error {
	stop := make(chan struct{})
	defer close(stop)

	waitCmd := func() tea.Msg {
		return bootDoneMsg{err: wait(ctx)}
	}

	p := tea.NewProgram(
		newBootSpinnerModel(label, waitCmd, progress, stop),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(bootSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
