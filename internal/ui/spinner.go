package ui

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type doneMsg struct{}

type spinnerModel struct {
	spinner spinner.Model
	title   string
	done    bool
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + m.title + DimStyle.Render("  (ctrl+c to cancel)") + "\n"
}

// WithSpinner runs fn while a spinner with title is shown on out. When out
// is not a terminal fn simply runs. Interrupting the spinner cancels the
// context passed to fn.
func WithSpinner(ctx context.Context, out io.Writer, title string, fn func(ctx context.Context) error) error {
	if !IsTTY(out) {
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = TitleStyle

	p := tea.NewProgram(spinnerModel{spinner: sp, title: title}, tea.WithOutput(out), tea.WithContext(ctx))

	result := make(chan error, 1)
	go func() {
		result <- fn(ctx)
		p.Send(doneMsg{})
	}()

	final, runErr := p.Run()
	if m, ok := final.(spinnerModel); runErr == nil && ok && !m.done {
		// Interrupted before fn finished.
		cancel()
	}
	// Display errors are ignored; fn's result is what counts.
	return <-result
}
