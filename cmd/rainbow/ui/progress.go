package ui

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrInterrupted is returned by RunProgress when the user cancels from the
// keyboard before the worker finishes.
var ErrInterrupted = errors.New("interrupted")

// ProgressMsg reports the worker's completion count to the progress model.
type ProgressMsg struct {
	Done int
}

type workerDoneMsg struct {
	err error
}

// ProgressModel displays a spinner, a label and a completion bar for a
// long-running worker.
type ProgressModel struct {
	spinner spinner.Model
	bar     progress.Model
	styles  Styles

	label string
	done  int
	total int

	err         error
	finished    bool
	interrupted bool
}

// NewProgressModel creates a progress display for total units of work.
func NewProgressModel(label string, total int) ProgressModel {
	styles := DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return ProgressModel{
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		styles:  styles,
		label:   label,
		total:   total,
	}
}

// Init starts the spinner ticking.
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.interrupted = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		w := msg.Width - 24
		if w < 10 {
			w = 10
		}
		if w > 60 {
			w = 60
		}
		m.bar.Width = w

	case ProgressMsg:
		m.done = msg.Done
		if m.done > m.total {
			m.done = m.total
		}

	case workerDoneMsg:
		m.err = msg.err
		m.finished = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress line. After the worker finishes the line is
// cleared so the command's own output starts clean.
func (m ProgressModel) View() string {
	if m.finished {
		return ""
	}

	frac := 0.0
	if m.total > 0 {
		frac = float64(m.done) / float64(m.total)
	}

	count := m.styles.Muted.Render(fmt.Sprintf("%d/%d", m.done, m.total))
	return fmt.Sprintf("%s %s %s %s\n",
		m.spinner.View(),
		m.styles.Body.Render(m.label),
		m.bar.ViewAs(frac),
		count,
	)
}

// RunProgress runs fn under an inline progress display. The worker reports
// completed units through the report callback. When stdout is not a terminal
// the worker runs directly with no display at all.
func RunProgress(label string, total int, fn func(report func(done int)) error) error {
	if !IsTerminal(os.Stdout.Fd()) {
		return fn(func(int) {})
	}

	p := tea.NewProgram(NewProgressModel(label, total))

	go func() {
		err := fn(func(done int) {
			p.Send(ProgressMsg{Done: done})
		})
		p.Send(workerDoneMsg{err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}

	m, ok := final.(ProgressModel)
	if !ok {
		return nil
	}
	if m.interrupted {
		return ErrInterrupted
	}
	return m.err
}
