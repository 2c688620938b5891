package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/garmindl/internal/models"
	"github.com/j-veylop/garmindl/internal/services/download"
	"github.com/j-veylop/garmindl/internal/ui/components"
	"github.com/j-veylop/garmindl/internal/ui/styles"
)

const defaultWidth = 60

// KeyMap defines the keybindings of the progress view.
type KeyMap struct {
	Quit key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "cancel")),
	}
}

// Model shows a run's progress until it finishes.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	runner  Runner
	state   *State
	report  *models.RunReport
	err     error
	keys    KeyMap
	req     models.Request
	spinner components.LoadingSpinner
	bar     components.UnitBar
	width   int
	stopped chan struct{}

	cancelled bool
	done      bool
}

// NewModel creates the progress model for req. Cancelling from the keyboard
// cancels ctx for the run.
func NewModel(ctx context.Context, runner Runner, req models.Request) *Model {
	ctx, cancel := context.WithCancel(ctx)
	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		runner:  runner,
		req:     req,
		state:   NewState(req.UnitCount()),
		keys:    DefaultKeyMap(),
		spinner: components.NewSpinner("Opening Garmin session..."),
		bar:     components.NewUnitBar(defaultWidth),
		width:   defaultWidth,
		stopped: make(chan struct{}),
	}
}

// Init starts the run, the event listener and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick(),
		startRunCmd(m.ctx, m.runner, m.req, m.stopped),
		waitForEventCmd(m.runner),
	)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.SetWidth(min(msg.Width, 100))
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			if m.cancelled {
				// Second press: stop waiting for the run to unwind.
				return m, tea.Quit
			}
			m.cancelled = true
			m.cancel()
			m.spinner.SetLabel("Cancelling...")
		}
		return m, nil

	case download.Event:
		m.state.Apply(msg)
		m.syncLabel()
		if msg.Type == download.EventRunFinished {
			return m, nil
		}
		return m, waitForEventCmd(m.runner)

	case RunDoneMsg:
		m.report = msg.Report
		m.err = msg.Err
		m.done = true
		m.cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) syncLabel() {
	if m.cancelled {
		return
	}
	switch m.state.Phase() {
	case PhaseStarting:
		m.spinner.SetLabel("Opening Garmin session...")
	case PhaseDownloading:
		if current := m.state.Current(); current != "" {
			m.spinner.SetLabel("Fetching " + current)
		}
	case PhaseDone:
		m.spinner.SetLabel("Done")
	}
}

// View renders the progress view.
func (m *Model) View() string {
	var b strings.Builder

	title := styles.TitleStyle.Render(fmt.Sprintf("garmindl %d", m.req.Year))
	if id := m.state.RunID(); id != "" {
		title += " " + styles.MutedTextStyle.Render(shortID(id))
	}
	b.WriteString(title)
	b.WriteString("\n\n")

	done, total := m.state.Progress()
	b.WriteString(m.bar.View(done, total))
	b.WriteString("\n")

	for _, unit := range m.state.Finished() {
		b.WriteString(m.unitLine(unit))
		b.WriteString("\n")
	}

	if !m.done {
		b.WriteString("\n")
		b.WriteString(m.spinner.View())
		b.WriteString("\n")
		b.WriteString(styles.HelpStyle.Render(m.keys.Quit.Help().Key + " " + m.keys.Quit.Help().Desc))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) unitLine(unit models.UnitResult) string {
	mark := map[models.UnitStatus]string{
		models.UnitOK:      "✓",
		models.UnitEmpty:   "○",
		models.UnitFailed:  "✗",
		models.UnitSkipped: "-",
	}[unit.Status]

	style := styles.GetStatusStyle(string(unit.Status))
	if unit.Status == models.UnitEmpty {
		style = styles.MutedTextStyle
	}
	label := lipgloss.NewStyle().Foreground(styles.GetKindColor(string(unit.Kind))).Render(unit.Label())

	var detail string
	switch unit.Status {
	case models.UnitOK, models.UnitEmpty:
		detail = fmt.Sprintf("%s rows, %s", humanize.Comma(int64(unit.Rows)), humanize.Bytes(uint64(unit.Bytes)))
		if len(unit.Warnings) > 0 {
			detail += styles.WarningTextStyle.Render(fmt.Sprintf(" (%d warnings)", len(unit.Warnings)))
		}
	case models.UnitFailed:
		if unit.Err != nil {
			detail = styles.ErrorTextStyle.Render(ansi.Truncate(unit.Err.Error(), max(m.width-24, 20), "…"))
		}
	case models.UnitSkipped:
		detail = styles.MutedTextStyle.Render("skipped")
	}

	return fmt.Sprintf("%s %s  %s", style.Render(mark), label, detail)
}

// Result returns the run outcome once the program has exited. The report is
// nil when the run never returned.
func (m *Model) Result() (*models.RunReport, error) {
	return m.report, m.err
}

// Cancelled reports whether the user cancelled the run.
func (m *Model) Cancelled() bool {
	return m.cancelled
}

// Wait blocks until the run goroutine has returned or timeout passes. The
// program can exit before that when the user quits twice. It reports whether
// the run stopped.
func (m *Model) Wait(timeout time.Duration) bool {
	m.cancel()
	select {
	case <-m.stopped:
		return true
	case <-time.After(timeout):
		return false
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
