package ui

import (
	"io"
	"strings"
	"sync"

	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenilsonani/rm-rfp/internal/progress"
	"github.com/fenilsonani/rm-rfp/internal/ui/styles"
)

type sampleMsg progress.Sample

type finishMsg progress.Sample

// statusModel is an inline, input-less bubbletea model redrawn in place
type statusModel struct {
	sample   progress.Sample
	hasData  bool
	bar      bprogress.Model
	spinner  spinner.Model
	width    int
	finished bool
}

func newStatusModel() statusModel {
	return statusModel{
		bar: bprogress.New(bprogress.WithDefaultGradient(), bprogress.WithoutPercentage()),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(styles.SpinnerStyle),
		),
		width: DefaultWidth,
	}
}

func (m statusModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sampleMsg:
		m.sample = progress.Sample(msg)
		m.hasData = true
		return m, nil

	case finishMsg:
		m.sample = progress.Sample(msg)
		m.hasData = true
		m.finished = true
		return m, tea.Quit

	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m statusModel) View() string {
	if !m.hasData {
		return m.spinner.View() + " starting..."
	}

	s := m.sample
	lines := []string{CountsLine(s, StyledPainter)}

	switch {
	case s.HasTotal:
		m.bar.Width = max(10, m.width/3)
		lines = append(lines, m.bar.ViewAs(s.Fraction)+" "+PercentText(s))
	case !m.finished:
		if est := EstimateText(s, StyledPainter); est != "" {
			lines = append(lines, m.spinner.View()+" "+est)
		} else {
			lines = append(lines, m.spinner.View())
		}
	}

	if !m.finished {
		if path := PathLine(s, m.width-2, StyledPainter); path != "" {
			lines = append(lines, path)
		}
	}
	return strings.Join(lines, "\n")
}

// TeaDisplay draws the status with bubbletea on out. It reads no input so
// prompts can own stdin.
type TeaDisplay struct {
	program *tea.Program
	done    chan struct{}

	mu  sync.Mutex
	err error
}

// NewTeaDisplay starts the status program
func NewTeaDisplay(out io.Writer) *TeaDisplay {
	d := &TeaDisplay{
		program: tea.NewProgram(newStatusModel(),
			tea.WithInput(nil),
			tea.WithOutput(out),
			tea.WithoutSignalHandler(),
		),
		done: make(chan struct{}),
	}
	go func() {
		defer close(d.done)
		if _, err := d.program.Run(); err != nil {
			d.mu.Lock()
			d.err = err
			d.mu.Unlock()
		}
	}()
	return d
}

// Render sends a new sample to the program
func (d *TeaDisplay) Render(s progress.Sample) {
	d.program.Send(sampleMsg(s))
}

// Suspend hands the terminal back while fn runs
func (d *TeaDisplay) Suspend(fn func()) {
	if err := d.program.ReleaseTerminal(); err != nil {
		fn()
		return
	}
	fn()
	_ = d.program.RestoreTerminal()
}

// Finish draws the final sample, leaves it on screen and waits for the
// program to exit
func (d *TeaDisplay) Finish(s progress.Sample) {
	d.program.Send(finishMsg(s))
	<-d.done
}

// Err returns the error the program exited with, if any
func (d *TeaDisplay) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}
