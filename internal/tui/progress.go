package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/pgfastload/internal/scheduler"
)

// Progress reports settled tables while a load runs.
type Progress interface {
	scheduler.Observer
	Start()
	Stop()
}

// NewProgress returns a spinner line for interactive terminals and a
// periodic plain line otherwise.
func NewProgress(out io.Writer, interval time.Duration, interactive bool) Progress {
	if interactive {
		return newSpinnerProgress(out)
	}
	return newPlainProgress(out, interval)
}

type counts struct {
	loaded int
	noData int
	failed int
	rows   int64
}

func (c *counts) add(ev scheduler.Event) {
	switch ev.Outcome {
	case scheduler.OutcomeLoaded:
		c.loaded++
	case scheduler.OutcomeNoData:
		c.noData++
	case scheduler.OutcomeFailed:
		c.failed++
	}
	c.rows += ev.Rows
}

func (c counts) String() string {
	return fmt.Sprintf("%d tables loaded, %d without data, %d failed, %d rows",
		c.loaded, c.noData, c.failed, c.rows)
}

// plainProgress prints a line every interval.
type plainProgress struct {
	out      io.Writer
	interval time.Duration
	now      func() time.Time

	mu    sync.Mutex
	c     counts
	start time.Time

	stop chan struct{}
	done chan struct{}
}

func newPlainProgress(out io.Writer, interval time.Duration) *plainProgress {
	return &plainProgress{
		out:      out,
		interval: interval,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (p *plainProgress) TableSettled(ev scheduler.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.c.add(ev)
}

func (p *plainProgress) Start() {
	p.start = p.now()
	if p.interval <= 0 {
		close(p.done)
		return
	}
	go p.loop()
}

func (p *plainProgress) loop() {
	defer close(p.done)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			fmt.Fprintln(p.out, p.line())
		case <-p.stop:
			return
		}
	}
}

func (p *plainProgress) line() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("progress: %s (%s elapsed)", p.c, p.now().Sub(p.start).Round(time.Second))
}

func (p *plainProgress) Stop() {
	close(p.stop)
	<-p.done
}

// spinnerProgress drives a bubbletea program on out.
type spinnerProgress struct {
	program *tea.Program
	done    chan struct{}
}

func newSpinnerProgress(out io.Writer) *spinnerProgress {
	m := newProgressModel(time.Now)
	return &spinnerProgress{
		program: tea.NewProgram(m, tea.WithOutput(out), tea.WithInput(nil), tea.WithoutSignalHandler()),
		done:    make(chan struct{}),
	}
}

func (p *spinnerProgress) Start() {
	go func() {
		defer close(p.done)
		_, _ = p.program.Run()
	}()
}

func (p *spinnerProgress) TableSettled(ev scheduler.Event) {
	p.program.Send(settledMsg(ev))
}

func (p *spinnerProgress) Stop() {
	p.program.Send(stopMsg{})
	<-p.done
}

type settledMsg scheduler.Event

type stopMsg struct{}

type progressModel struct {
	spinner  spinner.Model
	c        counts
	now      func() time.Time
	start    time.Time
	stopping bool
}

func newProgressModel(now func() time.Time) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return progressModel{spinner: s, now: now, start: now()}
}

// Init implements tea.Model.
func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case settledMsg:
		m.c.add(scheduler.Event(msg))
		return m, nil
	case stopMsg:
		m.stopping = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model. The line is cleared on stop so the summary
// follows directly.
func (m progressModel) View() string {
	if m.stopping {
		return ""
	}
	elapsed := m.now().Sub(m.start).Round(time.Second)
	return m.spinner.View() + " " + m.c.String() + MutedStyle.Render(fmt.Sprintf(" (%s)", elapsed))
}
