package tui

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgfastload/internal/scheduler"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPlainProgress_PrintsPeriodically(t *testing.T) {
	out := &syncBuffer{}
	p := NewProgress(out, 5*time.Millisecond, false)
	p.Start()

	p.TableSettled(scheduler.Event{Outcome: scheduler.OutcomeLoaded, Rows: 7})
	p.TableSettled(scheduler.Event{Outcome: scheduler.OutcomeNoData})

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "1 tables loaded, 1 without data, 0 failed, 7 rows")
	}, 2*time.Second, time.Millisecond)
	p.Stop()
	assert.True(t, strings.HasPrefix(out.String(), "progress: "))
}

func TestPlainProgress_ZeroIntervalIsSilent(t *testing.T) {
	out := &syncBuffer{}
	p := NewProgress(out, 0, false)
	p.Start()
	p.TableSettled(scheduler.Event{Outcome: scheduler.OutcomeFailed})
	p.Stop()
	assert.Empty(t, out.String())
}

func TestProgressModel(t *testing.T) {
	start := time.Unix(1000, 0)
	clock := start
	m := newProgressModel(func() time.Time { return clock })
	assert.NotNil(t, m.Init())

	var model tea.Model = m
	model, _ = model.Update(settledMsg{Outcome: scheduler.OutcomeLoaded, Rows: 3})
	model, _ = model.Update(settledMsg{Outcome: scheduler.OutcomeFailed})
	model, _ = model.Update(spinner.TickMsg{})
	clock = start.Add(4 * time.Second)

	view := model.View()
	assert.Contains(t, view, "1 tables loaded, 0 without data, 1 failed, 3 rows")
	assert.Contains(t, view, "(4s)")

	model, cmd := model.Update(stopMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, model.View())
}
