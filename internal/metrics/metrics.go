// Package metrics turns settled-table events into counters and histograms
// for a pluggable Backend. The loader depends only on Backend; the Datadog
// implementation lives in the datadog subpackage.
package metrics

import (
	"github.com/vvka-141/pgfastload/internal/scheduler"
)

// Metric names. Backends may add a prefix.
const (
	TablesTotal   = "tables"
	RowsTotal     = "rows"
	TableDuration = "table.duration"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives metric samples. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }
func (Nop) Close() error                             { return nil }

// Recorder is a scheduler.Observer that reports every settled table.
type Recorder struct {
	backend Backend
}

func NewRecorder(backend Backend) *Recorder {
	if backend == nil {
		backend = Nop{}
	}
	return &Recorder{backend: backend}
}

func (r *Recorder) TableSettled(ev scheduler.Event) {
	outcome := Labels{"outcome": ev.Outcome.String()}
	r.backend.IncCounter(TablesTotal, 1, outcome)
	if ev.Rows > 0 {
		r.backend.IncCounter(RowsTotal, float64(ev.Rows), nil)
	}
	if ev.Outcome != scheduler.OutcomeNoData {
		r.backend.ObserveHistogram(TableDuration, ev.Duration.Seconds(), outcome)
	}
}

var (
	_ Backend            = Nop{}
	_ scheduler.Observer = (*Recorder)(nil)
)
