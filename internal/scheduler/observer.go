package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vvka-141/pgfastload/internal/schema"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// Outcome classifies how a table settled.
type Outcome int

const (
	// OutcomeLoaded means the Action ran and succeeded.
	OutcomeLoaded Outcome = iota
	// OutcomeNoData means the table had no data file and was treated as loaded.
	OutcomeNoData
	// OutcomeFailed means the Action returned an error. The table still
	// counts as loaded for its dependents.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoaded:
		return "loaded"
	case OutcomeNoData:
		return "no_data"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Event describes one table reaching the Loaded phase.
type Event struct {
	Worker   CallerID
	Table    schema.Table
	Path     string
	Outcome  Outcome
	Rows     int64
	Err      error
	Duration time.Duration
}

// Observer receives an Event for every settled table. Implementations must
// be safe for concurrent use; TableSettled is called from worker goroutines
// outside the coordinator's lock.
type Observer interface {
	TableSettled(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) TableSettled(ev Event) { f(ev) }

// Observers fans an event out to each observer in order.
type Observers []Observer

func (o Observers) TableSettled(ev Event) {
	for _, obs := range o {
		obs.TableSettled(ev)
	}
}

// Failure is one failed table in a Summary.
type Failure struct {
	Table   string
	Message string
}

// Summary counts settled tables per outcome.
type Summary struct {
	Loaded   int
	NoData   int
	Failed   int
	Rows     int64
	Failures []Failure
}

// Settled returns the number of tables that reached the Loaded phase.
func (s Summary) Settled() int {
	return s.Loaded + s.NoData + s.Failed
}

// Tally accumulates a Summary from events.
type Tally struct {
	mu      sync.Mutex
	summary Summary
}

func (t *Tally) TableSettled(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch ev.Outcome {
	case OutcomeLoaded:
		t.summary.Loaded++
	case OutcomeNoData:
		t.summary.NoData++
	case OutcomeFailed:
		t.summary.Failed++
		t.summary.Failures = append(t.summary.Failures, Failure{
			Table:   ev.Table.String(),
			Message: preview(ev.Err),
		})
	}
	t.summary.Rows += ev.Rows
}

// Summary returns a snapshot. Failures are sorted by table.
func (t *Tally) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.summary
	s.Failures = append([]Failure(nil), t.summary.Failures...)
	sort.Slice(s.Failures, func(i, j int) bool { return s.Failures[i].Table < s.Failures[j].Table })
	return s
}

func preview(err error) string {
	if err == nil {
		return ""
	}
	msg := []rune(err.Error())
	if len(msg) > fastload.MaxErrorPreviewLength {
		return string(msg[:fastload.MaxErrorPreviewLength]) + "..."
	}
	return string(msg)
}
