package scheduler

import "fmt"

// CallerID identifies a caller of the Coordinator across its recursive
// dependency walk. It is explicit and never derived from goroutine identity.
type CallerID string

func (id CallerID) String() string { return string(id) }

// WorkerID returns the caller id of pool worker n (1-based).
func WorkerID(n int) CallerID {
	return CallerID(fmt.Sprintf("worker-%02d", n))
}

// LoadPhase is the lifecycle of one table within a run. Phases only move
// forward: Unloaded, Loading, Loaded.
type LoadPhase int

const (
	Unloaded LoadPhase = iota
	Loading
	Loaded
)

func (p LoadPhase) String() string {
	switch p {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return fmt.Sprintf("LoadPhase(%d)", int(p))
	}
}

// loadState is created on first touch and never removed.
type loadState struct {
	phase LoadPhase
	owner CallerID
}
