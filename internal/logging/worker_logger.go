package logging

import (
	"fmt"

	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// WorkerLogger prefixes every message with the worker identity, producing
// lines of the form "<worker>: <message>".
type WorkerLogger struct {
	prefix string
	next   fastload.Logger
}

// WithWorker wraps next so that every message is attributed to worker.
func WithWorker(next fastload.Logger, worker fmt.Stringer) *WorkerLogger {
	return &WorkerLogger{prefix: worker.String() + ": ", next: next}
}

func (l *WorkerLogger) Verbose(format string, args ...interface{}) {
	l.next.Verbose(l.prefix+format, args...)
}

func (l *WorkerLogger) Info(format string, args ...interface{}) {
	l.next.Info(l.prefix+format, args...)
}

func (l *WorkerLogger) Warn(format string, args ...interface{}) {
	l.next.Warn(l.prefix+format, args...)
}

func (l *WorkerLogger) Error(format string, args ...interface{}) {
	l.next.Error(l.prefix+format, args...)
}

var (
	_ fastload.Logger = (*ConsoleLogger)(nil)
	_ fastload.Logger = (*NullLogger)(nil)
	_ fastload.Logger = (*WorkerLogger)(nil)
)
