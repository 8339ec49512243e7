package logging

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufferedLogger(verbose bool) (*ConsoleLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewConsoleLogger(verbose)
	l.out = &buf
	return l, &buf
}

func TestConsoleLogger_Levels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		log     func(l *ConsoleLogger)
		want    string
	}{
		{"verbose enabled", true, func(l *ConsoleLogger) { l.Verbose("test message: %s", "value") }, "[VERBOSE] test message: value\n"},
		{"verbose disabled", false, func(l *ConsoleLogger) { l.Verbose("test message: %s", "value") }, ""},
		{"warn enabled", true, func(l *ConsoleLogger) { l.Warn("no data for %s", "public.t") }, "[WARN] no data for public.t\n"},
		{"warn disabled", false, func(l *ConsoleLogger) { l.Warn("no data for %s", "public.t") }, ""},
		{"info", false, func(l *ConsoleLogger) { l.Info("info message: %s", "value") }, "info message: value\n"},
		{"error", false, func(l *ConsoleLogger) { l.Error("error message: %s", "value") }, "[ERROR] error message: value\n"},
		{"literal percent without args", false, func(l *ConsoleLogger) { l.Info("100%") }, "100%\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufferedLogger(tt.verbose)
			tt.log(l)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestConsoleLogger_ConcurrentSafety(t *testing.T) {
	logger, buf := newBufferedLogger(true)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Info("message %d", id)
			logger.Verbose("verbose %d", id)
			logger.Error("error %d", id)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 30)
	for i, line := range lines {
		if !strings.Contains(line, "message") && !strings.Contains(line, "verbose") && !strings.Contains(line, "error") {
			t.Errorf("Line %d appears corrupted: %q", i, line)
		}
	}
}

type workerName string

func (w workerName) String() string { return string(w) }

func TestWithWorker_PrefixesMessages(t *testing.T) {
	base, buf := newBufferedLogger(true)
	l := WithWorker(base, workerName("worker-3"))

	l.Info("loaded %s", "public.orders")
	l.Warn("dependency data not included: %s", "public.customers")
	l.Error("failed")

	want := "worker-3: loaded public.orders\n" +
		"[WARN] worker-3: dependency data not included: public.customers\n" +
		"[ERROR] worker-3: failed\n"
	assert.Equal(t, want, buf.String())
}

func TestNullLogger_ConcurrentSafety(t *testing.T) {
	logger := NewNullLogger()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Info("message %d", id)
			logger.Verbose("verbose %d", id)
			logger.Warn("warn %d", id)
			logger.Error("error %d", id)
		}(i)
	}

	wg.Wait()
}

func BenchmarkConsoleLogger_VerboseDisabled(b *testing.B) {
	logger := NewConsoleLogger(false)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Verbose("benchmark message %d", i)
	}
}
