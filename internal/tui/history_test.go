package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vvka-141/pgfastload/internal/journal"
)

func TestRenderRuns(t *testing.T) {
	out := RenderRuns([]journal.RunRecord{{
		ID:        "0b6f1c2e-run",
		Mode:      "load",
		Input:     "/srv/export",
		Workers:   8,
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:    journal.StatusFailed,
		Loaded:    41,
		NoData:    2,
		Failed:    1,
		Rows:      123456,
	}})

	for _, want := range []string{"RUN", "STATUS", "0b6f1c2e-run", "failed", "123456", "/srv/export"} {
		assert.Contains(t, out, want)
	}
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestRenderTableLoads(t *testing.T) {
	out := RenderTableLoads([]journal.TableRecord{
		{Table: "sales.orders", Outcome: "loaded", Rows: 10, Duration: 1234 * time.Microsecond, Worker: "worker-01"},
		{Table: "sales.lines", Outcome: "failed", Worker: "worker-02", Error: "copy into sales.lines: duplicate key\nDETAIL: Key (id)=(1)"},
	})

	assert.Contains(t, out, "sales.orders")
	assert.Contains(t, out, "1ms")
	assert.Contains(t, out, "copy into sales.lines: duplicate key...")
	assert.NotContains(t, out, "DETAIL")
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "abc", shorten("abc", 5))
	assert.Equal(t, "abcde...", shorten("abcdefgh", 5))
	assert.Equal(t, "first...", shorten("first\nsecond", 10))
	assert.Equal(t, "", shorten("", 5))
}
