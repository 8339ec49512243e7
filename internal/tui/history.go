package tui

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vvka-141/pgfastload/internal/journal"
)

func historyTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(MutedStyle).
		Headers(headers...)
}

// RenderRuns formats journal runs, newest first as given.
func RenderRuns(runs []journal.RunRecord) string {
	t := historyTable("RUN", "STARTED", "MODE", "STATUS", "WORKERS", "LOADED", "NO DATA", "FAILED", "ROWS", "INPUT")
	for _, r := range runs {
		t.Row(
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Mode,
			r.Status,
			strconv.Itoa(r.Workers),
			strconv.Itoa(r.Loaded),
			strconv.Itoa(r.NoData),
			strconv.Itoa(r.Failed),
			strconv.FormatInt(r.Rows, 10),
			r.Input,
		)
	}
	return t.Render() + "\n"
}

// RenderTableLoads formats the per-table outcomes of one run.
func RenderTableLoads(tables []journal.TableRecord) string {
	t := historyTable("TABLE", "OUTCOME", "ROWS", "DURATION", "WORKER", "ERROR")
	for _, r := range tables {
		t.Row(
			r.Table,
			r.Outcome,
			strconv.FormatInt(r.Rows, 10),
			r.Duration.Round(time.Millisecond).String(),
			r.Worker,
			shorten(r.Error, 80),
		)
	}
	return t.Render() + "\n"
}

// shorten keeps the first line of s, cut to n runes.
func shorten(s string, n int) string {
	s, _, cut := strings.Cut(s, "\n")
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	if cut {
		return s + "..."
	}
	return s
}
