package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vvka-141/pgfastload/internal/scheduler"
	"github.com/vvka-141/pgfastload/internal/source"
)

// LoadReport is what the summary shows after a load.
type LoadReport struct {
	Summary   scheduler.Summary
	Remaining int
	Elapsed   time.Duration
	Script    bool
}

// RenderSummary formats the end-of-run summary. Styled output uses the
// palette; plain output is stable for logs.
func RenderSummary(r LoadReport, styled bool) string {
	style := func(s lipgloss.Style, text string) string {
		if styled {
			return s.Render(text)
		}
		return text
	}

	s := r.Summary
	verb := "Load"
	if r.Script {
		verb = "Script"
	}
	ok := s.Failed == 0 && r.Remaining == 0

	var b strings.Builder
	if ok {
		b.WriteString(style(SuccessStyle, SymbolCheck) + " " + style(TitleStyle, fmt.Sprintf("%s finished in %s", verb, r.Elapsed.Round(time.Millisecond))))
	} else {
		b.WriteString(style(ErrorStyle, SymbolCross) + " " + style(TitleStyle, fmt.Sprintf("%s finished with errors in %s", verb, r.Elapsed.Round(time.Millisecond))))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "  loaded:   %s, %d rows\n", plural(s.Loaded, "table"), s.Rows)
	if s.NoData > 0 {
		fmt.Fprintf(&b, "  no data:  %s\n", style(WarningStyle, plural(s.NoData, "table")))
	}
	if s.Failed > 0 {
		fmt.Fprintf(&b, "  failed:   %s\n", style(ErrorStyle, plural(s.Failed, "table")))
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "    %s %s: %s\n", SymbolBullet, f.Table, style(MutedStyle, f.Message))
		}
	}
	if r.Remaining > 0 {
		fmt.Fprintf(&b, "  not run:  %s\n", style(ErrorStyle, plural(r.Remaining, "file")))
	}
	return b.String()
}

// RenderExportSummary formats the end-of-export summary.
func RenderExportSummary(r *source.Report, elapsed time.Duration, styled bool) string {
	style := func(s lipgloss.Style, text string) string {
		if styled {
			return s.Render(text)
		}
		return text
	}

	var rows int64
	for _, t := range r.Tables {
		rows += t.Rows
	}
	failed := r.Failed()

	var b strings.Builder
	if len(failed) == 0 {
		b.WriteString(style(SuccessStyle, SymbolCheck) + " " + style(TitleStyle, fmt.Sprintf("Export finished in %s", elapsed.Round(time.Millisecond))))
	} else {
		b.WriteString(style(ErrorStyle, SymbolCross) + " " + style(TitleStyle, fmt.Sprintf("Export finished with errors in %s", elapsed.Round(time.Millisecond))))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "  exported: %s, %d rows\n", plural(len(r.Tables)-len(failed), "table"), rows)
	if len(failed) > 0 {
		fmt.Fprintf(&b, "  failed:   %s\n", style(ErrorStyle, plural(len(failed), "table")))
		for _, f := range failed {
			fmt.Fprintf(&b, "    %s %s: %s\n", SymbolBullet, f.Table, style(MutedStyle, f.Err.Error()))
		}
	}
	return b.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
