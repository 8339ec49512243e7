package tui

import (
	"os"

	"golang.org/x/term"
)

// Mode represents how progress and summaries are rendered.
type Mode int

const (
	// ModeNonInteractive is used for CI/CD pipelines, scripts, and redirected output.
	ModeNonInteractive Mode = iota
	// ModeInteractive is used when a human is watching the terminal.
	ModeInteractive
)

// DetectMode decides whether stderr is a terminal a human is watching.
//
// Returns ModeNonInteractive if:
//   - FASTLOAD_NON_INTERACTIVE=1 is set
//   - CI is set (common CI/CD convention)
//   - NO_COLOR is set
//   - stderr is not a terminal
func DetectMode() Mode {
	if os.Getenv("FASTLOAD_NON_INTERACTIVE") == "1" {
		return ModeNonInteractive
	}
	if os.Getenv("CI") != "" {
		return ModeNonInteractive
	}
	if os.Getenv("NO_COLOR") != "" {
		return ModeNonInteractive
	}

	// Progress and summaries go to stderr; stdout may carry a script.
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return ModeNonInteractive
	}
	return ModeInteractive
}

// IsInteractive is a convenience function that returns true if running in interactive mode.
func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}
