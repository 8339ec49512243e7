package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/vvka-141/pgfastload/internal/cli"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(fastload.ExitPanic)
		}
	}()

	if os.Getenv("FASTLOAD_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(fastload.ExitCodeForError(err))
	}
}
