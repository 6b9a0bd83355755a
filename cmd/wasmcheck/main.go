package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasmcheck/engine"
	"github.com/wippyai/wasmcheck/harness"
	"github.com/wippyai/wasmcheck/hostenv"
	"github.com/wippyai/wasmcheck/report"
	"github.com/wippyai/wasmcheck/validator"
)

// maxPages is 4 GiB of 64 KiB pages.
const maxPages = 65536

func main() {
	var (
		pages       = flag.Uint("pages", hostenv.DefaultPages, "Minimum initial memory pages (64 KiB each)")
		timeout     = flag.Duration("timeout", harness.DefaultTimeout, "Deadline per export call (0 disables)")
		wasi        = flag.Bool("wasi", false, "Provide a real wasi_snapshot_preview1 instead of stubs")
		noIsolate   = flag.Bool("no-isolate", false, "Invoke every export on the same instance")
		threads     = flag.Bool("threads", false, "Enable the threads proposal (shared memory, atomics)")
		verbose     = flag.Bool("v", false, "Debug logging to stderr")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wasmcheck [flags] <file.wasm>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	path := flag.Arg(0)

	regionPages, err := pageCount(*pages)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	cfg := validator.DefaultConfig()
	cfg.Pages = regionPages
	cfg.InvokeTimeout = *timeout
	cfg.WASI = *wasi
	cfg.Isolate = !*noIsolate
	cfg.EnableThreads = *threads

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		engine.SetLogger(logger)
		cfg.Logger = logger
	}

	v := validator.New(cfg)

	if *interactive {
		if err := runInteractive(v, path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	styles := report.PlainStyles()
	if !*noColor && term.IsTerminal(int(os.Stdout.Fd())) {
		styles = report.ColorStyles()
	}

	r := v.ValidateFile(context.Background(), path)
	if err := report.Write(os.Stdout, r, styles); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// pageCount checks -pages against the 32-bit address space.
func pageCount(n uint) (uint32, error) {
	if n == 0 || n > maxPages {
		return 0, fmt.Errorf("-pages must be between 1 and %d, got %d", maxPages, n)
	}
	return uint32(n), nil
}
