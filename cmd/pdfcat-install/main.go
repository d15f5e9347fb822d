package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/pdfcat-dev/pdfcat-installer/internal/config"
	"github.com/pdfcat-dev/pdfcat-installer/internal/run"
	"github.com/pdfcat-dev/pdfcat-installer/internal/ui"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version":
			fmt.Printf("pdfcat-install %s\n", Version)
			return
		default:
			fmt.Fprintf(os.Stderr, "Error: unexpected argument %q\n", os.Args[1])
			fmt.Fprintln(os.Stderr, "pdfcat-install takes no arguments; it is configured")
			fmt.Fprintln(os.Stderr, "through PDFCAT_* environment variables")
			os.Exit(1)
		}
	}

	// An interrupt cancels whatever stage is in flight; the run still
	// removes its scratch workspace on the way out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out := ui.New()
	outcome, err := run.New(cfg, Version, out).Run(ctx)
	if err != nil {
		reportFailure(out, cfg, err)
		os.Exit(1)
	}
	reportSuccess(out, outcome)
}

func reportFailure(p *ui.Printer, cfg *config.Snapshot, err error) {
	fmt.Println()
	var fail *run.Failure
	if errors.As(err, &fail) {
		p.Failf("pdfcat was not installed: %s failed\n", fail.Stage)
		p.Failf("  %v\n", fail.Err)
	} else {
		p.Failf("pdfcat was not installed: %v\n", err)
	}
	fmt.Println()
	fmt.Println("To install manually, download a release asset from:")
	fmt.Printf("  https://github.com/%s/releases\n", cfg.RepoSlug())
	fmt.Println("or build a checkout yourself with: cargo build --release")
}

func reportSuccess(p *ui.Printer, outcome *run.Outcome) {
	fmt.Println()
	if n := len(outcome.Warnings); n > 0 {
		noun := "warnings"
		if n == 1 {
			noun = "warning"
		}
		p.Warnf("pdfcat installed with %d %s (details above)\n", n, noun)
	} else {
		p.Donef("✓ pdfcat installed\n")
	}
	fmt.Printf("  %s\n", outcome.Installed)
	if outcome.ReportedVersion != "" {
		fmt.Printf("  %s\n", outcome.ReportedVersion)
	}

	switch {
	case outcome.NeedsNewShell:
		fmt.Println()
		fmt.Println("Open a new shell to pick up the PATH change, or run:")
		fmt.Printf("  %s\n", outcome.ExportHint)
	case outcome.ExportHint != "":
		fmt.Println()
		fmt.Println("Add the install directory to your PATH manually:")
		fmt.Printf("  %s\n", outcome.ExportHint)
	}
}
