package main

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/taut-go/taut"
)

// printer is the minimal default report module wired into cmd/taut: a
// progress/results printer and an ANSI colorizer, both explicitly out of
// scope for the core (spec.md §1, "Out of scope (external collaborators)")
// and implemented here only so `go run ./cmd/taut` is a working binary.
type printer struct {
	color    bool
	unicode  bool
	progress bool
	wantBreak bool
	log      *zap.Logger

	passed, failed, total int
}

func newPrinter(color, unicode, progress, wantBreak bool, log *zap.Logger) *printer {
	return &printer{color: color, unicode: unicode, progress: progress, wantBreak: wantBreak, log: log}
}

var ansiEscape = regexp.MustCompile("\x1b\\[[0-9;]*m")

func (p *printer) style(s string) string {
	if p.color {
		return s
	}
	return ansiEscape.ReplaceAllString(s, "")
}

func (p *printer) Handle(e *taut.Event) {
	switch e.Kind {
	case taut.PreRunSingleTest:
		if e.FirstRepetition {
			p.total++
		}
		if p.progress {
			fmt.Printf("RUN  %s\n", e.Test.Name)
		}
	case taut.PostRunSingleTest:
		if !e.IsLastRepetition {
			return
		}
		if e.TestFailed {
			p.failed++
			fmt.Printf("FAIL %s\n", e.Test.Name)
		} else {
			p.passed++
			if p.progress {
				fmt.Printf("PASS %s\n", e.Test.Name)
			}
		}
		if p.wantBreak && e.TestFailed {
			p.log.Debug("breakpoint trampoline requested", zap.String("test", e.Test.Name))
		}
	case taut.AssertionFailed:
		a := e.Assertion
		fmt.Printf("  %s at %s\n", a.Macro, a.Loc)
		if a.Canvas != "" {
			fmt.Print(p.style(a.Canvas))
		}
		if a.Message != "" {
			fmt.Printf("  message: %s\n", a.Message)
		}
		for _, ctx := range a.Context {
			fmt.Printf("  context: %s\n", ctx)
		}
	case taut.UncaughtException:
		printException(e.Exception)
	case taut.MissingException:
		fmt.Printf("  MUST_THROW did not throw, at %s\n", e.Exception.Loc)
		if e.Exception.Message != "" {
			fmt.Printf("  message: %s\n", e.Exception.Message)
		}
	}
}

func printException(r *taut.ExceptionReport) {
	fmt.Printf("  uncaught exception at %s\n", r.Loc)
	for i, elem := range r.Chain {
		fmt.Printf("    [%d] %s: %s\n", i, elem.TypeName, elem.Message)
	}
}

func (p *printer) printSummary() {
	fmt.Printf("\n%d/%d passed, %d failed\n", p.passed, p.total, p.failed)
}
