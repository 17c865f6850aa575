// Command taut runs every test registered with taut.Test in the current
// process (via blank-imported test packages) and prints results to the
// terminal.
package main

import (
	"fmt"
	"os"
	"regexp"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taut-go/taut"
)

var (
	includePatterns      []string
	forceIncludePatterns []string
	excludePatterns      []string
	generatePrograms     []string

	colorFlag, noColorFlag       bool
	unicodeFlag, noUnicodeFlag   bool
	progressFlag, noProgressFlag bool
	breakFlag, noBreakFlag       bool
	catchFlag, noCatchFlag       bool
	debugFlag, noDebugFlag       bool
	helpGenerate                 bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "taut",
	Short: "taut runs expression-decomposition unit tests",
	Long: `taut runs every test registered in the current process, reporting
assertion failures with a rendered decomposition of the subexpressions each
CHECK marked with Arg.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if helpGenerate {
			fmt.Println(generateGrammarHelp)
			return nil
		}

		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("taut: initializing logger: %w", err)
		}
		defer logger.Sync() //nolint:errcheck

		runID := uuid.New()
		logger.Info("taut run starting", zap.String("run_id", runID.String()))

		cfg, err := loadConfig(".taut.yaml")
		if err != nil {
			return fmt.Errorf("taut: loading .taut.yaml: %w", err)
		}
		includePatterns = append(append([]string{}, cfg.Include...), includePatterns...)
		forceIncludePatterns = append(append([]string{}, cfg.ForceInclude...), forceIncludePatterns...)
		excludePatterns = append(append([]string{}, cfg.Exclude...), excludePatterns...)
		generatePrograms = append(append([]string{}, cfg.Generate...), generatePrograms...)

		filters, err := buildFilters()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(taut.ExitBadArguments)
		}

		colorMode := resolveBoolPair(colorFlag, noColorFlag, cfg.Color, true)
		unicodeMode := resolveBoolPair(unicodeFlag, noUnicodeFlag, cfg.Unicode, true)
		progress := resolveBoolPair(progressFlag, noProgressFlag, cfg.Progress, false)
		wantBreak := resolveBoolPair(breakFlag, noBreakFlag, cfg.Break, false)
		noCatch := !resolveBoolPair(catchFlag, noCatchFlag, cfg.Catch, true)

		if debugFlag {
			wantBreak, noCatch = true, true
		}
		if noDebugFlag {
			wantBreak, noCatch = false, false
		}

		p := newPrinter(colorMode, unicodeMode, progress, wantBreak, logger)

		code := taut.Run(taut.RunOptions{
			Filters:  filters,
			Generate: generatePrograms,
			NoCatch:  noCatch,
			Sinks:    []taut.Sink{p},
		})
		p.printSummary()
		logger.Info("taut run finished", zap.String("run_id", runID.String()), zap.Int("exit_code", code))
		os.Exit(code)
		return nil
	},
}

func buildFilters() ([]taut.Filter, error) {
	var out []taut.Filter
	for _, s := range includePatterns {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("taut: bad --include pattern %q: %w", s, err)
		}
		out = append(out, taut.Filter{Kind: taut.Include, Re: re})
	}
	for _, s := range forceIncludePatterns {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("taut: bad --force-include pattern %q: %w", s, err)
		}
		out = append(out, taut.Filter{Kind: taut.ForceInclude, Re: re})
	}
	for _, s := range excludePatterns {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("taut: bad --exclude pattern %q: %w", s, err)
		}
		out = append(out, taut.Filter{Kind: taut.Exclude, Re: re})
	}
	return out, nil
}

// resolveBoolPair applies a --flag/--no-flag pair over a config-file value
// (if set) over a hardcoded default, in that order of precedence, --no-flag
// taking the final say if both command-line flags were somehow given.
func resolveBoolPair(on, off bool, fromConfig *bool, def bool) bool {
	v := def
	if fromConfig != nil {
		v = *fromConfig
	}
	if on {
		v = true
	}
	if off {
		v = false
	}
	return v
}

func init() {
	rootCmd.Flags().StringArrayVarP(&includePatterns, "include", "i", nil, "enable tests matching regex")
	rootCmd.Flags().StringArrayVarP(&forceIncludePatterns, "force-include", "I", nil, "also enable source-disabled tests matching regex")
	rootCmd.Flags().StringArrayVarP(&excludePatterns, "exclude", "e", nil, "disable tests matching regex")
	rootCmd.Flags().StringArrayVarP(&generatePrograms, "generate", "g", nil, "attach a generator-override program: TEST_REGEX//program")

	rootCmd.Flags().BoolVar(&colorFlag, "color", false, "force-enable ANSI color")
	rootCmd.Flags().BoolVar(&noColorFlag, "no-color", false, "force-disable ANSI color")
	rootCmd.Flags().BoolVar(&unicodeFlag, "unicode", false, "force-enable unicode pseudographics")
	rootCmd.Flags().BoolVar(&noUnicodeFlag, "no-unicode", false, "force-disable unicode pseudographics")
	rootCmd.Flags().BoolVar(&progressFlag, "progress", false, "show per-test progress")
	rootCmd.Flags().BoolVar(&noProgressFlag, "no-progress", false, "hide per-test progress")
	rootCmd.Flags().BoolVar(&breakFlag, "break", false, "call the debugger-breakpoint trampoline on failures")
	rootCmd.Flags().BoolVar(&noBreakFlag, "no-break", false, "never call the debugger-breakpoint trampoline")
	rootCmd.Flags().BoolVar(&catchFlag, "catch", false, "catch exceptions inside tests (default)")
	rootCmd.Flags().BoolVar(&noCatchFlag, "no-catch", false, "let exceptions inside tests propagate uncaught")
	rootCmd.Flags().BoolVar(&debugFlag, "debug", false, "shorthand for --break --no-catch")
	rootCmd.Flags().BoolVar(&noDebugFlag, "no-debug", false, "shorthand for --no-break --catch")
	rootCmd.Flags().BoolVar(&helpGenerate, "help-generate", false, "print long-form help for the --generate grammar")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(taut.ExitBadArguments)
	}
}

const generateGrammarHelp = `--generate TEST_REGEX//program

program  := generator ( ',' generator )*
generator:= NAME ( '{' rule ( (',' | '&') rule )* '}' | rule )
rule     := '='  VALUE  nested?        -- inject, preferred if equality-suppresses
         | '-=' VALUE                 -- remove value
         | '#'  INDEX_RANGE nested?   -- select by index
         | '-#' INDEX_RANGE           -- deselect by index
nested   := '(' program? ')'
INDEX_RANGE := N | 'N..' | '..N' | 'N..M'     -- 1-based, inclusive
`
