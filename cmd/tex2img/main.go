package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	tex2img "github.com/alnah/go-tex2img"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	flags, err := parseFlags(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitUsage)
	}

	// Configure GOMAXPROCS with conditional logging.
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if flags.verbose {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	log := buildLogger(flags)
	defer func() { _ = log.Sync() }()

	if err := run(flags, log, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// buildLogger maps --quiet/--verbose onto a zap logger writing to stderr.
func buildLogger(f *cliFlags) *zap.Logger {
	if f.quiet {
		return zap.NewNop()
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if f.verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
	}

	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// run dispatches to the selected mode and performs the render.
func run(f *cliFlags, log *zap.Logger, stdout io.Writer) error {
	if f.version {
		fmt.Fprintf(stdout, "tex2img %s\n", Version)
		return nil
	}

	if f.checkBrowser {
		if err := tex2img.CheckBrowser(); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "browser: OK")
		return nil
	}

	text, err := readInput(f.input)
	if err != nil {
		return err
	}

	if f.validate {
		return runValidate(text, log, stdout)
	}

	settings, err := resolveSettings(f)
	if err != nil {
		return err
	}

	opts := []tex2img.Option{
		tex2img.WithRenderSpec(settings.spec),
		tex2img.WithLogger(log),
	}
	if settings.staticDir != "" {
		opts = append(opts, tex2img.WithStaticDir(settings.staticDir))
	}
	if settings.template != "" {
		tmpl, err := os.ReadFile(settings.template) // #nosec G304 -- path comes from the user's own flag or config
		if err != nil {
			return fmt.Errorf("%w: %v", ErrReadInput, err)
		}
		opts = append(opts, tex2img.WithTemplate(string(tmpl)))
	}

	svc := tex2img.New(opts...)
	defer func() { _ = svc.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outcome, err := svc.Render(ctx, tex2img.Request{
		Text:       text,
		OutputPath: f.output,
		Background: f.background,
	})
	if err != nil {
		if outcome.Diagnostic != "" {
			fmt.Fprintln(os.Stderr, outcome.Diagnostic)
		}
		return err
	}

	fmt.Fprintf(stdout, "Created %s\n", outcome.ImagePath)
	return nil
}

// runValidate prints structural diagnostics for the input.
func runValidate(text string, log *zap.Logger, stdout io.Writer) error {
	report := tex2img.NewValidator(log).Validate(text)
	if report.OK {
		fmt.Fprintln(stdout, "OK")
		return nil
	}
	for _, d := range report.Diagnostics {
		fmt.Fprintf(stdout, "  %s\n", d)
	}
	return fmt.Errorf("%w: %d issue(s)", ErrValidationFailed, len(report.Diagnostics))
}

// readInput reads the source text from a file, or stdin when path is "-".
func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("%w: stdin: %v", ErrReadInput, err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the user's own argument
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadInput, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", tex2img.ErrEmptyInput
	}
	return string(data), nil
}
