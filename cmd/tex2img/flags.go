package main

import (
	"errors"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage            = errors.New("usage: tex2img [flags] <input> <output.png>")
	ErrReadInput        = errors.New("failed to read input file")
	ErrValidationFailed = errors.New("input failed structural validation")
)

// cliFlags holds all parsed command-line options. Zero values mean
// "not set" and defer to the config file or library defaults.
type cliFlags struct {
	config     string
	background string
	width      int
	height     int
	staticDir  string
	template   string

	navTimeout        time.Duration
	mathTimeout       time.Duration
	diagramTimeout    time.Duration
	screenshotTimeout time.Duration

	validate     bool
	checkBrowser bool
	quiet        bool
	verbose      bool
	version      bool

	input  string
	output string
}

// parseFlags parses args (including the program name at args[0]).
func parseFlags(args []string) (*cliFlags, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("tex2img", flag.ContinueOnError)

	fs.StringVarP(&f.config, "config", "c", "", "YAML config file")
	fs.StringVarP(&f.background, "background", "b", "", "page background color (hex or CSS name)")
	fs.IntVar(&f.width, "width", 0, "viewport width in pixels")
	fs.IntVar(&f.height, "height", 0, "initial viewport height in pixels")
	fs.StringVar(&f.staticDir, "static-dir", "", "directory with bundled fonts (bakoma/ttf, fonts)")
	fs.StringVar(&f.template, "template", "", "custom page template file")
	fs.DurationVar(&f.navTimeout, "nav-timeout", 0, "page load timeout")
	fs.DurationVar(&f.mathTimeout, "math-timeout", 0, "math typesetting timeout")
	fs.DurationVar(&f.diagramTimeout, "diagram-timeout", 0, "diagram compilation timeout")
	fs.DurationVar(&f.screenshotTimeout, "screenshot-timeout", 0, "screenshot capture timeout")
	fs.BoolVar(&f.validate, "validate", false, "run structural checks on the input and exit")
	fs.BoolVar(&f.checkBrowser, "check-browser", false, "check browser availability and exit")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "suppress logging")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "verbose logging")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	rest := fs.Args()

	// Modes that need no positional arguments.
	if f.checkBrowser || f.version {
		return f, nil
	}

	if f.validate {
		if len(rest) < 1 {
			return nil, ErrUsage
		}
		f.input = rest[0]
		return f, nil
	}

	if len(rest) < 2 {
		return nil, ErrUsage
	}
	f.input = rest[0]
	f.output = rest[1]
	return f, nil
}
