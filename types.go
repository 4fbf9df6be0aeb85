package tex2img

import (
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"
)

// Default render parameters. The viewport height is only an initial
// guess; the completion detector resizes it to the document's scroll
// height before capture.
const (
	DefaultViewportWidth  = 1150
	DefaultViewportHeight = 2000
	DefaultBackground     = "#FDFBF0"

	DefaultNavigationTimeout = 60 * time.Second
	DefaultTypesetTimeout    = 10 * time.Second
	DefaultDiagramTimeout    = 300 * time.Second
	DefaultScreenshotTimeout = 60 * time.Second
)

// backgroundPattern accepts hex colors and CSS color names.
var backgroundPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{3}|#[0-9a-fA-F]{6}|[a-zA-Z]+)$`)

// RenderSpec bundles the per-render configuration: viewport, background
// color, and the timeout budget of each completion-detection stage.
// Immutable for the duration of a render call.
type RenderSpec struct {
	ViewportWidth  int
	ViewportHeight int
	Background     string // CSS color for the page background

	NavigationTimeout time.Duration // DOMContentLoaded
	TypesetTimeout    time.Duration // MathJax readiness flag (non-fatal)
	DiagramTimeout    time.Duration // in-browser TikZ compilation (fatal)
	ScreenshotTimeout time.Duration
}

// DefaultRenderSpec returns a spec with default values.
func DefaultRenderSpec() RenderSpec {
	return RenderSpec{
		ViewportWidth:     DefaultViewportWidth,
		ViewportHeight:    DefaultViewportHeight,
		Background:        DefaultBackground,
		NavigationTimeout: DefaultNavigationTimeout,
		TypesetTimeout:    DefaultTypesetTimeout,
		DiagramTimeout:    DefaultDiagramTimeout,
		ScreenshotTimeout: DefaultScreenshotTimeout,
	}
}

// Validate checks that the spec is usable.
func (s RenderSpec) Validate() error {
	if s.ViewportWidth <= 0 || s.ViewportHeight <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidViewport, s.ViewportWidth, s.ViewportHeight)
	}
	if !backgroundPattern.MatchString(s.Background) {
		return fmt.Errorf("%w: %q", ErrInvalidBackground, s.Background)
	}
	for _, d := range []time.Duration{
		s.NavigationTimeout, s.TypesetTimeout, s.DiagramTimeout, s.ScreenshotTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %v", ErrInvalidTimeout, d)
		}
	}
	return nil
}

// Request contains the parameters of one render call.
type Request struct {
	Text       string // source text (required)
	OutputPath string // destination image path (required)
	Background string // optional override of the spec's background color
}

// RenderOutcome is the structured result of one render call. On failure
// Diagnostic mirrors the returned error so callers that only keep the
// outcome still see why the render aborted.
type RenderOutcome struct {
	Success    bool
	ImagePath  string
	Diagnostic string
}

// Option configures a Service.
type Option func(*Service)

// serviceConfig holds internal configuration for Service.
type serviceConfig struct {
	spec      RenderSpec
	template  string
	staticDir string
}

// WithRenderSpec sets viewport, background, and stage timeouts.
func WithRenderSpec(spec RenderSpec) Option {
	return func(s *Service) {
		s.cfg.spec = spec
	}
}

// WithLogger sets the logger. The default is zap.NewNop().
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithTemplate overrides the embedded page template. The template must
// contain the {{CONTENT}} marker and the --bg-color declaration.
func WithTemplate(template string) Option {
	return func(s *Service) {
		s.cfg.template = template
	}
}

// WithStaticDir sets the directory used to serve intercepted font
// requests (bakoma/ttf and fonts subdirectories). Empty disables local
// font serving; the page then falls back to network resolution.
func WithStaticDir(dir string) Option {
	return func(s *Service) {
		s.cfg.staticDir = dir
	}
}
