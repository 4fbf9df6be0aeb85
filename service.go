package tex2img

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/alnah/go-tex2img/internal/assets"
	"github.com/alnah/go-tex2img/internal/fileutil"
)

// imageRenderer abstracts HTML-file to image rendering to enable
// testing without a browser.
type imageRenderer interface {
	RenderFromFile(ctx context.Context, htmlPath, outputPath string) (RenderOutcome, error)
	Close() error
}

// Compile-time interface check
var _ imageRenderer = (*rodImageRenderer)(nil)

// rodImageRenderer renders via the shared headless browser: one page
// per call, walked through the completion detector.
type rodImageRenderer struct {
	browsers  *browserManager
	spec      RenderSpec
	staticDir string
	log       *zap.Logger
}

func newRodImageRenderer(spec RenderSpec, staticDir string, log *zap.Logger) *rodImageRenderer {
	return &rodImageRenderer{
		browsers:  newBrowserManager(log),
		spec:      spec,
		staticDir: staticDir,
		log:       log,
	}
}

// RenderFromFile opens the local HTML file in a fresh page and captures
// it to outputPath once rendering has settled.
func (r *rodImageRenderer) RenderFromFile(ctx context.Context, htmlPath, outputPath string) (RenderOutcome, error) {
	if err := ctx.Err(); err != nil {
		return RenderOutcome{}, err
	}

	browser, err := r.browsers.get()
	if err != nil {
		return RenderOutcome{Diagnostic: "browser unavailable"}, err
	}

	page, err := newRodPage(browser, r.spec, r.staticDir, r.log)
	if err != nil {
		return RenderOutcome{Diagnostic: "page creation failed"}, err
	}
	defer func() { _ = page.Close() }()

	detector := newCompletionDetector(page, r.spec, r.log)
	return detector.run(ctx, "file://"+htmlPath, outputPath)
}

// Close releases the browser.
func (r *rodImageRenderer) Close() error {
	return r.browsers.close()
}

// Service orchestrates the text-to-image pipeline: structural
// validation, preprocessing, HTML assembly, and browser capture.
// A Service is safe for concurrent use; renders share one browser but
// each gets its own page and temp file.
type Service struct {
	cfg          serviceConfig
	log          *zap.Logger
	validator    *Validator
	preprocessor *Preprocessor
	assembler    *Assembler
	renderer     imageRenderer
}

// New creates a Service with default configuration.
// Use options to customize behavior (e.g., WithRenderSpec).
func New(opts ...Option) *Service {
	s := &Service{
		cfg: serviceConfig{
			spec:     DefaultRenderSpec(),
			template: assets.PageTemplate(),
		},
		log: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	plot := NewPlotConverter(s.log)
	s.preprocessor = NewPreprocessor(
		NewTikzConverter(plot, DefaultTikzRules(), s.log),
		NewListConverter(),
		NewTableConverter(),
		NewMermaidConverter(s.log),
		s.log,
	)
	s.validator = NewValidator(s.log)
	s.assembler = NewAssembler(s.cfg.template, s.log)

	// Create renderer if not injected (e.g., by tests)
	if s.renderer == nil {
		s.renderer = newRodImageRenderer(s.cfg.spec, s.cfg.staticDir, s.log)
	}

	return s
}

// withImageRenderer injects the rendering backend; used by tests.
func withImageRenderer(r imageRenderer) Option {
	return func(s *Service) {
		s.renderer = r
	}
}

// Render runs the full pipeline and writes the captured image to
// req.OutputPath. The context is used for cancellation and timeout.
// The outcome carries a diagnostic alongside any returned error.
func (s *Service) Render(ctx context.Context, req Request) (RenderOutcome, error) {
	var outcome RenderOutcome

	if strings.TrimSpace(req.Text) == "" {
		return outcome, ErrEmptyInput
	}
	if req.OutputPath == "" {
		return outcome, ErrNoOutputPath
	}
	if err := s.cfg.spec.Validate(); err != nil {
		return outcome, err
	}
	if req.Background != "" && !backgroundPattern.MatchString(req.Background) {
		return outcome, fmt.Errorf("%w: %q", ErrInvalidBackground, req.Background)
	}
	if err := assets.ValidateTemplate(s.cfg.template); err != nil {
		return outcome, err
	}

	// Advisory: a failed report predicts typesetting problems but the
	// browser often recovers, so rendering proceeds.
	if report := s.validator.Validate(req.Text); !report.OK {
		s.log.Warn("structural validation failed, rendering anyway",
			zap.Strings("diagnostics", report.Diagnostics))
	}

	text := s.preprocessor.Preprocess(req.Text)

	background := req.Background
	if background == "" {
		background = s.cfg.spec.Background
	}
	page, err := s.assembler.Assemble(text, background)
	if err != nil {
		return outcome, fmt.Errorf("assembling page: %w", err)
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(page, "html")
	if err != nil {
		return outcome, fmt.Errorf("writing page file: %w", err)
	}
	defer cleanup()

	outcome, err = s.renderer.RenderFromFile(ctx, tmpPath, req.OutputPath)
	if err != nil {
		return outcome, err
	}

	if !fileutil.FileExists(req.OutputPath) {
		outcome.Success = false
		outcome.Diagnostic = "capture reported success but produced no file"
		return outcome, fmt.Errorf("%w: %s", ErrOutputMissing, req.OutputPath)
	}

	s.log.Info("render complete", zap.String("output", req.OutputPath))
	return outcome, nil
}

// Validate runs the structural checks without rendering.
func (s *Service) Validate(text string) ValidationReport {
	return s.validator.Validate(text)
}

// Close releases resources (headless browser).
func (s *Service) Close() error {
	if s.renderer != nil {
		return s.renderer.Close()
	}
	return nil
}
