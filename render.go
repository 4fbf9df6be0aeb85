package tex2img

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// JavaScript probes evaluated in the page. Each is a zero-argument
// function expression so the driver can poll it.
const (
	mathReadyJS = `() => window.mathJaxReady === true`

	diagramCountJS = `() => document.querySelectorAll('.tikz-diagram, pre.mermaid').length`

	// An <svg> shell with no drawable children is the compiler's
	// failure mode, so svg presence alone proves nothing; at least one
	// container must hold a real primitive.
	diagramsCompiledJS = `() => {
		const els = document.querySelectorAll('.tikz-diagram, pre.mermaid');
		for (const el of els) {
			const svg = el.querySelector('svg');
			if (!svg) continue;
			if (svg.querySelectorAll('path, line, text, polygon, polyline').length >= 1) {
				return true;
			}
		}
		return false;
	}`

	documentHeightJS = `() => document.body.scrollHeight`
)

// settleDelay is how long the page rests after diagram compilation
// before measurement; the in-browser compilers reflow once more after
// reporting completion.
const settleDelay = 2 * time.Second

// renderState tracks progress through the capture sequence.
type renderState int

const (
	stateNavigating renderState = iota
	stateMathTypeset
	stateDiagramCompile
	stateStableHeight
	stateCaptured
)

func (s renderState) String() string {
	switch s {
	case stateNavigating:
		return "navigating"
	case stateMathTypeset:
		return "math-typeset"
	case stateDiagramCompile:
		return "diagram-compile"
	case stateStableHeight:
		return "stable-height"
	case stateCaptured:
		return "captured"
	default:
		return "unknown"
	}
}

// pageDriver is the surface the detector needs from a browser page.
// The production implementation drives a DevTools session; tests
// substitute a scripted fake.
type pageDriver interface {
	Navigate(url string, timeout time.Duration) error
	WaitFor(js string, timeout time.Duration) error
	EvalInt(js string) (int, error)
	SetViewport(width, height int) error
	Screenshot(path string, timeout time.Duration) error
}

// completionDetector walks a page through the capture sequence:
// navigate, wait for math typesetting, wait for diagram compilation
// (skipped when the page has no diagram containers), grow the viewport
// to the full document height, screenshot.
//
// A math typesetting timeout is survivable and only degrades output;
// a diagram compilation timeout is not, because a half-compiled
// diagram region screenshots as a large blank area.
type completionDetector struct {
	driver pageDriver
	spec   RenderSpec
	settle time.Duration
	log    *zap.Logger
}

func newCompletionDetector(driver pageDriver, spec RenderSpec, log *zap.Logger) *completionDetector {
	if log == nil {
		log = zap.NewNop()
	}
	return &completionDetector{driver: driver, spec: spec, settle: settleDelay, log: log}
}

// run executes the sequence and captures the page to outputPath.
func (d *completionDetector) run(ctx context.Context, url, outputPath string) (RenderOutcome, error) {
	state := stateNavigating
	outcome := RenderOutcome{ImagePath: outputPath}

	for state != stateCaptured {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		d.log.Debug("render state", zap.Stringer("state", state))

		switch state {
		case stateNavigating:
			if err := d.driver.Navigate(url, d.spec.NavigationTimeout); err != nil {
				outcome.Diagnostic = "page failed to load"
				return outcome, fmt.Errorf("%w: %v", ErrPageLoad, err)
			}
			state = stateMathTypeset

		case stateMathTypeset:
			if err := d.driver.WaitFor(mathReadyJS, d.spec.TypesetTimeout); err != nil {
				// Math may still be typesetting; capture what is there.
				d.log.Warn("math typesetting incomplete, continuing",
					zap.Duration("timeout", d.spec.TypesetTimeout),
					zap.Error(err))
				outcome.Diagnostic = "math typesetting incomplete"
			}
			state = stateDiagramCompile

		case stateDiagramCompile:
			count, err := d.driver.EvalInt(diagramCountJS)
			if err != nil {
				d.log.Warn("diagram container count unavailable", zap.Error(err))
				count = 0
			}
			if count == 0 {
				state = stateStableHeight
				continue
			}
			d.log.Info("waiting for diagram compilation", zap.Int("containers", count))
			if err := d.driver.WaitFor(diagramsCompiledJS, d.spec.DiagramTimeout); err != nil {
				outcome.Diagnostic = "diagram compilation timed out; likely causes: a syntax " +
					"error in a TikZ body, a package the in-browser compiler does not ship, " +
					"or a Mermaid parse failure"
				return outcome, fmt.Errorf("%w: %d containers after %s: %v",
					ErrDiagramCompile, count, d.spec.DiagramTimeout, err)
			}
			select {
			case <-ctx.Done():
				return outcome, ctx.Err()
			case <-time.After(d.settle):
			}
			state = stateStableHeight

		case stateStableHeight:
			height, err := d.driver.EvalInt(documentHeightJS)
			if err != nil || height <= 0 {
				d.log.Warn("document height unavailable, keeping configured viewport",
					zap.Error(err))
				height = d.spec.ViewportHeight
			}
			if err := d.driver.SetViewport(d.spec.ViewportWidth, height); err != nil {
				outcome.Diagnostic = "viewport resize failed"
				return outcome, fmt.Errorf("%w: %v", ErrScreenshot, err)
			}
			state = stateCaptured

		}
	}

	if err := d.driver.Screenshot(outputPath, d.spec.ScreenshotTimeout); err != nil {
		outcome.Diagnostic = "screenshot capture failed"
		return outcome, fmt.Errorf("%w: %v", ErrScreenshot, err)
	}

	outcome.Success = true
	return outcome, nil
}
