package tex2img

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakePage is a scripted pageDriver for detector tests.
type fakePage struct {
	navErr   error
	waitErrs map[string]error
	evalInts map[string]int
	evalErrs map[string]error
	shotErr  error

	waited    []string
	viewportW int
	viewportH int
	shotPath  string
}

func (f *fakePage) Navigate(url string, timeout time.Duration) error { return f.navErr }

func (f *fakePage) WaitFor(js string, timeout time.Duration) error {
	f.waited = append(f.waited, js)
	return f.waitErrs[js]
}

func (f *fakePage) EvalInt(js string) (int, error) {
	if err := f.evalErrs[js]; err != nil {
		return 0, err
	}
	return f.evalInts[js], nil
}

func (f *fakePage) SetViewport(width, height int) error {
	f.viewportW, f.viewportH = width, height
	return nil
}

func (f *fakePage) Screenshot(path string, timeout time.Duration) error {
	f.shotPath = path
	return f.shotErr
}

func (f *fakePage) waitedFor(js string) bool {
	for _, w := range f.waited {
		if w == js {
			return true
		}
	}
	return false
}

func newTestDetector(page *fakePage) *completionDetector {
	d := newCompletionDetector(page, DefaultRenderSpec(), nil)
	d.settle = 0
	return d
}

func TestCompletionDetector_FullSequence(t *testing.T) {
	t.Parallel()

	page := &fakePage{
		evalInts: map[string]int{
			diagramCountJS:   2,
			documentHeightJS: 3200,
		},
	}
	outcome, err := newTestDetector(page).run(context.Background(), "file:///page.html", "/tmp/out.png")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !outcome.Success {
		t.Error("outcome.Success = false")
	}
	if outcome.ImagePath != "/tmp/out.png" {
		t.Errorf("outcome.ImagePath = %q", outcome.ImagePath)
	}
	if !page.waitedFor(mathReadyJS) {
		t.Error("math readiness was not awaited")
	}
	if !page.waitedFor(diagramsCompiledJS) {
		t.Error("diagram compilation was not awaited")
	}
	if page.viewportW != DefaultViewportWidth || page.viewportH != 3200 {
		t.Errorf("viewport = %dx%d, want %dx3200", page.viewportW, page.viewportH, DefaultViewportWidth)
	}
	if page.shotPath != "/tmp/out.png" {
		t.Errorf("screenshot path = %q", page.shotPath)
	}
}

func TestCompletionDetector_NoDiagramsSkipsCompileWait(t *testing.T) {
	t.Parallel()

	page := &fakePage{
		evalInts: map[string]int{
			diagramCountJS:   0,
			documentHeightJS: 900,
		},
	}
	outcome, err := newTestDetector(page).run(context.Background(), "file:///page.html", "/tmp/out.png")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !outcome.Success {
		t.Error("outcome.Success = false")
	}
	if page.waitedFor(diagramsCompiledJS) {
		t.Error("diagram compilation awaited on a page without containers")
	}
}

func TestCompletionDetector_MathTimeoutIsSurvivable(t *testing.T) {
	t.Parallel()

	page := &fakePage{
		waitErrs: map[string]error{mathReadyJS: errors.New("timeout")},
		evalInts: map[string]int{documentHeightJS: 500},
	}
	outcome, err := newTestDetector(page).run(context.Background(), "file:///page.html", "/tmp/out.png")
	if err != nil {
		t.Fatalf("run() error = %v, want nil on math timeout", err)
	}
	if !outcome.Success {
		t.Error("outcome.Success = false after math timeout")
	}
	if !strings.Contains(outcome.Diagnostic, "math typesetting incomplete") {
		t.Errorf("outcome.Diagnostic = %q", outcome.Diagnostic)
	}
	if page.shotPath == "" {
		t.Error("capture skipped after math timeout")
	}
}

func TestCompletionDetector_DiagramTimeoutIsFatal(t *testing.T) {
	t.Parallel()

	page := &fakePage{
		waitErrs: map[string]error{diagramsCompiledJS: errors.New("timeout")},
		evalInts: map[string]int{diagramCountJS: 1},
	}
	outcome, err := newTestDetector(page).run(context.Background(), "file:///page.html", "/tmp/out.png")
	if !errors.Is(err, ErrDiagramCompile) {
		t.Fatalf("run() error = %v, want ErrDiagramCompile", err)
	}
	if outcome.Success {
		t.Error("outcome.Success = true after diagram timeout")
	}
	if !strings.Contains(outcome.Diagnostic, "likely causes") {
		t.Errorf("outcome.Diagnostic = %q, want likely-cause hints", outcome.Diagnostic)
	}
	if page.shotPath != "" {
		t.Error("screenshot attempted after fatal diagram timeout")
	}
}

func TestDiagramGateRequiresDrawablePrimitives(t *testing.T) {
	t.Parallel()

	// The compiled predicate must reject an svg shell with no drawable
	// children: it has to query for primitives inside the svg, not just
	// for the svg element itself.
	for _, primitive := range []string{"path", "line", "text", "polygon", "polyline"} {
		if !strings.Contains(diagramsCompiledJS, primitive) {
			t.Errorf("diagram gate does not query for %q primitives", primitive)
		}
	}
	if !strings.Contains(diagramsCompiledJS, "querySelectorAll('path, line, text, polygon, polyline')") {
		t.Error("diagram gate does not count primitives inside the container svg")
	}
	if !strings.Contains(diagramsCompiledJS, "return false") {
		t.Error("diagram gate cannot report an uncompiled page")
	}
}

func TestCompletionDetector_EmptySvgShellTimesOutFatal(t *testing.T) {
	t.Parallel()

	// A page whose containers hold only empty svg shells never
	// satisfies the gate; the detector must end in the fatal path,
	// not screenshot a blank region as success.
	page := &fakePage{
		waitErrs: map[string]error{diagramsCompiledJS: errors.New("timeout")},
		evalInts: map[string]int{diagramCountJS: 2},
	}
	outcome, err := newTestDetector(page).run(context.Background(), "file:///page.html", "/tmp/out.png")
	if !errors.Is(err, ErrDiagramCompile) {
		t.Fatalf("run() error = %v, want ErrDiagramCompile", err)
	}
	if outcome.Success {
		t.Error("outcome.Success = true for a page of empty svg shells")
	}
	if page.shotPath != "" {
		t.Error("blank diagram region screenshotted as success")
	}
}

func TestCompletionDetector_NavigationFailureIsFatal(t *testing.T) {
	t.Parallel()

	page := &fakePage{navErr: errors.New("net::ERR_FILE_NOT_FOUND")}
	_, err := newTestDetector(page).run(context.Background(), "file:///missing.html", "/tmp/out.png")
	if !errors.Is(err, ErrPageLoad) {
		t.Fatalf("run() error = %v, want ErrPageLoad", err)
	}
	if len(page.waited) != 0 {
		t.Error("waits attempted after failed navigation")
	}
}

func TestCompletionDetector_ScreenshotFailure(t *testing.T) {
	t.Parallel()

	page := &fakePage{
		evalInts: map[string]int{documentHeightJS: 800},
		shotErr:  errors.New("capture failed"),
	}
	outcome, err := newTestDetector(page).run(context.Background(), "file:///page.html", "/tmp/out.png")
	if !errors.Is(err, ErrScreenshot) {
		t.Fatalf("run() error = %v, want ErrScreenshot", err)
	}
	if outcome.Success {
		t.Error("outcome.Success = true after screenshot failure")
	}
}

func TestCompletionDetector_HeightFallback(t *testing.T) {
	t.Parallel()

	page := &fakePage{
		evalErrs: map[string]error{documentHeightJS: errors.New("eval failed")},
	}
	_, err := newTestDetector(page).run(context.Background(), "file:///page.html", "/tmp/out.png")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if page.viewportH != DefaultViewportHeight {
		t.Errorf("viewport height = %d, want configured %d", page.viewportH, DefaultViewportHeight)
	}
}

func TestCompletionDetector_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := &fakePage{}
	_, err := newTestDetector(page).run(ctx, "file:///page.html", "/tmp/out.png")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("run() error = %v, want context.Canceled", err)
	}
}
