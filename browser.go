package tex2img

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// svgStyleFixJS runs inside every page and keeps compiled diagram SVGs
// block-positioned and centered. The in-browser compiler re-styles its
// output when it finishes, so the fix repeats on an interval.
const svgStyleFixJS = `
setInterval(function() {
	document.querySelectorAll('.tikz-diagram svg').forEach(function(svg) {
		svg.style.position = 'relative';
		svg.style.display = 'block';
		svg.style.margin = '20px auto';
		svg.style.border = 'none';
		svg.style.padding = '0';
	});
}, 500);
`

// Compile-time interface check
var _ pageDriver = (*rodPage)(nil)

// CheckBrowser reports whether a Chrome/Chromium binary is available,
// without launching it. ROD_BROWSER_BIN takes precedence over path
// lookup.
func CheckBrowser() error {
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		if _, err := os.Stat(bin); err != nil {
			return fmt.Errorf("%w: ROD_BROWSER_BIN=%s: %v", ErrBrowserUnavailable, bin, err)
		}
		return nil
	}
	if _, found := launcher.LookPath(); !found {
		return fmt.Errorf("%w: install Chrome or set ROD_BROWSER_BIN", ErrBrowserUnavailable)
	}
	return nil
}

// browserManager owns the single shared browser instance. Launch is
// lazy and the connection is health-checked on every acquisition, so a
// crashed browser is relaunched transparently.
type browserManager struct {
	mu      sync.Mutex
	browser *rod.Browser
	log     *zap.Logger
}

func newBrowserManager(log *zap.Logger) *browserManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &browserManager{log: log}
}

// get returns a connected browser, launching or relaunching as needed.
func (m *browserManager) get() (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if _, err := (proto.BrowserGetVersion{}).Call(m.browser); err == nil {
			return m.browser, nil
		}
		m.log.Warn("browser connection lost, relaunching")
		m.browser = nil
	}

	l := launcher.New().
		Headless(true).
		Set("disable-web-security").
		Set("allow-file-access-from-files").
		Set("disable-features", "VizDisplayCompositor")

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" || os.Getenv("ROD_NO_SANDBOX") == "1" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	m.log.Info("browser launched")
	m.browser = b
	return b, nil
}

// close releases the browser.
func (m *browserManager) close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return nil
	}
	err := m.browser.Close()
	m.browser = nil
	return err
}

// rodPage drives one DevTools page. It carries the SVG style fix, the
// local font interception and console forwarding set up at creation.
type rodPage struct {
	page      *rod.Page
	staticDir string
	log       *zap.Logger
}

// newRodPage creates a blank page with the configured viewport, the
// init script and font routes installed.
func newRodPage(browser *rod.Browser, spec RenderSpec, staticDir string, log *zap.Logger) (*rodPage, error) {
	if log == nil {
		log = zap.NewNop()
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	r := &rodPage{page: page, staticDir: staticDir, log: log}

	if err := r.SetViewport(spec.ViewportWidth, spec.ViewportHeight); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("%w: viewport: %v", ErrPageCreate, err)
	}
	if _, err := page.EvalOnNewDocument(svgStyleFixJS); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("%w: init script: %v", ErrPageCreate, err)
	}

	if staticDir != "" {
		r.installFontRoutes()
	}
	r.forwardConsole()

	return r, nil
}

// Navigate loads url and waits for DOMContentLoaded.
func (r *rodPage) Navigate(url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	p := r.page.Context(ctx)
	wait := p.WaitEvent(&proto.PageDomContentEventFired{})
	if err := p.Navigate(url); err != nil {
		return err
	}
	wait()
	return ctx.Err()
}

// WaitFor polls js until it evaluates truthy or the timeout elapses.
func (r *rodPage) WaitFor(js string, timeout time.Duration) error {
	return r.page.Timeout(timeout).Wait(rod.Eval(js))
}

// EvalInt evaluates js and returns its integer result.
func (r *rodPage) EvalInt(js string) (int, error) {
	obj, err := r.page.Eval(js)
	if err != nil {
		return 0, err
	}
	return obj.Value.Int(), nil
}

// SetViewport overrides the page's device metrics.
func (r *rodPage) SetViewport(width, height int) error {
	return r.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
}

// Screenshot captures the page as a PNG file.
func (r *rodPage) Screenshot(path string, timeout time.Duration) error {
	bin, err := r.page.Timeout(timeout).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, bin, 0o644)
}

// Close releases the page.
func (r *rodPage) Close() error {
	return r.page.Close()
}

// installFontRoutes intercepts font requests and serves the bundled
// math and CJK fonts from the static directory, so file:// pages do
// not depend on network font CDNs.
func (r *rodPage) installFontRoutes() {
	router := r.page.HijackRequests()

	handler := func(ctx *rod.Hijack) {
		url := ctx.Request.URL().String()
		fontPath := r.resolveFontPath(url)
		if fontPath != "" {
			if data, err := os.ReadFile(fontPath); err == nil {
				contentType := "font/ttf"
				if strings.HasSuffix(fontPath, ".otf") {
					contentType = "font/otf"
				}
				ctx.Response.SetHeader("Content-Type", contentType)
				ctx.Response.SetBody(data)
				return
			}
			r.log.Debug("bundled font missing, passing request through",
				zap.String("path", fontPath))
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	}

	router.Add("*.ttf", proto.NetworkResourceTypeFont, handler)
	router.Add("*.otf", proto.NetworkResourceTypeFont, handler)
	go router.Run()
}

// resolveFontPath maps a font request URL onto the static directory.
func (r *rodPage) resolveFontPath(url string) string {
	url = strings.SplitN(url, "?", 2)[0]

	if _, name, ok := strings.Cut(url, "/bakoma/ttf/"); ok {
		return filepath.Join(r.staticDir, "bakoma", "ttf", filepath.Base(name))
	}
	if _, name, ok := strings.Cut(url, "/fonts/"); ok {
		return filepath.Join(r.staticDir, "fonts", filepath.Base(name))
	}
	return ""
}

// forwardConsole mirrors page console output and uncaught exceptions
// into the logger; the exit condition is the page closing.
func (r *rodPage) forwardConsole() {
	go r.page.EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			parts := make([]string, 0, len(e.Args))
			for _, arg := range e.Args {
				parts = append(parts, arg.Value.String())
			}
			r.log.Debug("browser console",
				zap.String("type", string(e.Type)),
				zap.String("text", strings.Join(parts, " ")))
		},
		func(e *proto.RuntimeExceptionThrown) {
			r.log.Error("browser exception",
				zap.String("text", e.ExceptionDetails.Text))
		},
	)()
}
