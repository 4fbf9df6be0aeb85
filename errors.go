package tex2img

import "errors"

// Sentinel errors for library operations.
var (
	ErrEmptyInput   = errors.New("input text cannot be empty")
	ErrNoOutputPath = errors.New("output path cannot be empty")

	// Browser lifecycle errors.
	ErrBrowserConnect     = errors.New("failed to connect to browser")
	ErrBrowserUnavailable = errors.New("no usable browser found")
	ErrPageCreate         = errors.New("failed to create browser page")

	// Render state machine errors. ErrDiagramCompile and ErrScreenshot
	// are fatal; a math typesetting timeout is only a warning.
	ErrPageLoad       = errors.New("failed to load page")
	ErrDiagramCompile = errors.New("diagram compilation produced no drawable content")
	ErrScreenshot     = errors.New("screenshot capture failed")

	// ErrOutputMissing reports that the screenshot call succeeded but the
	// output file does not exist afterwards.
	ErrOutputMissing = errors.New("output file missing after capture")

	// ErrPlaceholderLeak reports that a protection placeholder survived
	// restoration. Restoration must be a total inverse of substitution, so
	// a leftover placeholder is a correctness bug, not degraded output.
	ErrPlaceholderLeak = errors.New("unrestored placeholder in assembled HTML")

	// Render spec validation errors.
	ErrInvalidViewport   = errors.New("invalid viewport dimensions")
	ErrInvalidTimeout    = errors.New("invalid timeout")
	ErrInvalidBackground = errors.New("invalid background color")
)
