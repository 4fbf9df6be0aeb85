package main

import (
	"errors"
	"os"

	tex2img "github.com/alnah/go-tex2img"
)

// Exit codes for tex2img CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess    = 0 // Successful render
	ExitGeneral    = 1 // General/unexpected error
	ExitUsage      = 2 // Invalid flags, config, or validation of parameters
	ExitIO         = 3 // File not found, permission denied
	ExitBrowser    = 4 // Browser/Chrome errors
	ExitValidation = 5 // Input failed structural validation (--validate)
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, ErrValidationFailed) {
		return ExitValidation
	}

	// Browser errors (exit 4)
	if errors.Is(err, tex2img.ErrBrowserConnect) ||
		errors.Is(err, tex2img.ErrBrowserUnavailable) ||
		errors.Is(err, tex2img.ErrPageCreate) ||
		errors.Is(err, tex2img.ErrPageLoad) ||
		errors.Is(err, tex2img.ErrDiagramCompile) ||
		errors.Is(err, tex2img.ErrScreenshot) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, tex2img.ErrOutputMissing) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrConfigRead) ||
		errors.Is(err, ErrConfigParse) ||
		errors.Is(err, ErrBadDuration) ||
		errors.Is(err, tex2img.ErrEmptyInput) ||
		errors.Is(err, tex2img.ErrNoOutputPath) ||
		errors.Is(err, tex2img.ErrInvalidViewport) ||
		errors.Is(err, tex2img.ErrInvalidTimeout) ||
		errors.Is(err, tex2img.ErrInvalidBackground) {
		return ExitUsage
	}

	return ExitGeneral
}
