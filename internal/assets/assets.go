// Package assets holds the embedded page template the renderer injects
// converted content into.
package assets

import (
	"embed"
	"errors"
	"fmt"
	"strings"
)

//go:embed page.html
var files embed.FS

// Markers a usable page template must carry.
const (
	ContentMarker        = "{{CONTENT}}"
	BackgroundDeclMarker = "--bg-color: #FDFBF0;"
	ReadyFlagMarker      = "mathJaxReady"
)

var ErrInvalidTemplate = errors.New("invalid page template")

// PageTemplate returns the embedded default page template.
func PageTemplate() string {
	data, err := files.ReadFile("page.html")
	if err != nil {
		// The file is embedded at compile time; absence is a build defect.
		panic(fmt.Sprintf("assets: embedded page.html missing: %v", err))
	}
	return string(data)
}

// ValidateTemplate checks that a template carries the substitution
// markers and the typeset readiness flag the renderer depends on.
func ValidateTemplate(template string) error {
	for _, marker := range []string{ContentMarker, BackgroundDeclMarker, ReadyFlagMarker} {
		if !strings.Contains(template, marker) {
			return fmt.Errorf("%w: missing %q", ErrInvalidTemplate, marker)
		}
	}
	return nil
}
