package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	tex2img "github.com/alnah/go-tex2img"
	"github.com/alnah/go-tex2img/internal/yamlutil"
)

// Sentinel errors for configuration.
var (
	ErrConfigRead  = errors.New("failed to read config file")
	ErrConfigParse = errors.New("failed to parse config file")
	ErrBadDuration = errors.New("invalid duration in config")
)

// fileConfig mirrors the YAML config file. Durations are strings in
// Go syntax ("90s", "2m"). Zero values defer to library defaults.
type fileConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Background string `yaml:"background"`
	StaticDir  string `yaml:"static_dir"`
	Template   string `yaml:"template"`

	NavigationTimeout string `yaml:"navigation_timeout"`
	TypesetTimeout    string `yaml:"typeset_timeout"`
	DiagramTimeout    string `yaml:"diagram_timeout"`
	ScreenshotTimeout string `yaml:"screenshot_timeout"`
}

// loadFileConfig reads and strictly parses a YAML config file.
func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the user's own --config flag
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigRead, err)
	}
	var cfg fileConfig
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return &cfg, nil
}

// settings is the merged result of defaults, config file, and flags.
type settings struct {
	spec      tex2img.RenderSpec
	staticDir string
	template  string // file path; empty uses the embedded template
}

// resolveSettings merges, with flags taking precedence over the config
// file, which takes precedence over library defaults.
func resolveSettings(f *cliFlags) (*settings, error) {
	s := &settings{spec: tex2img.DefaultRenderSpec()}

	if f.config != "" {
		cfg, err := loadFileConfig(f.config)
		if err != nil {
			return nil, err
		}
		if err := applyFileConfig(s, cfg); err != nil {
			return nil, err
		}
	}

	if f.width > 0 {
		s.spec.ViewportWidth = f.width
	}
	if f.height > 0 {
		s.spec.ViewportHeight = f.height
	}
	if f.background != "" {
		s.spec.Background = f.background
	}
	if f.navTimeout > 0 {
		s.spec.NavigationTimeout = f.navTimeout
	}
	if f.mathTimeout > 0 {
		s.spec.TypesetTimeout = f.mathTimeout
	}
	if f.diagramTimeout > 0 {
		s.spec.DiagramTimeout = f.diagramTimeout
	}
	if f.screenshotTimeout > 0 {
		s.spec.ScreenshotTimeout = f.screenshotTimeout
	}
	if f.staticDir != "" {
		s.staticDir = f.staticDir
	}
	if f.template != "" {
		s.template = f.template
	}

	if err := s.spec.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func applyFileConfig(s *settings, cfg *fileConfig) error {
	if cfg.Width > 0 {
		s.spec.ViewportWidth = cfg.Width
	}
	if cfg.Height > 0 {
		s.spec.ViewportHeight = cfg.Height
	}
	if cfg.Background != "" {
		s.spec.Background = cfg.Background
	}
	s.staticDir = cfg.StaticDir
	s.template = cfg.Template

	for _, d := range []struct {
		raw string
		dst *time.Duration
	}{
		{cfg.NavigationTimeout, &s.spec.NavigationTimeout},
		{cfg.TypesetTimeout, &s.spec.TypesetTimeout},
		{cfg.DiagramTimeout, &s.spec.DiagramTimeout},
		{cfg.ScreenshotTimeout, &s.spec.ScreenshotTimeout},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrBadDuration, d.raw)
		}
		*d.dst = parsed
	}
	return nil
}
