package yamlutil

import (
	"errors"
	"strings"
	"testing"
)

type renderConfig struct {
	Width      int    `yaml:"width"`
	Background string `yaml:"background"`
}

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	var cfg renderConfig
	err := UnmarshalStrict([]byte("width: 1150\nbackground: \"#FDFBF0\"\n"), &cfg)
	if err != nil {
		t.Fatalf("UnmarshalStrict() error = %v", err)
	}
	if cfg.Width != 1150 || cfg.Background != "#FDFBF0" {
		t.Errorf("UnmarshalStrict() = %+v", cfg)
	}
}

func TestUnmarshalStrict_Validation(t *testing.T) {
	t.Parallel()

	var cfg renderConfig

	if err := UnmarshalStrict(nil, &cfg); !errors.Is(err, ErrNilData) {
		t.Errorf("nil data error = %v, want ErrNilData", err)
	}
	if err := UnmarshalStrict([]byte("width: 1"), nil); !errors.Is(err, ErrNilDestination) {
		t.Errorf("nil destination error = %v, want ErrNilDestination", err)
	}

	big := []byte(strings.Repeat("a", MaxInputSize+1))
	if err := UnmarshalStrict(big, &cfg); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("oversized input error = %v, want ErrInputTooLarge", err)
	}
}

func TestUnmarshalStrict_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	var cfg renderConfig
	if err := UnmarshalStrict([]byte("width: 1150\nbogus: true\n"), &cfg); err == nil {
		t.Error("UnmarshalStrict() accepted unknown field")
	}
}
