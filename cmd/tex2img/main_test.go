package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tex2img "github.com/alnah/go-tex2img"
	"go.uber.org/zap"
)

func TestReadInput(t *testing.T) {
	t.Parallel()

	t.Run("reads file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "in.txt")
		if err := os.WriteFile(path, []byte("$x^2$"), 0o600); err != nil {
			t.Fatal(err)
		}
		got, err := readInput(path)
		if err != nil {
			t.Fatalf("readInput() error = %v", err)
		}
		if got != "$x^2$" {
			t.Errorf("readInput() = %q", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		if _, err := readInput("/nonexistent/in.txt"); !errors.Is(err, ErrReadInput) {
			t.Errorf("error = %v, want ErrReadInput", err)
		}
	})

	t.Run("blank file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "blank.txt")
		if err := os.WriteFile(path, []byte("  \n\t\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := readInput(path); !errors.Is(err, tex2img.ErrEmptyInput) {
			t.Errorf("error = %v, want ErrEmptyInput", err)
		}
	})
}

func TestRunValidate(t *testing.T) {
	t.Parallel()

	t.Run("clean input", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := runValidate(`$\frac{a}{b}$`, zap.NewNop(), &out); err != nil {
			t.Fatalf("runValidate() error = %v", err)
		}
		if !strings.Contains(out.String(), "OK") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("broken input", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		err := runValidate(`$\frac{a}`, zap.NewNop(), &out)
		if !errors.Is(err, ErrValidationFailed) {
			t.Fatalf("runValidate() error = %v, want ErrValidationFailed", err)
		}
		if out.Len() == 0 {
			t.Error("no diagnostics printed")
		}
	})
}

func TestRun_VersionMode(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := run(&cliFlags{version: true}, zap.NewNop(), &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "tex2img") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRun_ValidateMode(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(path, []byte(`$x^2`), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := run(&cliFlags{validate: true, input: path}, zap.NewNop(), &out)
	if !errors.Is(err, ErrValidationFailed) {
		t.Errorf("run() error = %v, want ErrValidationFailed", err)
	}
}
