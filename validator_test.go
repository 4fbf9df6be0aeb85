package tex2img

import (
	"strings"
	"testing"
)

func TestValidator_CleanInput(t *testing.T) {
	t.Parallel()

	v := NewValidator(nil)

	inputs := []struct {
		name string
		text string
	}{
		{name: "plain prose", text: "Nothing mathematical here."},
		{name: "balanced math", text: `$\frac{a}{b}$ and $x^2$`},
		{name: "escaped braces", text: `$\{x \mid x > 0\}$`},
		{name: "escaped dollar", text: `Price is \$5 and $x$`},
		{name: "paired environment", text: "\\begin{tikzpicture}\n\\draw (0,0);\n\\end{tikzpicture}"},
		{name: "integral with plain bounds", text: `$\int_{0}^{1} x \, dx$`},
	}

	for _, tt := range inputs {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			report := v.Validate(tt.text)
			if !report.OK {
				t.Errorf("Validate(%q) flagged clean input: %v", tt.text, report.Diagnostics)
			}
		})
	}
}

func TestValidator_Diagnostics(t *testing.T) {
	t.Parallel()

	v := NewValidator(nil)

	tests := []struct {
		name    string
		text    string
		wantHit string
	}{
		{
			name:    "unbalanced braces",
			text:    `$\frac{a}{b$`,
			wantHit: "unbalanced braces",
		},
		{
			name:    "frac missing second argument",
			text:    `$\frac{a} + 1$`,
			wantHit: `\frac missing second argument`,
		},
		{
			name:    "unclosed frac in integral bound",
			text:    `$\int_{\frac{1}^{2} x dx$`,
			wantHit: `unclosed \frac`,
		},
		{
			name:    "odd dollar count",
			text:    `so $x^2 is squared`,
			wantHit: "odd number of $ delimiters",
		},
		{
			name:    "unclosed environment",
			text:    `\begin{align} x &= 1`,
			wantHit: "environment align",
		},
		{
			name:    "end without begin",
			text:    `x = 1 \end{equation}`,
			wantHit: "environment equation",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			report := v.Validate(tt.text)
			if report.OK {
				t.Fatalf("Validate(%q) passed, want diagnostics", tt.text)
			}
			found := false
			for _, d := range report.Diagnostics {
				if strings.Contains(d, tt.wantHit) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Validate(%q) diagnostics %v missing %q", tt.text, report.Diagnostics, tt.wantHit)
			}
		})
	}
}

func TestValidator_MultipleIssuesAggregated(t *testing.T) {
	t.Parallel()

	v := NewValidator(nil)

	report := v.Validate(`$\frac{a} and \begin{tikzcd} A`)
	if report.OK {
		t.Fatal("Validate() passed, want diagnostics")
	}
	if len(report.Diagnostics) < 2 {
		t.Errorf("got %d diagnostics, want at least 2: %v", len(report.Diagnostics), report.Diagnostics)
	}
}
