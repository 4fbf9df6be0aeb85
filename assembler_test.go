package tex2img

import (
	"strings"
	"testing"
)

const testTemplate = `<!DOCTYPE html>
<html>
<head><style>:root { --bg-color: #FDFBF0; }</style></head>
<body>{{CONTENT}}</body>
</html>`

func TestAssembler_MathSurvivesVerbatim(t *testing.T) {
	t.Parallel()

	asm := NewAssembler(testTemplate, nil)

	tests := []struct {
		name string
		math string
	}{
		{name: "inline dollars", math: `$x_1 * y_2$`},
		{name: "display dollars", math: `$$\sum_{i=1}^{n} i$$`},
		{name: "bracket display", math: `\[ \frac{a_1}{b_2} \]`},
		{name: "paren inline", math: `\( e^{i\pi} \)`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := asm.Assemble("Value "+tt.math+" holds.", "")
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}
			if !strings.Contains(got, tt.math) {
				t.Errorf("math not preserved verbatim in %q", got)
			}
			if strings.Contains(got, "<em>") {
				t.Errorf("markdown emphasis applied inside math: %q", got)
			}
		})
	}
}

func TestAssembler_CodeBlockRestored(t *testing.T) {
	t.Parallel()

	asm := NewAssembler(testTemplate, nil)

	input := "```python\ndef f(a_b):\n    return a_b * 2\n```"
	got, err := asm.Assemble(input, "")
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if !strings.Contains(got, `<pre><code class="language-python">`) {
		t.Errorf("language class missing: %q", got)
	}
	if !strings.Contains(got, "return a_b * 2") {
		t.Errorf("code body mangled: %q", got)
	}
}

func TestAssembler_CodeBlockWithoutLanguage(t *testing.T) {
	t.Parallel()

	asm := NewAssembler(testTemplate, nil)

	got, err := asm.Assemble("```\nplain text\n```", "")
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if !strings.Contains(got, "<pre><code>plain text") {
		t.Errorf("bare code block not restored: %q", got)
	}
}

func TestAssembler_TemplateSubstitution(t *testing.T) {
	t.Parallel()

	asm := NewAssembler(testTemplate, nil)

	t.Run("custom background", func(t *testing.T) {
		t.Parallel()

		got, err := asm.Assemble("# Title", "#FFFFFF")
		if err != nil {
			t.Fatalf("Assemble() error = %v", err)
		}
		if !strings.Contains(got, "--bg-color: #FFFFFF;") {
			t.Errorf("background not substituted: %q", got)
		}
		if strings.Contains(got, "--bg-color: #FDFBF0;") {
			t.Errorf("default background left in place: %q", got)
		}
		if !strings.Contains(got, "<h1") {
			t.Errorf("content not injected: %q", got)
		}
		if strings.Contains(got, templateContentMarker) {
			t.Errorf("content marker left in place: %q", got)
		}
	})

	t.Run("empty background uses default", func(t *testing.T) {
		t.Parallel()

		got, err := asm.Assemble("text", "")
		if err != nil {
			t.Fatalf("Assemble() error = %v", err)
		}
		if !strings.Contains(got, "--bg-color: "+DefaultBackground+";") {
			t.Errorf("default background missing: %q", got)
		}
	})
}

func TestAssembler_DiagramScriptPassesThrough(t *testing.T) {
	t.Parallel()

	asm := NewAssembler(testTemplate, nil)

	input := "<div class=\"tikz-diagram\"><script type=\"text/tikz\">\n\\begin{tikzpicture}\n\\draw (0,0) -- (1,1);\n\\end{tikzpicture}\n</script></div>"
	got, err := asm.Assemble(input, "")
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if !strings.Contains(got, `<script type="text/tikz">`) {
		t.Errorf("raw script block escaped or dropped: %q", got)
	}
}

func TestFixTikzComments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "comment glued to end tag",
			input: "% final edge\\end{tikzpicture}",
			want:  "% final edge\n\\end{tikzpicture}",
		},
		{
			name:  "tikzcd variant",
			input: "% arrows\\end{tikzcd}",
			want:  "% arrows\n\\end{tikzcd}",
		},
		{
			name:  "end tag on own line untouched",
			input: "% done\n\\end{tikzpicture}",
			want:  "% done\n\\end{tikzpicture}",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := fixTikzComments(tt.input); got != tt.want {
				t.Errorf("fixTikzComments(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeMarkdown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "heading space inserted",
			input: "##Title",
			want:  "## Title",
		},
		{
			name:  "blank line before heading",
			input: "intro text\n# Section",
			want:  "intro text\n\n# Section",
		},
		{
			name:  "blank line before first list item only",
			input: "intro\n- one\n- two",
			want:  "intro\n\n- one\n- two",
		},
		{
			name:  "fenced code untouched",
			input: "```\n##not a heading\n```",
			want:  "```\n##not a heading\n```",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := normalizeMarkdown(tt.input); got != tt.want {
				t.Errorf("normalizeMarkdown(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConvertLineEscapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "token before space", input: `one\n two`, want: "one\n two"},
		{name: "token at end of line", input: `one\n`, want: "one\n"},
		{name: "latex command kept", input: `\nabla f`, want: `\nabla f`},
		{name: "neq kept", input: `a \neq b`, want: `a \neq b`},
		{name: "token before digit", input: `x\n42`, want: "x\n42"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := convertLineEscapes(tt.input); got != tt.want {
				t.Errorf("convertLineEscapes(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestProtector_RoundTrip(t *testing.T) {
	t.Parallel()

	p := newProtector()
	input := "before $a_1$ and ```go\nx := 1\n``` after"

	protected := p.protect(input)
	if strings.Contains(protected, "$a_1$") {
		t.Errorf("math not protected: %q", protected)
	}
	if strings.Contains(protected, "x := 1") {
		t.Errorf("code not protected: %q", protected)
	}

	restored := p.restore(protected)
	if !strings.Contains(restored, "$a_1$") {
		t.Errorf("math not restored: %q", restored)
	}
	if !strings.Contains(restored, `<pre><code class="language-go">x := 1`) {
		t.Errorf("code not restored: %q", restored)
	}
	if leftover := p.leftover(restored); leftover != "" {
		t.Errorf("leftover placeholder %q after full restore", leftover)
	}
}

func TestProtector_LeftoverDetected(t *testing.T) {
	t.Parallel()

	p := newProtector()
	p.protect("$x$")

	if leftover := p.leftover(p.mathToken(0)); leftover == "" {
		t.Error("leftover() = empty for unconsumed placeholder")
	}
}

func TestProtector_NoncesDiffer(t *testing.T) {
	t.Parallel()

	if newProtector().nonce == newProtector().nonce {
		t.Error("two protectors share a nonce")
	}
}
