package tex2img

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// cjkWarningComment is prepended to generated TikZ documents containing
// CJK characters: the in-browser compiler has no CJK fonts, so such
// glyphs will not render.
const cjkWarningComment = "% WARNING: TikZJax does not support CJK fonts, CJK text may not render correctly\n"

// Environment patterns handled by the converter.
var (
	tikzPicturePattern = regexp.MustCompile(`(?s)\\begin\{tikzpicture\}.*?\\end\{tikzpicture\}`)
	tikzCDPattern      = regexp.MustCompile(`(?s)\\begin\{tikzcd\}.*?\\end\{tikzcd\}`)
	circuitikzPattern  = regexp.MustCompile(`(?s)\\begin\{circuitikz\}.*?\\end\{circuitikz\}`)

	// Standalone \chemfig{...} with up to two levels of brace nesting.
	chemfigPattern = regexp.MustCompile(`\\chemfig\{(?:[^{}]|\{(?:[^{}]|\{[^{}]*\})*\})*\}`)
)

// MacroRule is one shorthand-to-formal macro substitution, applied as a
// plain string replacement.
type MacroRule struct {
	From string
	To   string
}

// KeywordRule maps content signals to a required package or TikZ
// library: the rule fires when any keyword occurs in the drawing body.
// FoldKeywords are matched case-insensitively.
type KeywordRule struct {
	Name         string
	Keywords     []string
	FoldKeywords []string
}

func (r KeywordRule) matches(code string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(code, kw) {
			return true
		}
	}
	if len(r.FoldKeywords) > 0 {
		lower := strings.ToLower(code)
		for _, kw := range r.FoldKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// TikzRules is the immutable rule set a TikzConverter is built with.
// Keeping the tables as constructor data lets converters with different
// rule sets coexist and be tested in isolation.
type TikzRules struct {
	Macros       []MacroRule
	BasePackages []string
	PackageRules []KeywordRule
	LibraryRules []KeywordRule
}

// DefaultTikzRules returns the standard rule set.
func DefaultTikzRules() TikzRules {
	return TikzRules{
		Macros: []MacroRule{
			{`\Z`, `\mathbb{Z}`},
			{`\N`, `\mathbb{N}`},
			{`\Q`, `\mathbb{Q}`},
			{`\R`, `\mathbb{R}`},
			{`\C`, `\mathbb{C}`},
			{`\F`, `\mathbb{F}`},
			{`\P`, `\mathbb{P}`},
			{`\A`, `\mathbb{A}`},
			{`\eps`, `\varepsilon`},
			{`\vphi`, `\varphi`},
		},
		BasePackages: []string{"amsmath", "amsfonts", "amssymb"},
		PackageRules: []KeywordRule{
			{Name: "chemfig", Keywords: []string{"chemfig", "chemname"}},
			{Name: "tikz-cd", Keywords: []string{"tikzcd", `\arrow`}},
			{Name: "circuitikz", Keywords: []string{"circuitikz", "to["}},
			{Name: "pgfplots", Keywords: []string{"axis", "addplot"}},
			{Name: "tikz-3dplot", Keywords: []string{"tdplot"}, FoldKeywords: []string{"3d"}},
			{Name: "array", Keywords: []string{"array", "tabular"}},
		},
		LibraryRules: []KeywordRule{
			{Name: "arrows.meta", Keywords: []string{"Stealth", "Latex"}},
			{Name: "calc", Keywords: []string{"calc", "($"}},
			{Name: "positioning", Keywords: []string{"positioning", " of=", " of "}},
			{Name: "shapes.geometric", Keywords: []string{"ellipse", "rectangle", "diamond"}},
			{Name: "shapes", Keywords: []string{"shapes"}},
			{Name: "backgrounds", Keywords: []string{"background"}},
			{Name: "fit", Keywords: []string{"fit="}},
			{Name: "calc", Keywords: []string{"pgfplots"}},
		},
	}
}

// TikzConverter rewrites TikZ drawing environments (plain pictures,
// commutative diagrams, circuit diagrams) and standalone chemfig
// commands into complete standalone documents embedded in script tags
// for in-browser compilation.
type TikzConverter struct {
	plot  *PlotConverter
	rules TikzRules
	log   *zap.Logger
}

// NewTikzConverter creates a TikzConverter using the given rule set.
// A nil logger disables logging.
func NewTikzConverter(plot *PlotConverter, rules TikzRules, log *zap.Logger) *TikzConverter {
	if log == nil {
		log = zap.NewNop()
	}
	return &TikzConverter{plot: plot, rules: rules, log: log}
}

// Convert rewrites all TikZ environments and standalone chemfig
// commands in text.
func (c *TikzConverter) Convert(text string) string {
	text = tikzPicturePattern.ReplaceAllStringFunc(text, c.convertBlock)
	text = tikzCDPattern.ReplaceAllStringFunc(text, c.convertBlock)
	text = circuitikzPattern.ReplaceAllStringFunc(text, c.convertBlock)

	if strings.Contains(text, `\chemfig{`) && !strings.Contains(text, `<script type="text/tikz">`) {
		text = chemfigPattern.ReplaceAllStringFunc(text, c.convertChemfig)
	}

	return text
}

// convertBlock converts one drawing environment.
func (c *TikzConverter) convertBlock(tikzCode string) string {
	for _, m := range c.rules.Macros {
		tikzCode = strings.ReplaceAll(tikzCode, m.From, m.To)
	}

	tikzCode = c.plot.Convert(tikzCode)

	packages := c.detectPackages(tikzCode)
	libraries := c.detectLibraries(tikzCode)
	c.log.Info("tikz environment converted",
		zap.Strings("packages", packages),
		zap.Strings("libraries", libraries))

	return wrapTikzScript(c.buildDocument(tikzCode, packages, libraries))
}

// convertChemfig wraps a standalone \chemfig command as its own
// document.
func (c *TikzConverter) convertChemfig(cmd string) string {
	doc := fmt.Sprintf(`\usepackage{amsmath}
\usepackage{amsfonts}
\usepackage{amssymb}
\usepackage{chemfig}
\begin{document}
%s
\end{document}`, cmd)
	c.log.Info("standalone chemfig converted", zap.String("command", truncate(cmd, 100)))
	return wrapTikzScript(doc)
}

func (c *TikzConverter) detectPackages(tikzCode string) []string {
	packages := append([]string(nil), c.rules.BasePackages...)
	for _, rule := range c.rules.PackageRules {
		if rule.matches(tikzCode) && !contains(packages, rule.Name) {
			packages = append(packages, rule.Name)
		}
	}
	return packages
}

func (c *TikzConverter) detectLibraries(tikzCode string) []string {
	var libs []string
	for _, rule := range c.rules.LibraryRules {
		if rule.matches(tikzCode) && !contains(libs, rule.Name) {
			libs = append(libs, rule.Name)
		}
	}
	return libs
}

// buildDocument assembles the complete standalone document the
// in-browser compiler expects.
func (c *TikzConverter) buildDocument(tikzCode string, packages, libraries []string) string {
	var b strings.Builder

	if hasCJK(tikzCode) {
		c.log.Warn("tikz code contains CJK characters, the in-browser compiler cannot render them")
		b.WriteString(cjkWarningComment)
	}

	for i, pkg := range packages {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, `\usepackage{%s}`, pkg)
	}
	b.WriteString("\n")
	if contains(packages, "pgfplots") {
		b.WriteString(`\pgfplotsset{compat=1.16}`)
	}
	b.WriteString("\n")
	if len(libraries) > 0 {
		fmt.Fprintf(&b, `\usetikzlibrary{%s}`, strings.Join(libraries, ","))
	}
	b.WriteString("\n\\begin{document}\n")
	b.WriteString(tikzCode)
	b.WriteString("\n\\end{document}")

	return b.String()
}

// wrapTikzScript wraps a document as a diagram container recognized by
// the page and the render-completion detector.
func wrapTikzScript(doc string) string {
	return fmt.Sprintf("<div class=\"tikz-diagram\"><script type=\"text/tikz\">\n%s\n</script></div>", doc)
}

// hasCJK reports whether text contains CJK unified ideographs.
func hasCJK(text string) bool {
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
