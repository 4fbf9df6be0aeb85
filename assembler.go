package tex2img

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
)

// Template tokens the assembler substitutes.
const (
	templateContentMarker = "{{CONTENT}}"
	templateBgDeclaration = "--bg-color: #FDFBF0;"
)

// Precompiled patterns for assembly.
var (
	// A % comment sharing a line with an environment end tag breaks the
	// line-oriented in-browser compiler; force the tag onto its own line.
	tikzCommentEndPattern   = regexp.MustCompile(`(%[^\n]*?)\\end\{tikzpicture\}`)
	tikzCDCommentEndPattern = regexp.MustCompile(`(%[^\n]*?)\\end\{tikzcd\}`)

	headingSpacePattern = regexp.MustCompile(`^(#{1,6})([^#\s])`)
	headingLinePattern  = regexp.MustCompile(`^#{1,6}\s+`)
	bulletItemPattern   = regexp.MustCompile(`^[-*]\s+`)
	numberItemPattern   = regexp.MustCompile(`^\d+\.\s+`)

	// Protection patterns, applied in order: fenced code first, then the
	// four math delimiter forms. Inline $...$ stays on one line.
	fencedCodePattern  = regexp.MustCompile("(?s)```.*?```")
	mathBracketPattern = regexp.MustCompile(`(?s)\\\[.*?\\\]`)
	mathParenPattern   = regexp.MustCompile(`(?s)\\\(.*?\\\)`)
	mathDisplayPattern = regexp.MustCompile(`(?s)\$\$.*?\$\$`)
	mathInlinePattern  = regexp.MustCompile(`\$.*?\$`)
)

// Assembler turns preprocessed text into a complete HTML page. Math and
// fenced code are placeholder-protected around the Markdown conversion
// so the Markdown engine cannot mangle underscores and asterisks inside
// them; restoration must consume every placeholder.
type Assembler struct {
	md       goldmark.Markdown
	template string
	log      *zap.Logger
}

// NewAssembler creates an Assembler rendering into the given page
// template. The template must contain the {{CONTENT}} marker and the
// default --bg-color declaration. A nil logger disables logging.
func NewAssembler(template string, log *zap.Logger) *Assembler {
	if log == nil {
		log = zap.NewNop()
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true), // CSS classes instead of inline styles
				),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(), // Treat newlines as <br>
			html.WithXHTML(),     // Self-closing tags
			html.WithUnsafe(),    // Diagram script blocks must pass through as raw HTML
		),
	)
	return &Assembler{md: md, template: template, log: log}
}

// Assemble converts text to HTML and injects it into the page template
// with the given background color (empty uses the default).
func (a *Assembler) Assemble(text, background string) (string, error) {
	if background == "" {
		background = DefaultBackground
	}

	text = fixTikzComments(text)
	text = normalizeMarkdown(text)

	p := newProtector()
	text = p.protect(text)

	var buf bytes.Buffer
	if err := a.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("markdown conversion: %w", err)
	}
	body := buf.String()

	body = p.restore(body)
	if leftover := p.leftover(body); leftover != "" {
		return "", fmt.Errorf("%w: %s", ErrPlaceholderLeak, leftover)
	}

	page := strings.Replace(a.template, templateContentMarker, body, 1)
	page = strings.Replace(page, templateBgDeclaration, fmt.Sprintf("--bg-color: %s;", background), 1)

	a.log.Debug("page assembled",
		zap.Int("bytes", len(page)),
		zap.Int("math_spans", len(p.mathBlocks)),
		zap.Int("code_blocks", len(p.codeBlocks)))
	return page, nil
}

// fixTikzComments forces environment end tags that share a line with a
// % comment onto their own line.
func fixTikzComments(text string) string {
	text = tikzCommentEndPattern.ReplaceAllString(text, "$1\n\\end{tikzpicture}")
	return tikzCDCommentEndPattern.ReplaceAllString(text, "$1\n\\end{tikzcd}")
}

// normalizeMarkdown repairs common formatting problems: literal \n
// tokens become real newlines, headings get their missing space, and
// headings/list items get a separating blank line. Fenced code is left
// alone.
func normalizeMarkdown(text string) string {
	text = convertEscapedNewlines(text)

	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))
	inCode := false

	for _, line := range lines {
		stripped := strings.TrimSpace(line)

		if strings.HasPrefix(stripped, "```") || strings.HasPrefix(stripped, "~~~") {
			inCode = !inCode
			result = append(result, line)
			continue
		}
		if inCode {
			result = append(result, line)
			continue
		}

		// Missing space after heading markers: "##Title" -> "## Title".
		if m := headingSpacePattern.FindStringSubmatch(stripped); m != nil {
			stripped = m[1] + " " + stripped[len(m[1]):]
			line = stripped
		}

		isHeading := headingLinePattern.MatchString(stripped)
		isListItem := bulletItemPattern.MatchString(stripped) || numberItemPattern.MatchString(stripped)

		if (isHeading || isListItem) && len(result) > 0 {
			prev := strings.TrimSpace(result[len(result)-1])
			prevIsList := bulletItemPattern.MatchString(prev) || numberItemPattern.MatchString(prev)
			if prev != "" && (isHeading || !prevIsList) {
				result = append(result, "")
			}
		}

		result = append(result, line)
	}

	return strings.Join(result, "\n")
}

// convertEscapedNewlines turns literal \n tokens into real newlines
// outside fenced code. A following letter means the token is a LaTeX
// command prefix (\nabla, \neq) and is kept.
func convertEscapedNewlines(text string) string {
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))
	inCode := false

	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "```") || strings.HasPrefix(stripped, "~~~") {
			inCode = !inCode
			result = append(result, line)
			continue
		}
		if inCode {
			result = append(result, line)
			continue
		}
		result = append(result, convertLineEscapes(line))
	}

	return strings.Join(result, "\n")
}

func convertLineEscapes(line string) string {
	var b strings.Builder
	for i := 0; i < len(line); {
		if line[i] == '\\' && i+1 < len(line) && line[i+1] == 'n' &&
			(i+2 >= len(line) || !isLetter(line[i+2])) {
			b.WriteByte('\n')
			i += 2
			continue
		}
		b.WriteByte(line[i])
		i++
	}
	return b.String()
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// protector implements placeholder substitution for math and code
// spans. Placeholder tokens carry a per-run random nonce so they are
// unique within a run and cannot collide with naturally occurring text.
type protector struct {
	nonce      string
	mathBlocks []string
	codeBlocks []string
}

func newProtector() *protector {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand is documented never to fail on supported
		// platforms; keep a deterministic fallback anyway.
		return &protector{nonce: "f4c3b00c"}
	}
	return &protector{nonce: hex.EncodeToString(b[:])}
}

func (p *protector) mathToken(i int) string {
	return fmt.Sprintf("MATHBLOCK%s%dMATHBLOCK", p.nonce, i)
}

func (p *protector) codeToken(i int) string {
	return fmt.Sprintf("CODEBLOCK%s%dCODEBLOCK", p.nonce, i)
}

// protect replaces fenced code blocks, then the four math delimiter
// forms, with placeholder tokens.
func (p *protector) protect(text string) string {
	text = fencedCodePattern.ReplaceAllStringFunc(text, func(block string) string {
		token := p.codeToken(len(p.codeBlocks))
		p.codeBlocks = append(p.codeBlocks, block)
		return token
	})

	substituteMath := func(block string) string {
		token := p.mathToken(len(p.mathBlocks))
		p.mathBlocks = append(p.mathBlocks, block)
		return token
	}
	text = mathBracketPattern.ReplaceAllStringFunc(text, substituteMath)
	text = mathParenPattern.ReplaceAllStringFunc(text, substituteMath)
	text = mathDisplayPattern.ReplaceAllStringFunc(text, substituteMath)
	text = mathInlinePattern.ReplaceAllStringFunc(text, substituteMath)

	return text
}

// restore puts math spans back verbatim and re-wraps code blocks as
// pre/code elements with a language class from the fence info string.
func (p *protector) restore(doc string) string {
	for i, block := range p.mathBlocks {
		doc = strings.Replace(doc, p.mathToken(i), block, 1)
	}
	for i, block := range p.codeBlocks {
		doc = strings.Replace(doc, p.codeToken(i), renderCodeBlock(block), 1)
	}
	return doc
}

// leftover returns the first unconsumed placeholder found in html, or
// empty when restoration was total.
func (p *protector) leftover(doc string) string {
	for i := range p.mathBlocks {
		if strings.Contains(doc, p.mathToken(i)) {
			return p.mathToken(i)
		}
	}
	for i := range p.codeBlocks {
		if strings.Contains(doc, p.codeToken(i)) {
			return p.codeToken(i)
		}
	}
	return ""
}

// renderCodeBlock converts one protected fenced block back to HTML.
func renderCodeBlock(block string) string {
	content := strings.Trim(block, "`")

	var language, code string
	if idx := strings.Index(content, "\n"); idx >= 0 {
		language = strings.TrimSpace(content[:idx])
		code = content[idx+1:]
	} else {
		code = content
	}

	langClass := ""
	if language != "" {
		langClass = fmt.Sprintf(" class=\"language-%s\"", language)
	}
	return fmt.Sprintf("<pre><code%s>%s</code></pre>", langClass, code)
}
