package tex2img

import (
	"regexp"

	"go.uber.org/zap"
)

// Text-command and set-notation patterns.
var (
	textbfPattern = regexp.MustCompile(`(?s)\\textbf\{(.*?)\}`)
	textitPattern = regexp.MustCompile(`(?s)\\textit\{(.*?)\}`)
	emphPattern   = regexp.MustCompile(`(?s)\\emph\{(.*?)\}`)

	// {... \mid ...} not preceded by a backslash. RE2 has no lookbehind,
	// so the preceding character (or start of text) is captured and kept.
	setNotationPattern = regexp.MustCompile(`(^|[^\\])\{([^{}]*\\mid[^{}]*)\}`)
)

// transformStage is one ordered step of the preprocessing pipeline.
type transformStage struct {
	name  string
	apply func(string) string
}

// Preprocessor composes the structural converters into one ordered
// transformation of raw source text.
//
// Stage order is load-bearing: text commands and the set-notation fix
// run first while brace patterns are still plain LaTeX; lists and
// tables run before TikZ because their line- and brace-oriented
// rewrites must not see drawing bodies that have already been wrapped
// in script tags, and TikZ bodies must no longer contain list/table
// markup when packages are inferred; Mermaid runs last so fenced blocks
// cannot be disturbed by any LaTeX-oriented substitution.
type Preprocessor struct {
	stages []transformStage
	log    *zap.Logger
}

// NewPreprocessor wires the default pipeline from its converters.
// A nil logger disables logging.
func NewPreprocessor(tikz *TikzConverter, lists *ListConverter, tables *TableConverter, mermaid *MermaidConverter, log *zap.Logger) *Preprocessor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Preprocessor{
		log: log,
		stages: []transformStage{
			// Pre: raw LaTeX. Post: \textbf/\textit/\emph are gone.
			{name: "text-commands", apply: convertTextCommands},
			// Pre: set braces are raw. Post: {..\mid..} uses \lbrace \rbrace.
			{name: "set-notation", apply: fixSetNotation},
			// Pre: enumerate/itemize present. Post: replaced by numbered lines.
			{name: "lists", apply: lists.Convert},
			// Pre: tabular present. Post: replaced by pipe tables.
			{name: "tables", apply: tables.Convert},
			// Pre: drawing environments are raw LaTeX. Post: script blocks.
			{name: "tikz", apply: tikz.Convert},
			// Pre: mermaid fences intact. Post: <pre class="mermaid"> blocks.
			{name: "mermaid", apply: mermaid.Convert},
		},
	}
}

// Preprocess runs every stage in order.
func (p *Preprocessor) Preprocess(text string) string {
	for _, stage := range p.stages {
		before := len(text)
		text = stage.apply(text)
		p.log.Debug("preprocess stage applied",
			zap.String("stage", stage.name),
			zap.Int("before", before),
			zap.Int("after", len(text)))
	}
	return text
}

// convertTextCommands rewrites LaTeX text formatting into Markdown.
func convertTextCommands(text string) string {
	text = textbfPattern.ReplaceAllString(text, "**$1**")
	text = textitPattern.ReplaceAllString(text, "*$1*")
	text = emphPattern.ReplaceAllString(text, "*$1*")
	return text
}

// fixSetNotation rewrites {..\mid..} set braces into explicit \lbrace
// \rbrace so the braces survive later macro handling. The lookbehind
// workaround consumes the preceding character, which makes a single
// pass skip the second of two adjacent sets; iterating to a fixed
// point restores them. The replacement introduces no new braces, so
// the loop terminates.
func fixSetNotation(text string) string {
	for {
		replaced := setNotationPattern.ReplaceAllString(text, "$1\\lbrace $2\\rbrace ")
		if replaced == text {
			return text
		}
		text = replaced
	}
}
