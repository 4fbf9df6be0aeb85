package tex2img

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// mermaidBlockPattern matches ```mermaid fenced code blocks.
var mermaidBlockPattern = regexp.MustCompile("```mermaid[ \t]*\n((?s).*?)```")

// defaultMermaidTypes is the diagram-type vocabulary used for
// classification; an unrecognized first line classifies as "unknown".
var defaultMermaidTypes = []string{
	"graph",
	"flowchart",
	"sequenceDiagram",
	"classDiagram",
	"stateDiagram",
	"erDiagram",
	"journey",
	"gantt",
	"pie",
	"quadrantChart",
	"requirementDiagram",
	"gitGraph",
	"mindmap",
	"timeline",
	"zenuml",
	"sankey",
	"xychart",
}

// MermaidConverter rewrites fenced mermaid code blocks into
// <pre class="mermaid"> elements that the client-side Mermaid script
// renders in place.
type MermaidConverter struct {
	types []string
	log   *zap.Logger
}

// NewMermaidConverter creates a MermaidConverter with the default
// diagram-type vocabulary. A nil logger disables logging.
func NewMermaidConverter(log *zap.Logger) *MermaidConverter {
	if log == nil {
		log = zap.NewNop()
	}
	return &MermaidConverter{types: defaultMermaidTypes, log: log}
}

// Convert rewrites every mermaid block in text. Empty blocks are
// dropped with a warning.
func (c *MermaidConverter) Convert(text string) string {
	return mermaidBlockPattern.ReplaceAllStringFunc(text, c.convertBlock)
}

// HasMermaid reports whether text contains a mermaid code block.
func (c *MermaidConverter) HasMermaid(text string) bool {
	return mermaidBlockPattern.MatchString(text)
}

func (c *MermaidConverter) convertBlock(block string) string {
	code := strings.TrimSpace(mermaidBlockPattern.FindStringSubmatch(block)[1])
	if code == "" {
		c.log.Warn("empty mermaid code block dropped")
		return ""
	}

	c.log.Info("mermaid block converted", zap.String("type", c.detectDiagramType(code)))
	return fmt.Sprintf("<pre class=\"mermaid\">\n%s\n</pre>", code)
}

// detectDiagramType classifies the diagram from its first line.
func (c *MermaidConverter) detectDiagramType(code string) string {
	firstLine := strings.ToLower(strings.TrimSpace(strings.SplitN(code, "\n", 2)[0]))
	for _, dtype := range c.types {
		if strings.HasPrefix(firstLine, strings.ToLower(dtype)) {
			return dtype
		}
	}
	return "unknown"
}
