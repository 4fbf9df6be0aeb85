package tex2img

import (
	"fmt"
	"regexp"
	"strings"
)

// Precompiled patterns for list environment rewriting.
var (
	beginEnumeratePattern = regexp.MustCompile(`\\begin\{enumerate\}(\[.*?\])?`)
	endEnumeratePattern   = regexp.MustCompile(`\\end\{enumerate\}`)
	beginItemizePattern   = regexp.MustCompile(`\\begin\{itemize\}`)
	endItemizePattern     = regexp.MustCompile(`\\end\{itemize\}`)
	itemPattern           = regexp.MustCompile(`^\\item\s*`)
)

// ListConverter rewrites LaTeX enumerate/itemize environments into
// Markdown numbered lists. Nesting is not modeled: the item counter is
// sequential across one conversion and resets per call, not per list.
type ListConverter struct{}

// NewListConverter creates a ListConverter.
func NewListConverter() *ListConverter {
	return &ListConverter{}
}

// Convert strips list environment delimiters and numbers each \item
// line. Non-item lines pass through verbatim.
func (c *ListConverter) Convert(text string) string {
	text = beginEnumeratePattern.ReplaceAllString(text, "")
	text = endEnumeratePattern.ReplaceAllString(text, "")
	text = beginItemizePattern.ReplaceAllString(text, "")
	text = endItemizePattern.ReplaceAllString(text, "")
	return c.convertItems(text)
}

func (c *ListConverter) convertItems(text string) string {
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))
	counter := 0

	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, `\item`) {
			counter++
			content := itemPattern.ReplaceAllString(stripped, "")
			result = append(result, fmt.Sprintf("%d. %s", counter, content))
		} else {
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}
