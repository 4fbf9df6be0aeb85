package tex2img

import (
	"regexp"
	"strings"
)

// Precompiled patterns for table environment rewriting.
var (
	beginTablePattern = regexp.MustCompile(`\\begin\{table\}(\[.*?\])?`)
	endTablePattern   = regexp.MustCompile(`\\end\{table\}`)
	centeringPattern  = regexp.MustCompile(`\\centering`)
	captionPattern    = regexp.MustCompile(`\\caption\{.*?\}`)

	tabularPattern = regexp.MustCompile(`(?s)\\begin\{tabular\}\{[^}]*\}(.*?)\\end\{tabular\}`)
	hlinePattern   = regexp.MustCompile(`\\hline\s*`)
	rowSepPattern  = regexp.MustCompile(`\\\\\s*`)
)

// TableConverter rewrites LaTeX tabular environments into Markdown pipe
// tables. The table/caption/centering wrappers are dropped; a
// column-count-matched separator row is emitted after the first data row.
type TableConverter struct{}

// NewTableConverter creates a TableConverter.
func NewTableConverter() *TableConverter {
	return &TableConverter{}
}

// Convert rewrites every tabular environment in text.
func (c *TableConverter) Convert(text string) string {
	text = beginTablePattern.ReplaceAllString(text, "")
	text = endTablePattern.ReplaceAllString(text, "")
	text = centeringPattern.ReplaceAllString(text, "")
	text = captionPattern.ReplaceAllString(text, "")

	return tabularPattern.ReplaceAllStringFunc(text, c.convertTabular)
}

func (c *TableConverter) convertTabular(env string) string {
	content := tabularPattern.FindStringSubmatch(env)[1]
	content = hlinePattern.ReplaceAllString(content, "")

	var mdRows []string
	first := true
	for _, row := range rowSepPattern.Split(content, -1) {
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}

		cells := strings.Split(row, "&")
		for i, cell := range cells {
			cells[i] = strings.TrimSpace(cell)
		}
		mdRows = append(mdRows, "| "+strings.Join(cells, " | ")+" |")

		if first {
			seps := make([]string, len(cells))
			for i := range seps {
				seps[i] = "---"
			}
			mdRows = append(mdRows, "|"+strings.Join(seps, "|")+"|")
			first = false
		}
	}

	return strings.Join(mdRows, "\n")
}
