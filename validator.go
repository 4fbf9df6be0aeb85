package tex2img

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Validation patterns.
var (
	fracPattern      = regexp.MustCompile(`\\frac\{([^}]*)\}(\{[^}]*\})?`)
	intBoundsPattern = regexp.MustCompile(`\\int_\{([^}]*)\}\^\{([^}]*)\}`)
)

// pairedEnvironments are environments whose begin/end tags must match
// in count for the in-browser typesetter to recover.
var pairedEnvironments = []string{
	"tikzpicture",
	"tikzcd",
	"equation",
	"align",
}

// ValidationReport is the outcome of a structural LaTeX check. The
// checks are advisory: a failed report describes likely typesetting
// problems but does not block rendering.
type ValidationReport struct {
	OK          bool
	Diagnostics []string
}

// Validator performs cheap structural checks on source text before it
// is sent to the browser, catching malformed LaTeX that would otherwise
// surface as a silent blank region or a typesetter hang.
type Validator struct {
	log *zap.Logger
}

// NewValidator creates a Validator. A nil logger disables logging.
func NewValidator(log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{log: log}
}

// Validate runs every structural check and aggregates diagnostics.
func (v *Validator) Validate(text string) ValidationReport {
	var diags []string
	diags = append(diags, checkBraceBalance(text)...)
	diags = append(diags, checkFractions(text)...)
	diags = append(diags, checkIntegralBounds(text)...)
	diags = append(diags, checkDollarParity(text)...)
	diags = append(diags, checkEnvironmentPairs(text)...)

	for _, d := range diags {
		v.log.Warn("validation issue", zap.String("diagnostic", d))
	}
	return ValidationReport{OK: len(diags) == 0, Diagnostics: diags}
}

// checkBraceBalance counts { and } ignoring the escaped forms \{ \}.
func checkBraceBalance(text string) []string {
	opens, closes := 0, 0
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '{':
			opens++
		case '}':
			closes++
		}
	}
	if opens != closes {
		return []string{fmt.Sprintf("unbalanced braces: %d opening vs %d closing", opens, closes)}
	}
	return nil
}

// checkFractions flags \frac commands missing their second argument.
func checkFractions(text string) []string {
	var diags []string
	for _, m := range fracPattern.FindAllStringSubmatch(text, -1) {
		if m[2] == "" {
			diags = append(diags, fmt.Sprintf(`\frac missing second argument near %q`, truncate(m[0], 40)))
		}
	}
	return diags
}

// checkIntegralBounds flags integral bounds that open a \frac they
// cannot close. The bound capture excludes }, so any \frac{ inside it
// is necessarily unclosed within the bound.
func checkIntegralBounds(text string) []string {
	var diags []string
	for _, m := range intBoundsPattern.FindAllStringSubmatch(text, -1) {
		for _, bound := range m[1:3] {
			if strings.Contains(bound, `\frac{`) {
				diags = append(diags, fmt.Sprintf(`\int bound contains unclosed \frac near %q`, truncate(m[0], 40)))
			}
		}
	}
	return diags
}

// checkDollarParity counts unescaped $ delimiters; an odd count leaves
// an unterminated math span.
func checkDollarParity(text string) []string {
	count := 0
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '$':
			count++
		}
	}
	if count%2 != 0 {
		return []string{fmt.Sprintf("odd number of $ delimiters: %d", count)}
	}
	return nil
}

// checkEnvironmentPairs verifies begin/end counts for environments the
// typesetter cannot recover from when left open.
func checkEnvironmentPairs(text string) []string {
	var diags []string
	for _, env := range pairedEnvironments {
		begins := strings.Count(text, fmt.Sprintf(`\begin{%s}`, env))
		ends := strings.Count(text, fmt.Sprintf(`\end{%s}`, env))
		if begins != ends {
			diags = append(diags, fmt.Sprintf(`environment %s: %d \begin vs %d \end`, env, begins, ends))
		}
	}
	return diags
}
