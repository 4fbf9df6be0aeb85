package tex2img

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// defaultSamples is used when a plot command carries no samples= option.
const defaultSamples = 50

// Precompiled patterns for plot command rewriting.
var (
	// \draw[options] plot (\x, {expr});
	plotCmdPattern = regexp.MustCompile(`\\draw\s*\[([^\]]*)\]\s*plot\s*\(\s*([^,]+)\s*,\s*\{([^}]+)\}\s*\)\s*;`)

	domainPattern  = regexp.MustCompile(`domain\s*=\s*([-\d.]+)\s*:\s*([-\d.]+)`)
	samplesPattern = regexp.MustCompile(`samples\s*=\s*(\d+)`)

	stripDomainPattern  = regexp.MustCompile(`,?\s*domain\s*=\s*[-\d.]+\s*:\s*[-\d.]+`)
	stripSamplesPattern = regexp.MustCompile(`,?\s*samples\s*=\s*\d+`)

	// Math-notation to evaluator-syntax translation, applied in order.
	// log must be rewritten before ln so the ln rule cannot clobber it;
	// the evaluator accepts ^ natively, so no caret rewrite is needed.
	tikzExprRewrites = []struct {
		pattern *regexp.Regexp
		repl    string
	}{
		{regexp.MustCompile(`\\pi`), "pi"},
		{regexp.MustCompile(`\blog\s*\(`), "log10("},
		{regexp.MustCompile(`\bln\s*\(`), "log("},
	}

	htmlEntityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
	)
)

// PlotConverter rewrites declarative "plot a function over a domain"
// drawing commands into explicit segment-chain drawing commands, since
// the in-browser TikZ compiler does not implement plot. Conversion is
// idempotent: the emitted coordinate chain contains no plot keyword and
// is never matched again.
type PlotConverter struct {
	log *zap.Logger
}

// NewPlotConverter creates a PlotConverter. A nil logger disables logging.
func NewPlotConverter(log *zap.Logger) *PlotConverter {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlotConverter{log: log}
}

// Convert replaces every plot command in the TikZ source with sampled
// coordinates. Commands without a domain option are left untouched.
func (c *PlotConverter) Convert(tikzCode string) string {
	tikzCode = htmlEntityReplacer.Replace(tikzCode)
	return plotCmdPattern.ReplaceAllStringFunc(tikzCode, c.convertPlotCmd)
}

// convertPlotCmd converts one matched plot command.
func (c *PlotConverter) convertPlotCmd(cmd string) string {
	groups := plotCmdPattern.FindStringSubmatch(cmd)
	options, xExpr, yExpr := groups[1], groups[2], groups[3]

	domain := domainPattern.FindStringSubmatch(options)
	if domain == nil {
		c.log.Warn("plot command missing domain, left unconverted",
			zap.String("command", truncate(cmd, 50)))
		return cmd
	}
	xMin, errMin := strconv.ParseFloat(domain[1], 64)
	xMax, errMax := strconv.ParseFloat(domain[2], 64)
	if errMin != nil || errMax != nil {
		c.log.Warn("plot command has unparsable domain, left unconverted",
			zap.String("command", truncate(cmd, 50)))
		return cmd
	}

	samples := defaultSamples
	if m := samplesPattern.FindStringSubmatch(options); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			samples = n
		}
	}

	points := c.generatePoints(xMin, xMax, samples, xExpr, yExpr)
	if len(points) == 0 {
		c.log.Warn("plot command produced no valid points",
			zap.String("command", truncate(cmd, 50)))
		return fmt.Sprintf("%% plot conversion failed: %s...", truncate(cmd, 30))
	}

	style := extractStyleOptions(options)
	c.log.Info("plot command converted", zap.Int("points", len(points)))
	return fmt.Sprintf("\\draw[%s] %s;", style, strings.Join(points, " -- "))
}

// extractStyleOptions removes the domain and samples tokens, keeping the
// style options (color, line width, ...) verbatim.
func extractStyleOptions(options string) string {
	style := stripDomainPattern.ReplaceAllString(options, "")
	style = stripSamplesPattern.ReplaceAllString(style, "")
	return strings.Trim(style, " ,")
}

// generatePoints samples both expressions over [xMin, xMax] inclusive
// and keeps only points where both coordinates are finite.
func (c *PlotConverter) generatePoints(xMin, xMax float64, samples int, xExpr, yExpr string) []string {
	var step float64
	if samples > 1 {
		step = (xMax - xMin) / float64(samples-1)
	}

	var points []string
	for i := 0; i < samples; i++ {
		x := xMin + float64(i)*step
		xVal := c.evalTikzExpr(xExpr, x)
		yVal := c.evalTikzExpr(yExpr, x)

		if isFinite(xVal) && isFinite(yVal) {
			points = append(points, fmt.Sprintf("(%.4f,%.4f)", xVal, yVal))
		}
	}
	return points
}

// evalTikzExpr substitutes the sampling variable \x, translates TikZ
// math notation into evaluator syntax, and evaluates. Invalid
// expressions come back as NaN and are dropped by the caller.
func (c *PlotConverter) evalTikzExpr(expr string, x float64) float64 {
	expr = strings.ReplaceAll(expr, `\x`, strconv.FormatFloat(x, 'g', -1, 64))
	for _, rw := range tikzExprRewrites {
		expr = rw.pattern.ReplaceAllString(expr, rw.repl)
	}
	return EvalExpr(expr)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// truncate shortens s for log and comment output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
