package value

import (
	"math"
	"strconv"
	"strings"
)

// Report is the audit trail of a value: a MathML rendition of every operation
// applied to it. Reset starts a new expression but keeps the earlier ones.
type Report struct {
	expressions []string
}

func newReport(seed string) *Report {
	return &Report{expressions: []string{seed}}
}

func (r *Report) clone() *Report {
	if r == nil {
		return nil
	}
	return &Report{expressions: append([]string(nil), r.expressions...)}
}

func (r *Report) current() string {
	return r.expressions[len(r.expressions)-1]
}

func (r *Report) update(step func(cur string) string) {
	r.expressions[len(r.expressions)-1] = step(r.current())
}

func (r *Report) restart(seed string) {
	r.expressions = append(r.expressions, seed)
}

// Expression returns the current expression wrapped in a math element
func (r *Report) Expression() string {
	if r == nil {
		return ""
	}
	return "<math>" + r.current() + "</math>"
}

// History returns every expression, oldest first
func (r *Report) History() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.expressions...)
}

func apply(op string, args ...string) string {
	var sb strings.Builder
	sb.WriteString("<apply>")
	if isBuiltin(op) {
		sb.WriteString("<" + op + "/>")
	} else {
		sb.WriteString("<csymbol>" + op + "</csymbol>")
	}
	for _, arg := range args {
		sb.WriteString(arg)
	}
	sb.WriteString("</apply>")
	return sb.String()
}

func isBuiltin(op string) bool {
	switch op {
	case "plus", "minus", "times", "divide", "power", "exp", "ln", "min", "max", "floor", "ceiling":
		return true
	}
	return false
}

func cn(x float64) string {
	return "<cn>" + formatNumber(x) + "</cn>"
}

// formatNumber renders integral values with a trailing ".0" so that they read
// as reals.
func formatNumber(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	s := strconv.FormatFloat(x, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
