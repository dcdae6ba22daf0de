package template

import (
	"strings"
)

const (
	eventToken       = "event"
	hostEventToken   = "$event"
	withIsPrefix     = "data-with-is-"
	closurePrologue  = "function(){var args=arguments;var value=args.length?args[0]:undefined;"
	closureEpilogue  = " }.bind(this)"
	iterationPattern = `v-for="($item, $index) in %s" :key="$item.id"`
)

// rewriteAttribute applies the first matching rule to a and returns its new
// text, name included. Attributes no rule matches come back unchanged.
func rewriteAttribute(a attribute, custom bool) string {
	unchanged := a.name + a.raw
	if !a.hasValue || a.quote != '"' || !validAttributeName(a.name) {
		return unchanged
	}

	lower := strings.ToLower(a.name)
	inner, isExpr := moustache(a.value)
	expr := strings.TrimSpace(inner)

	if isExpr {
		switch {
		case lower == "render-if":
			return directive("v-if", expr)
		case lower == "render-for":
			return strings.Replace(iterationPattern, "%s", expr, 1)
		case strings.HasPrefix(lower, withIsPrefix) && len(lower) > len(withIsPrefix):
			return `v-bind="{` + PropPrefix + a.name[len(withIsPrefix):] + ":" + expr + `}"`
		}
	}

	if !custom {
		return rewriteBuiltin(a, lower, inner, expr, isExpr, unchanged)
	}
	return rewriteCustom(a, lower, expr, isExpr, unchanged)
}

func rewriteBuiltin(a attribute, lower, inner, expr string, isExpr bool, unchanged string) string {
	if !isExpr {
		return unchanged
	}
	if isEventAttribute(lower) {
		expr = strings.TrimSpace(replaceEventToken(inner))
	}
	switch {
	case lower == "value" || lower == "checked":
		return directive("v-model", expr)
	case lower == "onsubmit":
		return directive("@submit.prevent", expr)
	case isEventAttribute(lower):
		return directive("@"+a.name[2:], expr)
	default:
		return directive("v-bind:"+a.name, expr)
	}
}

func rewriteCustom(a attribute, lower, expr string, isExpr bool, unchanged string) string {
	if strings.HasPrefix(lower, "v-") {
		return unchanged
	}
	if !isExpr {
		if strings.HasPrefix(lower, "data-") {
			return unchanged
		}
		return PropPrefix + a.name + `="` + literal(a.value) + `"`
	}
	switch {
	case strings.HasPrefix(lower, "data-"):
		return directive("v-bind:"+a.name, expr)
	case isEventAttribute(lower):
		return directive("v-bind:"+PropPrefix+a.name, closurePrologue+expr+closureEpilogue)
	default:
		return directive("v-bind:"+PropPrefix+a.name, expr)
	}
}

func directive(name, expr string) string {
	return name + `="` + expr + `"`
}

// moustache reports whether value, trimmed, is a single {{ expression }} and
// returns the text between the braces.
func moustache(value string) (string, bool) {
	v := strings.TrimSpace(value)
	if len(v) < 4 || !strings.HasPrefix(v, "{{") || !strings.HasSuffix(v, "}}") {
		return "", false
	}
	return v[2 : len(v)-2], true
}

// literal strips optional moustaches and surrounding whitespace.
func literal(value string) string {
	v := strings.TrimSpace(value)
	v = strings.TrimPrefix(v, "{{")
	v = strings.TrimSuffix(v, "}}")
	return strings.TrimSpace(v)
}

func isEventAttribute(lower string) bool {
	return len(lower) > 2 && strings.HasPrefix(lower, "on")
}

func validAttributeName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
		default:
			return false
		}
	}
	return true
}

// replaceEventToken rewrites every bare `event` identifier in an event
// handler expression to the host's native event placeholder. A bare token
// follows '(' or whitespace and is followed by one of `);+.-`, whitespace,
// a quote or a closing brace.
func replaceEventToken(expr string) string {
	if !strings.Contains(expr, eventToken) {
		return expr
	}
	var b strings.Builder
	b.Grow(len(expr) + 4)
	i := 0
	for i < len(expr) {
		if strings.HasPrefix(expr[i:], eventToken) && i > 0 && eventBefore(expr[i-1]) {
			end := i + len(eventToken)
			if end == len(expr) || eventAfter(expr[end]) {
				b.WriteString(hostEventToken)
				i = end
				continue
			}
		}
		b.WriteByte(expr[i])
		i++
	}
	return b.String()
}

func eventBefore(c byte) bool {
	return c == '(' || isSpace(c)
}

func eventAfter(c byte) bool {
	switch c {
	case ')', ';', '+', '.', '-', '"', '}':
		return true
	}
	return isSpace(c)
}
