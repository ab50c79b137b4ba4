package textutil

import (
	"fmt"
	"strings"
)

// Substitute fills $NAME and ${NAME} placeholders in tmpl from context.
// It never fails: a placeholder with no value in context is written back
// literally, values no placeholder refers to are ignored, and "$$"
// renders a single "$". Names are [A-Za-z_][A-Za-z0-9_]*.
func Substitute(tmpl string, context map[string]any) string {
	var out strings.Builder
	out.Grow(len(tmpl))

	for i := 0; i < len(tmpl); {
		c := tmpl[i]
		if c != '$' || i+1 >= len(tmpl) {
			out.WriteByte(c)
			i++
			continue
		}

		next := tmpl[i+1]
		switch {
		case next == '$':
			out.WriteByte('$')
			i += 2
		case next == '{':
			end := strings.IndexByte(tmpl[i+2:], '}')
			if end < 0 || !isIdentifier(tmpl[i+2:i+2+end]) {
				out.WriteByte(c)
				i++
				continue
			}
			name := tmpl[i+2 : i+2+end]
			placeholder := tmpl[i : i+3+end]
			writeValue(&out, context, name, placeholder)
			i += 3 + end
		case isIdentStart(next):
			end := i + 2
			for end < len(tmpl) && isIdentPart(tmpl[end]) {
				end++
			}
			name := tmpl[i+1 : end]
			writeValue(&out, context, name, tmpl[i:end])
			i = end
		default:
			out.WriteByte(c)
			i++
		}
	}

	return out.String()
}

func writeValue(out *strings.Builder, context map[string]any, name, placeholder string) {
	value, ok := context[name]
	if !ok {
		out.WriteString(placeholder)
		return
	}
	fmt.Fprint(out, value)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}
