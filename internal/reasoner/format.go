package reasoner

import (
	"fmt"
	"strings"

	"unikrew/internal/domain"
)

// FormatTemplate substitutes {name} placeholders in tmpl with vals.
//
// "{{" and "}}" render as literal braces. A placeholder missing from vals,
// an unclosed "{" or a lone "}" is an ErrPromptTemplate. A format spec or
// conversion after the name ("{name:>10}", "{name!r}") is accepted and
// ignored.
func FormatTemplate(tmpl string, vals map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed '{' at offset %d", domain.ErrPromptTemplate, i)
			}
			field := tmpl[i+1 : i+1+end]
			name := field
			if j := strings.IndexAny(field, ":!"); j >= 0 {
				name = field[:j]
			}
			val, ok := vals[name]
			if !ok {
				return "", fmt.Errorf("%w: unknown placeholder %q", domain.ErrPromptTemplate, name)
			}
			b.WriteString(val)
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("%w: single '}' at offset %d", domain.ErrPromptTemplate, i)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
