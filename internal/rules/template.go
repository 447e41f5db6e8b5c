package rules

import (
	"fmt"
	"strings"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

// Render substitutes {name} placeholders with metric values.
// "{{" and "}}" produce literal braces.
func Render(template string, metrics models.MetricSet) (string, error) {
	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed '{' at offset %d", ErrMalformedTemplate, i)
			}
			name := template[i+1 : i+1+end]
			if name == "" || strings.ContainsRune(name, '{') {
				return "", fmt.Errorf("%w: bad placeholder at offset %d", ErrMalformedTemplate, i)
			}
			v, ok := metrics.Get(name)
			if !ok {
				return "", fmt.Errorf("%w: %s", ErrMissingPlaceholder, name)
			}
			b.WriteString(v.String())
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("%w: single '}' at offset %d", ErrMalformedTemplate, i)
		default:
			b.WriteByte(c)
		}
	}

	return b.String(), nil
}

// Placeholders lists the metric names referenced by a template, in order of appearance
func Placeholders(template string) []string {
	var names []string
	for i := 0; i < len(template); i++ {
		if template[i] != '{' {
			continue
		}
		if i+1 < len(template) && template[i+1] == '{' {
			i++
			continue
		}
		end := strings.IndexByte(template[i+1:], '}')
		if end <= 0 {
			continue
		}
		names = append(names, template[i+1:i+1+end])
		i += end + 1
	}
	return names
}
