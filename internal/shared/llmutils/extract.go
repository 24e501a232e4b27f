package llmutils

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/crystaldolphin/friday/internal/schema"
)

var reFence = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ExtractDecision pulls a routing decision out of a model reply. It accepts
// bare JSON, JSON inside a Markdown code fence, JSON surrounded by prose,
// and JSON with comments or trailing commas. It returns nil when no object
// with a string "action" field can be recovered.
func ExtractDecision(raw string) *schema.Decision {
	text := strings.TrimSpace(StripThink(raw))
	if m := reFence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	candidates := []string{text}
	if obj := outermostObject(text); obj != "" && obj != text {
		candidates = append(candidates, obj)
	}

	for _, c := range candidates {
		if d := decode(c); d != nil {
			return d
		}
	}
	// Single-quoted keys: {'action': 'read_file'}
	for _, c := range candidates {
		if strings.Contains(c, "'") {
			if d := decode(requote(c)); d != nil {
				return d
			}
		}
	}
	return nil
}

// requote rewrites single-quoted strings as JSON strings. Double-quoted
// strings are copied as is. A quote only closes a single-quoted string when
// the next non-space byte ends a JSON token, so apostrophes survive.
func requote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			j := i + 1
			for j < len(s) && s[j] != '"' {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(s) {
				b.WriteString(s[i:])
				return b.String()
			}
			b.WriteString(s[i : j+1])
			i = j
		case '\'':
			b.WriteByte('"')
			j := i + 1
			for ; j < len(s); j++ {
				if s[j] == '\\' && j+1 < len(s) {
					if s[j+1] == '\'' {
						b.WriteByte('\'')
					} else {
						b.WriteString(s[j : j+2])
					}
					j++
					continue
				}
				if s[j] == '\'' && closesToken(s[j+1:]) {
					break
				}
				if s[j] == '"' {
					b.WriteString(`\"`)
					continue
				}
				b.WriteByte(s[j])
			}
			b.WriteByte('"')
			i = j
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func closesToken(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return rest == "" || strings.IndexByte(",:}]", rest[0]) >= 0
}

func outermostObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func decode(s string) *schema.Decision {
	var fields map[string]any
	if err := json.Unmarshal(jsonc.ToJSON([]byte(s)), &fields); err != nil {
		return nil
	}
	action, ok := fields["action"].(string)
	if !ok || strings.TrimSpace(action) == "" {
		return nil
	}
	d := &schema.Decision{Action: strings.TrimSpace(action)}
	if f, ok := fields["file"].(string); ok {
		d.File = strings.TrimSpace(f)
	}
	if q, ok := fields["question"].(string); ok {
		d.Question = strings.TrimSpace(q)
	}
	return d
}
