// Package content derives a note's render variant from its title sigil.
//
// The sigils and their precedence are part of the stored data contract:
//
//	"# "  markdown   (full text rendered to sanitized HTML)
//	"= "  list       (body lines, blanks dropped)
//	"< "  structured (body parsed as YAML)
//
// Anything else is plain text.
package content

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/starford/jotter/internal/models"
)

// Sigils, in precedence order.
const (
	SigilMarkdown   = "# "
	SigilList       = "= "
	SigilStructured = "< "
)

var (
	renderer = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy   = bluemonday.UGCPolicy()
)

// Classification is the tagged variant produced for one note. Only the field
// matching Kind is populated.
type Classification struct {
	Kind     models.Kind
	Markdown string
	List     []string
	Data     any
}

// Classify inspects the title sigil and derives the matching representation.
// It never fails: malformed structured bodies classify as an empty map.
func Classify(title, body string) Classification {
	switch {
	case strings.HasPrefix(title, SigilMarkdown):
		return Classification{Kind: models.KindMarkdown, Markdown: RenderMarkdown(joinText(title, body))}
	case strings.HasPrefix(title, SigilList):
		return Classification{Kind: models.KindList, List: SplitList(body)}
	case strings.HasPrefix(title, SigilStructured):
		return Classification{Kind: models.KindStructured, Data: ParseStructured(body)}
	default:
		return Classification{Kind: models.KindPlain}
	}
}

// Apply copies the classification onto n, clearing the other derived fields.
func (c Classification) Apply(n *models.Note) {
	n.Kind = c.Kind
	n.Markdown = c.Markdown
	n.List = c.List
	n.Data = c.Data
}

// RenderMarkdown renders src as markdown and strips unsafe markup.
// Sanitization runs on every call; nothing is cached.
func RenderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(src), &buf); err != nil {
		return policy.Sanitize(src)
	}
	return policy.Sanitize(buf.String())
}

// SplitList returns the non-blank lines of body in order.
func SplitList(body string) []string {
	out := []string{}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// ParseStructured decodes body as YAML. Duplicate keys, syntax errors and
// empty documents all yield an empty map.
func ParseStructured(body string) any {
	var v any
	if err := yaml.Unmarshal([]byte(body), &v); err != nil || v == nil {
		return map[string]any{}
	}
	return normalize(v)
}

// normalize rewrites non-string map keys so the value encodes as JSON.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = normalize(e)
		}
		return m
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	default:
		return v
	}
}

func joinText(title, body string) string {
	if body == "" {
		return title
	}
	return title + "\n" + body
}
