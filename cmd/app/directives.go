package main

import (
	"strings"

	"github.com/starford/jotter/internal/models"
)

// directives are editor commands embedded in note text, one per line,
// e.g. "/tag work home", "/untag old", "/pin", "/unpin".
type directives struct {
	tags   []string
	untags []string
	pin    *bool
}

// parseDirectives strips directive lines starting with prefix from text.
// Unknown commands are kept as text.
func parseDirectives(text, prefix string) (string, directives) {
	var d directives
	if prefix == "" {
		return text, d
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		rest, ok := strings.CutPrefix(line, prefix)
		if !ok {
			kept = append(kept, line)
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			kept = append(kept, line)
			continue
		}
		switch fields[0] {
		case "tag":
			d.tags = append(d.tags, fields[1:]...)
		case "untag":
			d.untags = append(d.untags, fields[1:]...)
		case "pin":
			v := true
			d.pin = &v
		case "unpin":
			v := false
			d.pin = &v
		default:
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n"), d
}

func (d directives) apply(n *models.Note) {
	for _, t := range d.tags {
		n.AddTag(t)
	}
	for _, t := range d.untags {
		n.RemoveTag(t)
	}
	if d.pin != nil {
		n.Pinned = *d.pin
	}
}
