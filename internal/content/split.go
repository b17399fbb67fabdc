package content

import "strings"

// DefaultTitle is used when a note is saved with no text at all.
const DefaultTitle = "untitled"

// Resolve fills in whichever of text, title and body are missing.
// An explicit title/body pair wins over text; otherwise the first line of
// text becomes the title and the remainder the body.
func Resolve(text, title, body string) (string, string, string) {
	switch {
	case title == "" && body == "" && text == "":
		return DefaultTitle, DefaultTitle, ""
	case title == "" && body == "":
		title, body, _ = strings.Cut(text, "\n")
		return text, strings.TrimRight(title, "\r"), body
	case text == "":
		return joinText(title, body), title, body
	default:
		return text, title, body
	}
}
