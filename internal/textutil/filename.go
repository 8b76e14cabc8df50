package textutil

import (
	"strings"
	"unicode"
)

// FileStem turns a catalog identifier into a stem that is safe to use as
// part of a page image file name. Path separators and reserved punctuation
// become dashes, quoting and redirection characters and control runes are
// dropped, and the result is normalized with CleanText first.
func FileStem(id string) string {
	id = CleanText(id)
	if id == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*':
			b.WriteByte('-')
		case r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), " .")
}
