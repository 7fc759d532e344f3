// Package rendering turns résumé data into Typst source and compiles it to PDF.
package rendering

import "strings"

// QuoteString returns text as a Typst string literal.
// Escaped characters: \ " and the newline, carriage return and tab control characters.
func QuoteString(text string) string {
	var result strings.Builder
	result.Grow(len(text) + 2)

	result.WriteByte('"')
	for _, r := range text {
		switch r {
		case '\\':
			result.WriteString(`\\`)
		case '"':
			result.WriteString(`\"`)
		case '\n':
			result.WriteString(`\n`)
		case '\r':
			result.WriteString(`\r`)
		case '\t':
			result.WriteString(`\t`)
		default:
			result.WriteRune(r)
		}
	}
	result.WriteByte('"')

	return result.String()
}
