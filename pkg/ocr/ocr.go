// Package ocr holds helpers shared by the OCR recognizer adapters.
//
// Adapters live in subpackages and implement api.Recognizer.
package ocr

import (
	"strings"
)

// ExpandWhitelist expands character ranges such as "0-9A-Z" into the full set
// of characters. A dash at the start or end of the string is literal.
func ExpandWhitelist(whitelist string) string {
	runes := []rune(whitelist)
	var b strings.Builder
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && runes[i+1] == '-' && runes[i] <= runes[i+2] {
			for r := runes[i]; r <= runes[i+2]; r++ {
				b.WriteRune(r)
			}
			i += 2
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

// ApplyWhitelist drops every character of text not in whitelist.
// Newlines are always kept so line structure survives. An empty whitelist
// keeps everything.
func ApplyWhitelist(text, whitelist string) string {
	if whitelist == "" {
		return text
	}
	allowed := make(map[rune]struct{}, len(whitelist))
	for _, r := range ExpandWhitelist(whitelist) {
		allowed[r] = struct{}{}
	}
	return strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if _, ok := allowed[r]; ok {
			return r
		}
		return -1
	}, text)
}
