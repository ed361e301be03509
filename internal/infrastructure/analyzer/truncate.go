package analyzer

import "unicode/utf8"

// TruncateContent caps content at maxBytes, backing up to the nearest rune
// boundary so the cut never splits a multi-byte character. The same input and
// limit always yield the same output.
func TruncateContent(content string, maxBytes int) string {
	if maxBytes <= 0 || len(content) <= maxBytes {
		return content
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
