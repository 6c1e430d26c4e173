package extract

import "strings"

// StripInvisible removes characters that render as nothing but split tokens
// for a pattern matcher: zero-width, bidirectional controls, tag characters
// and C0/C1 controls other than tab, newline and carriage return.
func StripInvisible(s string) (string, bool) {
	changed := false
	out := strings.Map(func(r rune) rune {
		if isInvisible(r) {
			changed = true
			return -1
		}
		return r
	}, s)
	return out, changed
}

func isInvisible(r rune) bool {
	return isZeroWidth(r) || isBidiControl(r) || isTagCharacter(r) || isUnsafeControl(r)
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200B', // ZERO WIDTH SPACE
		'\u200C', // ZERO WIDTH NON-JOINER
		'\u200D', // ZERO WIDTH JOINER
		'\uFEFF', // ZERO WIDTH NO-BREAK SPACE (BOM)
		'\u2060', // WORD JOINER
		'\u180E', // MONGOLIAN VOWEL SEPARATOR
		'\u200E', // LEFT-TO-RIGHT MARK
		'\u200F': // RIGHT-TO-LEFT MARK
		return true
	}
	return false
}

func isBidiControl(r rune) bool {
	return (r >= '\u202A' && r <= '\u202E') || (r >= '\u2066' && r <= '\u2069')
}

func isTagCharacter(r rune) bool {
	return r >= 0xE0001 && r <= 0xE007F
}

func isUnsafeControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return r <= 0x1F || r == 0x7F || (r >= 0x80 && r <= 0x9F)
}
