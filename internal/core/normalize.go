package core

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText replaces typographic dashes, box drawing characters, smart
// quotes and exotic whitespace with their ASCII equivalents, drops zero-width
// characters and applies NFC. The result is stable under repeated application.
func NormalizeText(s string) string {
	if isASCII(s) {
		return s
	}
	t := transform.Chain(runes.Remove(runes.Predicate(isZeroWidth)), runes.Map(asciiFold), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func asciiFold(r rune) rune {
	switch {
	case r >= 0x2010 && r <= 0x2015, r == 0x2212, r == 0xFE58, r == 0xFE63, r == 0xFF0D:
		return '-'
	case r >= 0x2500 && r <= 0x257F:
		return '-'
	case r == 0x2018, r == 0x2019, r == 0x201A, r == 0x201B, r == 0x2032:
		return '\''
	case r == 0x201C, r == 0x201D, r == 0x201E, r == 0x201F, r == 0x2033, r == 0x00AB, r == 0x00BB:
		return '"'
	case r == 0x00A0, r == 0x1680, r >= 0x2000 && r <= 0x200A, r == 0x202F, r == 0x205F, r == 0x3000:
		return ' '
	}
	return r
}

func isZeroWidth(r rune) bool {
	return (r >= 0x200B && r <= 0x200D) || r == 0x2060 || r == 0xFEFF
}

// isASCII reports whether s needs no normalization.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
