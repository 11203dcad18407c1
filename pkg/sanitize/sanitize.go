// Package sanitize makes untrusted input text safe to echo into logs.
package sanitize

import (
	"strings"
	"unicode/utf8"
)

const DefaultMaxDisplayLength = 256

// Line strips the line terminator, neutralises control sequences and
// truncates to maxLen bytes without splitting a UTF-8 sequence. maxLen <= 0
// disables truncation.
func Line(s string, maxLen int) string {
	s = strings.TrimRight(s, "\r\n")
	sanitized := ForTerminal(s)

	if maxLen <= 0 || len(sanitized) <= maxLen {
		return sanitized
	}
	if maxLen <= 3 {
		return truncate(sanitized, maxLen)
	}
	return truncate(sanitized, maxLen-3) + "..."
}

func truncate(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ForTerminal replaces escape sequences and other control bytes with
// visible markers. Invalid UTF-8 is replaced with U+FFFD.
func ForTerminal(s string) string {
	if s == "" {
		return s
	}
	if clean(s) {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		c := s[i]

		if c == 0x1B {
			i++
			if i < len(s) && s[i] == '[' {
				i++
				for i < len(s) && !isCSITerminator(s[i]) {
					i++
				}
				if i < len(s) {
					i++
				}
			}
			result.WriteString("[ESC]")
			continue
		}

		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			result.WriteRune(r)
			i += size
			continue
		}

		switch {
		case c == '\t', c == '\n':
			result.WriteByte(' ')
		case c == '\r':
			result.WriteString("[CR]")
		case c < 0x20:
			result.WriteString("[CTRL]")
		case c == 0x7F:
			result.WriteString("[DEL]")
		default:
			result.WriteByte(c)
		}
		i++
	}

	return result.String()
}

func clean(s string) bool {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < 0x20 || c == 0x7F {
			return false
		}
	}
	return utf8.ValidString(s)
}

func isCSITerminator(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '@' || c == '`'
}
