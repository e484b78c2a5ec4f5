package strutil

import (
	"bytes"
	"strings"
)

// NormalizeLower trims surrounding whitespace and converts to lower case.
// Use for config enums and other tokens where case is not significant.
func NormalizeLower(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// EqualFoldTrim reports whether a and b match once surrounding whitespace is
// ignored and case is folded.
func EqualFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// SplitLines cuts buf into complete lines, dropping the newline and any
// trailing carriage return. rest is the unterminated tail and aliases buf.
func SplitLines(buf []byte) (lines []string, rest []byte) {
	for {
		idx := bytes.IndexByte(buf, '\n')
		if idx == -1 {
			return lines, buf
		}
		lines = append(lines, string(bytes.TrimRight(buf[:idx], "\r")))
		buf = buf[idx+1:]
	}
}
