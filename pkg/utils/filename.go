package utils

import "strings"

// SafeFilename maps everything outside [A-Za-z0-9_-] to '_', so the
// result never contains a path separator or "..".
func SafeFilename(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if s == "" {
		return "bill"
	}
	return s
}
