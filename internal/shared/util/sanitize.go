package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxFileNameLen = 128

// ErrInvalidFileName is returned when nothing usable is left after cleaning.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName flattens a client-supplied name into a single safe path
// segment. Separators and control characters become underscores and dot
// runs collapse so the result can never traverse.
func SanitizeFileName(name string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}
	s = strings.Trim(s, ". _")
	if len(s) > maxFileNameLen {
		s = truncateKeepExt(s, maxFileNameLen)
	}
	if s == "" {
		return "", ErrInvalidFileName
	}
	return s, nil
}

func truncateKeepExt(s string, limit int) string {
	ext := ""
	if i := strings.LastIndexByte(s, '.'); i > 0 && len(s)-i <= 8 {
		ext = s[i:]
		s = s[:i]
	}
	keep := limit - len(ext)
	for keep > 0 && keep < len(s) && !utf8Start(s[keep]) {
		keep--
	}
	if keep < len(s) {
		s = s[:keep]
	}
	return s + ext
}

func utf8Start(b byte) bool { return b&0xC0 != 0x80 }
