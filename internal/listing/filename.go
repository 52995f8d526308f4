package listing

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// combining diacritical marks block, U+0300..U+036F
var combiningMarks = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
}

const fallbackFileName = "file"

// SanitizeFileName turns a user-supplied file name into a storage-safe key segment.
// The result only contains [a-z0-9._-], never repeats a hyphen and never starts or
// ends with one. Sanitizing a sanitized name returns it unchanged.
func SanitizeFileName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(combiningMarks)))
	decomposed, _, err := transform.String(t, name)
	if err != nil {
		decomposed = name
	}

	var b strings.Builder
	b.Grow(len(decomposed))
	lastHyphen := false
	for _, r := range decomposed {
		if !isSafe(r) {
			r = '-'
		}
		if r == '-' {
			if lastHyphen {
				continue
			}
			lastHyphen = true
		} else {
			lastHyphen = false
		}
		b.WriteRune(r)
	}

	out := strings.ToLower(strings.Trim(b.String(), "-"))
	if out == "" {
		return fallbackFileName
	}
	return out
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '-', r == '_':
		return true
	}
	return false
}

// PathFromURL returns the blob key of a public URL: everything after the first
// "/<bucket>/". ok is false when the marker is missing or nothing follows it.
func PathFromURL(url, bucket string) (path string, ok bool) {
	_, after, found := strings.Cut(url, "/"+bucket+"/")
	if !found || after == "" {
		return "", false
	}
	return after, true
}
