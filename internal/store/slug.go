package store

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// slugSuffixLength is the random tail that keeps share links unguessable.
	slugSuffixLength = 6
	// maxSlugStem bounds the title-derived part of a slug.
	maxSlugStem = 48
	// fallbackSlugStem is used when a title has no usable characters.
	fallbackSlugStem = "gift"
)

// Slugify turns a title into a lowercase, hyphen-separated ASCII stem.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range norm.NFKD.String(title) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
		if b.Len() >= maxSlugStem {
			break
		}
	}
	stem := strings.Trim(b.String(), "-")
	if len(stem) > maxSlugStem {
		stem = strings.TrimRight(stem[:maxSlugStem], "-")
	}
	if stem == "" {
		return fallbackSlugStem
	}
	return stem
}
