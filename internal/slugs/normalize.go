package slugs

import (
	"strings"
	"unicode"

	"github.com/goliatone/go-slug"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxLength caps the base slug before any numeric suffix is added.
const DefaultMaxLength = 200

// Normalize derives a URL-safe slug from value, truncated to
// DefaultMaxLength characters. Accents are folded and underscores become
// hyphens, so the result only contains a-z, 0-9 and '-'. It may be empty.
func Normalize(value string) string {
	return NormalizeWithLimit(value, DefaultMaxLength)
}

// NormalizeWithLimit is Normalize with an explicit length cap. A cap <= 0
// disables truncation.
func NormalizeWithLimit(value string, maxLength int) string {
	folded := fold(strings.TrimSpace(value))
	if folded == "" {
		return ""
	}
	if normalized, err := slug.Normalize(folded); err == nil && normalized != "" {
		folded = normalized
	}

	out := restrict(folded)
	if maxLength > 0 && len(out) > maxLength {
		out = strings.TrimRight(out[:maxLength], "-")
	}
	return out
}

// NormalizeUnicode derives a slug that keeps letters and digits of any
// script. Whitespace and hyphen runs become a single hyphen, other
// punctuation is dropped and the result is lowercased. A cap <= 0 disables
// truncation; the cap counts runes.
func NormalizeUnicode(value string, maxLength int) string {
	value = norm.NFKC.String(strings.TrimSpace(value))
	if value == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(value))
	pendingHyphen := false
	for _, r := range strings.ToLower(value) {
		switch {
		case unicode.IsSpace(r) || r == '-':
			pendingHyphen = true
		case isUnicodeSlugRune(r):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), "-_")
	if maxLength > 0 {
		if runes := []rune(out); len(runes) > maxLength {
			out = strings.TrimRight(string(runes[:maxLength]), "-")
		}
	}
	return out
}

// isUnicodeSlugRune keeps combining marks so scripts such as Burmese or
// Devanagari survive intact.
func isUnicodeSlugRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc)
}

// IsURLSafe reports whether value only holds characters Normalize emits.
func IsURLSafe(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if !isSlugRune(r) {
			return false
		}
	}
	return true
}

var foldTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold decomposes accented characters and drops the combining marks, so
// "Crème Brûlée" becomes "Creme Brulee".
func fold(value string) string {
	folded, _, err := transform.String(foldTransformer, value)
	if err != nil {
		return value
	}
	return folded
}

// restrict lowercases value, maps every run of other characters to a single
// hyphen and trims leading and trailing separators.
func restrict(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	pendingHyphen := false
	for _, r := range strings.ToLower(value) {
		if isSlugRune(r) && r != '-' {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return strings.Trim(b.String(), "-_")
}

func isSlugRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
}
