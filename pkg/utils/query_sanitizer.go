package utils

import (
	"strings"
	"unicode"
)

// MaxQueryLength is the longest query, in runes, that reaches an entity store.
const MaxQueryLength = 200

// MinQueryLength is the shortest sanitized query that counts as a search.
const MinQueryLength = 2

// stripped characters could alter the syntax of the underlying query language
var unsafeQueryChars = map[rune]struct{}{
	'<': {}, '>': {}, '{': {}, '}': {}, '[': {}, ']': {},
	'\\': {}, '/': {}, ';': {}, '`': {}, '\'': {}, '"': {},
}

// SanitizeQuery strips unsafe characters, collapses whitespace, trims and
// truncates raw user search text. It never fails; empty input yields "".
func SanitizeQuery(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))

	pendingSpace := false
	written := 0
	for _, r := range raw {
		if _, unsafe := unsafeQueryChars[r]; unsafe {
			continue
		}
		if r == unicode.ReplacementChar || unicode.IsControl(r) && !unicode.IsSpace(r) {
			continue
		}
		if unicode.IsSpace(r) {
			pendingSpace = written > 0
			continue
		}
		if pendingSpace {
			if written+1 >= MaxQueryLength {
				break
			}
			b.WriteRune(' ')
			written++
			pendingSpace = false
		}
		b.WriteRune(r)
		written++
		if written >= MaxQueryLength {
			break
		}
	}

	return b.String()
}

// NormalizeQuery returns the sanitized, lowercased form used for cache keys and analytics.
func NormalizeQuery(raw string) string {
	return strings.ToLower(SanitizeQuery(raw))
}

// IsSearchable reports whether a sanitized query is long enough to run.
func IsSearchable(sanitized string) bool {
	return len([]rune(sanitized)) >= MinQueryLength
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE/ILIKE metacharacters so user text matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
