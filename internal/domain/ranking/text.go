package ranking

import (
	"strings"
	"unicode"
)

// SnippetRadius is the number of runes kept on each side of a match.
const SnippetRadius = 40

// Terms splits text into lowercase alphanumeric words.
func Terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// TrigramSimilarity follows pg_trgm: each word is padded with two leading
// blanks and one trailing blank, and the score is the Jaccard index of the
// two trigram sets.
func TrigramSimilarity(a, b string) float64 {
	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(ta)+len(tb)-shared)
}

func trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range Terms(s) {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// TextRank approximates a full-text rank in [0,1] as the share of query terms
// present in the document.
func TextRank(document, query string) float64 {
	queryTerms := Terms(query)
	if len(queryTerms) == 0 {
		return 0
	}

	docTerms := make(map[string]struct{})
	for _, t := range Terms(document) {
		docTerms[t] = struct{}{}
	}

	matched := 0
	for _, t := range queryTerms {
		if _, ok := docTerms[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}

// MatchesAllTerms reports whether every query term occurs in the document.
func MatchesAllTerms(document, query string) bool {
	return TextRank(document, query) == 1
}

// Snippet frames the first case-insensitive match of query in text, falling
// back to the first matching term. It returns "" when nothing matches.
func Snippet(text, query string) string {
	if text == "" || query == "" {
		return ""
	}

	runes := []rune(text)
	lower := lowerRunes(runes)

	start, length := indexRunes(lower, lowerRunes([]rune(query)))
	if start < 0 {
		for _, term := range Terms(query) {
			if start, length = indexRunes(lower, []rune(term)); start >= 0 {
				break
			}
		}
	}
	if start < 0 {
		return ""
	}

	from := start - SnippetRadius
	if from < 0 {
		from = 0
	}
	to := start + length + SnippetRadius
	if to > len(runes) {
		to = len(runes)
	}

	snippet := strings.TrimSpace(string(runes[from:to]))
	if from > 0 {
		snippet = "..." + snippet
	}
	if to < len(runes) {
		snippet += "..."
	}
	return snippet
}

// lowerRunes lowercases rune by rune so indexes stay aligned with the original.
func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func indexRunes(haystack, needle []rune) (int, int) {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1, 0
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i, len(needle)
	}
	return -1, 0
}
