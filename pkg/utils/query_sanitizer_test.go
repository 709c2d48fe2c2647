package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "only whitespace", input: " \t\n ", expected: ""},
		{name: "collapses whitespace", input: "  clean \t  water\n", expected: "clean water"},
		{name: "strips markup", input: "<script>alert('x')</script>", expected: "scriptalert(x)script"},
		{name: "strips braces and brackets", input: "{a}[b]", expected: "ab"},
		{name: "strips quotes and backtick", input: "\"solar\" `panels`", expected: "solar panels"},
		{name: "removed char between spaces", input: "a ; b", expected: "a b"},
		{name: "keeps hashtag and wallet", input: "#water 0xAbC", expected: "#water 0xAbC"},
		{name: "keeps percent for later escaping", input: "100% clean", expected: "100% clean"},
		{name: "drops control chars", input: "wa\x00ter", expected: "water"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeQuery(tt.input))
		})
	}
}

func TestSanitizeQuery_Truncates(t *testing.T) {
	got := SanitizeQuery(strings.Repeat("a", 300))
	assert.Equal(t, MaxQueryLength, utf8.RuneCountInString(got))

	multibyte := SanitizeQuery(strings.Repeat("é", 250))
	assert.True(t, utf8.ValidString(multibyte))
	assert.Equal(t, MaxQueryLength, utf8.RuneCountInString(multibyte))
}

func TestSanitizeQuery_NoTrailingSpaceAtLimit(t *testing.T) {
	input := strings.Repeat("a", MaxQueryLength-1) + " bcd"
	got := SanitizeQuery(input)

	assert.False(t, strings.HasSuffix(got, " "))
	assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxQueryLength)
}

func TestSanitizeQuery_Idempotent(t *testing.T) {
	inputs := []string{"  Clean  Water ", "<b>bold</b>", "#Fund;raise", strings.Repeat("x y ", 80)}
	for _, in := range inputs {
		once := SanitizeQuery(in)
		assert.Equal(t, once, SanitizeQuery(once), in)
	}
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "clean water", NormalizeQuery("  Clean   WATER "))
}

func TestIsSearchable(t *testing.T) {
	assert.False(t, IsSearchable(""))
	assert.False(t, IsSearchable("a"))
	assert.False(t, IsSearchable(SanitizeQuery("<>a")))
	assert.True(t, IsSearchable("ab"))
	assert.True(t, IsSearchable("éé"))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% \_done\\`, EscapeLike(`100% _done\`))
	assert.Equal(t, "plain", EscapeLike("plain"))
}
