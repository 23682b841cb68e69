package record

import (
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Normalize case-folds s for identity comparison.
// A new Caser is used per call since Casers are stateful.
func Normalize(s string) string {
	return cases.Fold().String(s)
}

// Slug lowercases s and replaces spaces with underscores.
func Slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "_")
}

// ItemID derives the stable identifier for an entry:
// slug(source) + "_" + slug(name), or slug(name) when source is blank.
func ItemID(name, source string) string {
	if strings.TrimSpace(source) == "" {
		return Slug(name)
	}
	return Slug(source) + "_" + Slug(name)
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// EstimateTokens estimates token count using a word-based heuristic (1.3x words).
func EstimateTokens(text string) int {
	words := strings.Fields(strings.TrimSpace(text))
	return int(math.Ceil(float64(len(words)) * 1.3))
}
