package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// punctuationRegex matches everything except letters, digits and whitespace
var punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// minFuzzyTokenLength is the shortest token eligible for fuzzy matching.
// Shorter tokens produce too many false positives ("soy" ~ "son", "egg" ~ "eel").
const minFuzzyTokenLength = 5

// ingredientStopWords carries no allergen signal and is skipped during tokenization
var ingredientStopWords = map[string]bool{
	"and": true, "or": true, "of": true, "with": true, "from": true,
	"the": true, "in": true, "for": true, "natural": true, "organic": true,
	"powder": true, "extract": true, "oil": true, "flavour": true, "flavor": true,
	"flavouring": true, "flavoring": true, "concentrate": true, "dried": true,
	"modified": true, "hydrolysed": true, "hydrolyzed": true, "less": true,
	"than": true, "contains": true,
}

// tokenize splits text into lowercase tokens, dropping punctuation, stop words,
// single characters and pure numbers.
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(word) <= 1 {
			continue
		}
		if ingredientStopWords[word] {
			continue
		}
		if isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch checks if two tokens are within threshold edits of each other.
// Both tokens must be at least minFuzzyTokenLength runes long.
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	len1 := utf8.RuneCountInString(token1)
	len2 := utf8.RuneCountInString(token2)
	if len1 < minFuzzyTokenLength || len2 < minFuzzyTokenLength {
		return false
	}

	// Quick length check - if lengths differ by more than threshold, can't match
	lenDiff := len1 - len2
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the minimum number of single-rune edits
// (insertions, deletions, substitutions) needed to change s1 into s2.
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	// Use two rows instead of full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
