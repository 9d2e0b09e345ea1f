package usecase

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Compiled regex patterns for ingredient preprocessing
var (
	// Matches a leading label like "Ingredients:" or "INGREDIENT LIST:"
	ingredientsPrefixPattern = regexp.MustCompile(`(?i)^\s*ingredients?(\s+list)?\s*:\s*`)

	// Matches percentages like "12%", "2.5 %", "12,5%"
	percentagePattern = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*%`)

	// Matches allergen statements like "Contains:", "May contain traces of"
	allergenStatementPattern = regexp.MustCompile(`(?i)^(may\s+contain(\s+traces\s+of)?|contains|traces\s+of)\s*:?\s*`)

	// Multiple spaces cleanup
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// ParseIngredients splits raw ingredient text into discrete terms.
// Compound ingredients like "chocolate (sugar, cocoa butter)" yield the compound
// name followed by each sub-ingredient. Order is preserved and duplicates are
// dropped case-insensitively.
func ParseIngredients(text string) []string {
	cleaned := ingredientsPrefixPattern.ReplaceAllString(text, "")
	cleaned = percentagePattern.ReplaceAllString(cleaned, " ")

	seen := make(map[string]bool)
	var terms []string
	for _, term := range expandSegments(splitTopLevel(cleaned)) {
		term = cleanTerm(term)
		if utf8.RuneCountInString(term) < 2 {
			continue
		}
		key := strings.ToLower(term)
		if seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, term)
	}
	return terms
}

// splitTopLevel splits on commas, semicolons and sentence-ending periods that
// are not nested inside brackets.
func splitTopLevel(s string) []string {
	var parts []string
	var b strings.Builder
	depth := 0
	rs := []rune(s)

	for i, r := range rs {
		switch {
		case isOpenBracket(r):
			depth++
		case isCloseBracket(r) && depth > 0:
			depth--
		case depth == 0 && (r == ',' || r == ';'):
			parts = append(parts, b.String())
			b.Reset()
			continue
		case depth == 0 && r == '.' && (i+1 == len(rs) || unicode.IsSpace(rs[i+1])):
			parts = append(parts, b.String())
			b.Reset()
			continue
		}
		b.WriteRune(r)
	}
	parts = append(parts, b.String())
	return parts
}

// expandSegments replaces each bracketed segment with its outer name followed by
// its parsed contents.
func expandSegments(segments []string) []string {
	var out []string
	for _, seg := range segments {
		open := strings.IndexFunc(seg, isOpenBracket)
		if open < 0 {
			out = append(out, seg)
			continue
		}

		closeIdx := matchingClose(seg, open)
		var inner, rest string
		if closeIdx < 0 {
			// Unbalanced: treat the remainder as the nested list
			inner = seg[open+1:]
		} else {
			inner = seg[open+1 : closeIdx]
			rest = seg[closeIdx+1:]
		}

		out = append(out, seg[:open]+" "+rest)
		out = append(out, expandSegments(splitTopLevel(inner))...)
	}
	return out
}

// matchingClose returns the byte index of the bracket closing the one at open
func matchingClose(s string, open int) int {
	depth := 0
	for i, r := range s[open:] {
		switch {
		case isOpenBracket(r):
			depth++
		case isCloseBracket(r):
			depth--
			if depth == 0 {
				return open + i
			}
		}
	}
	return -1
}

// cleanTerm strips allergen statement prefixes, stray punctuation and extra whitespace
func cleanTerm(term string) string {
	term = multiSpacePattern.ReplaceAllString(term, " ")
	term = strings.TrimSpace(term)
	term = allergenStatementPattern.ReplaceAllString(term, "")
	term = strings.Trim(term, " .:*-_/\"'")
	return strings.TrimSpace(term)
}

func isOpenBracket(r rune) bool {
	return r == '(' || r == '[' || r == '{'
}

func isCloseBracket(r rune) bool {
	return r == ')' || r == ']' || r == '}'
}
