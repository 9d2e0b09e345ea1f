package usecase

import (
	"strings"

	"github.com/allergenscan/backend/internal/domain"
	"github.com/allergenscan/backend/internal/taxonomy"
)

// Highlight modes
const (
	HighlightModeFirstToken = "first_token"
	HighlightModeTaxonomy   = "taxonomy"
)

// Highlighter flags detected allergens that match the user's profile
type Highlighter struct {
	mode string
}

// NewHighlighter creates a highlighter. Unknown modes fall back to first_token.
func NewHighlighter(mode string) *Highlighter {
	if mode != HighlightModeTaxonomy {
		mode = HighlightModeFirstToken
	}
	return &Highlighter{mode: mode}
}

// Mode returns the active matching mode
func (h *Highlighter) Mode() string {
	return h.mode
}

// HighlightMatches annotates each detected allergen name with whether it
// matches one of the profile categories. Output order follows names.
func (h *Highlighter) HighlightMatches(names []string, profileIDs []string) []domain.HighlightedAllergen {
	categories := make([]domain.AllergenCategory, 0, len(profileIDs))
	for _, id := range profileIDs {
		if c, ok := taxonomy.ByID(id); ok {
			categories = append(categories, c)
		}
	}

	out := make([]domain.HighlightedAllergen, 0, len(names))
	for _, name := range names {
		var match bool
		if h.mode == HighlightModeTaxonomy {
			match = matchesByTaxonomy(name, categories)
		} else {
			match = matchesByFirstToken(name, categories)
		}
		out = append(out, domain.HighlightedAllergen{Name: name, IsUserMatch: match})
	}
	return out
}

// matchesByFirstToken checks whether the lowercased name contains the first
// word of any profile category's display name. Loose on purpose: "Tree Nuts"
// matches anything containing "tree".
func matchesByFirstToken(name string, categories []domain.AllergenCategory) bool {
	lowered := strings.ToLower(name)
	for _, c := range categories {
		fields := strings.Fields(c.DisplayName)
		if len(fields) == 0 {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(fields[0])) {
			return true
		}
	}
	return false
}

// matchesByTaxonomy resolves the name to a category and checks membership
func matchesByTaxonomy(name string, categories []domain.AllergenCategory) bool {
	category := taxonomy.LookupCategoryByFreeText(name)
	if category.IsUnknown() {
		if derived, _, ok := taxonomy.LookupDerived(name); ok {
			category = derived
		}
	}
	if category.IsUnknown() {
		return false
	}
	for _, c := range categories {
		if c.ID == category.ID {
			return true
		}
	}
	return false
}
