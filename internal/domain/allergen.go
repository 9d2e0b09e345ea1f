package domain

// AllergenCategory is an immutable taxonomy entry grouping related ingredient terms
type AllergenCategory struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Keywords    []string `json:"keywords"` // lowercase substrings, checked in order
}

// IsUnknown reports whether the category is the "no match" sentinel
func (c AllergenCategory) IsUnknown() bool {
	return c.ID == UnknownCategoryID
}

// UnknownCategoryID identifies the sentinel category returned when nothing matches
const UnknownCategoryID = "unknown"

// HighlightedAllergen is one detected allergen annotated for display
type HighlightedAllergen struct {
	Name        string `json:"name"`
	IsUserMatch bool   `json:"isUserMatch"`
}

// IngredientMatch is the ingredient reasoning tool's answer for a single term
type IngredientMatch struct {
	Ingredient string `json:"ingredient"`
	CategoryID string `json:"categoryId"`
	Category   string `json:"category,omitempty"`
	Via        string `json:"via"` // keyword, derived, fuzzy or none
}

// Ingredient match sources
const (
	MatchViaKeyword = "keyword"
	MatchViaDerived = "derived"
	MatchViaFuzzy   = "fuzzy"
	MatchViaNone    = "none"
)
