// Package taxonomy holds the static allergen categories and the keyword
// tables used to map free text onto them.
package taxonomy

import (
	"sort"
	"strings"
	"unicode"

	"github.com/allergenscan/backend/internal/domain"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Unknown is returned when no category matches
var Unknown = domain.AllergenCategory{
	ID:          domain.UnknownCategoryID,
	DisplayName: "Other",
}

// categories is checked in declaration order and the first match wins, so
// more specific categories must come first: peanuts before milk ("peanut
// butter"), molluscs and shellfish before fish ("cuttlefish", "shellfish").
var categories = []domain.AllergenCategory{
	{ID: "peanuts", DisplayName: "Peanuts", Keywords: []string{"peanut", "groundnut", "arachis"}},
	{ID: "tree_nuts", DisplayName: "Tree Nuts", Keywords: []string{
		"almond", "cashew", "walnut", "pecan", "hazelnut", "pistachio",
		"macadamia", "brazil nut", "pine nut", "filbert", "tree nut",
	}},
	{ID: "sesame", DisplayName: "Sesame", Keywords: []string{"sesame"}},
	{ID: "soy", DisplayName: "Soy", Keywords: []string{"soy", "soya"}},
	{ID: "shellfish", DisplayName: "Shellfish (Crustaceans)", Keywords: []string{
		"shellfish", "shrimp", "prawn", "crab", "lobster", "crayfish", "langoustine", "scampi",
	}},
	{ID: "molluscs", DisplayName: "Molluscs", Keywords: []string{
		"mollusc", "mollusk", "cuttlefish", "mussel", "oyster", "clam", "scallop", "squid", "octopus", "snail",
	}},
	{ID: "fish", DisplayName: "Fish", Keywords: []string{
		"fish", "cod", "salmon", "tuna", "anchov", "haddock", "trout", "sardine", "mackerel", "pollock", "tilapia",
	}},
	{ID: "eggs", DisplayName: "Eggs", Keywords: []string{"egg"}},
	{ID: "milk", DisplayName: "Milk (Dairy)", Keywords: []string{
		"milk", "dairy", "lactose", "cheese", "yogurt", "yoghurt", "butter", "cream", "creme",
	}},
	{ID: "gluten", DisplayName: "Gluten (Wheat, Barley, Rye)", Keywords: []string{"wheat", "gluten", "barley", "rye"}},
	{ID: "mustard", DisplayName: "Mustard", Keywords: []string{"mustard"}},
	{ID: "celery", DisplayName: "Celery", Keywords: []string{"celery", "celeriac"}},
	{ID: "lupin", DisplayName: "Lupin", Keywords: []string{"lupin"}},
	{ID: "sulphites", DisplayName: "Sulphites", Keywords: []string{
		"sulphite", "sulfite", "sulphur dioxide", "sulfur dioxide",
	}},
}

// derivedIngredients maps compound or scientific ingredient names onto the
// category they imply. Only the ingredient reasoning tool consults it.
var derivedIngredients = map[string]string{
	// milk
	"whey": "milk", "casein": "milk", "caseinate": "milk", "lactalbumin": "milk",
	"lactoglobulin": "milk", "ghee": "milk", "curd": "milk", "paneer": "milk",
	"kefir": "milk", "ricotta": "milk", "mozzarella": "milk", "parmesan": "milk",
	"custard": "milk", "quark": "milk",
	// eggs
	"albumen": "eggs", "albumin": "eggs", "ovalbumin": "eggs", "lysozyme": "eggs",
	"meringue": "eggs", "mayonnaise": "eggs", "ovomucoid": "eggs",
	// gluten
	"semolina": "gluten", "durum": "gluten", "spelt": "gluten", "farro": "gluten",
	"kamut": "gluten", "seitan": "gluten", "couscous": "gluten", "bulgur": "gluten",
	"malt extract": "gluten", "malted": "gluten", "triticale": "gluten", "einkorn": "gluten", "emmer": "gluten",
	// soy
	"tofu": "soy", "bean curd": "soy", "tempeh": "soy", "miso": "soy", "edamame": "soy", "shoyu": "soy", "tamari": "soy",
	// sesame
	"tahini": "sesame", "gingelly": "sesame",
	// peanuts
	"monkey nut": "peanuts",
	// tree nuts
	"praline": "tree_nuts", "marzipan": "tree_nuts", "nougat": "tree_nuts",
	"gianduja": "tree_nuts", "frangipane": "tree_nuts", "amaretto": "tree_nuts",
	// fish
	"surimi": "fish", "worcestershire": "fish", "caviar": "fish",
	// shellfish
	"krill": "shellfish", "crustacean": "shellfish",
	// molluscs
	"calamari": "molluscs", "abalone": "molluscs", "escargot": "molluscs",
	// sulphites
	"metabisulphite": "sulphites", "metabisulfite": "sulphites", "bisulfite": "sulphites",
	"e220": "sulphites", "e221": "sulphites", "e222": "sulphites", "e223": "sulphites",
	"e224": "sulphites", "e226": "sulphites", "e227": "sulphites", "e228": "sulphites",
}

// lookalikes contain a category keyword without implying that category
var lookalikes = []string{
	"cocoa butter", "cacao butter", "shea butter", "mango butter",
	"coconut milk", "coconut cream", "cream of tartar", "buckwheat", "butternut",
}

// derivedTerms holds the derivedIngredients keys, longest first, so that
// "lactalbumin" wins over "albumin".
var derivedTerms = func() []string {
	terms := make([]string, 0, len(derivedIngredients))
	for term := range derivedIngredients {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i]) != len(terms[j]) {
			return len(terms[i]) > len(terms[j])
		}
		return terms[i] < terms[j]
	})
	return terms
}()

var byID = func() map[string]domain.AllergenCategory {
	m := make(map[string]domain.AllergenCategory, len(categories))
	for _, c := range categories {
		m[c.ID] = c
	}
	return m
}()

// Categories returns a copy of the taxonomy in declaration order
func Categories() []domain.AllergenCategory {
	out := make([]domain.AllergenCategory, len(categories))
	copy(out, categories)
	return out
}

// ByID returns the category with the given id
func ByID(id string) (domain.AllergenCategory, bool) {
	c, ok := byID[strings.ToLower(strings.TrimSpace(id))]
	return c, ok
}

// IsKnownID reports whether id names a taxonomy category
func IsKnownID(id string) bool {
	_, ok := ByID(id)
	return ok
}

// LookupCategoryByFreeText returns the first category with a keyword that is a
// substring of the normalized text, or Unknown. It never fails.
func LookupCategoryByFreeText(text string) domain.AllergenCategory {
	normalized := Normalize(text)
	if normalized == "" {
		return Unknown
	}
	for _, c := range categories {
		for _, kw := range c.Keywords {
			if strings.Contains(normalized, kw) {
				return c
			}
		}
	}
	return Unknown
}

// LookupDerived returns the category implied by a compound or scientific
// ingredient name, together with the matched term.
func LookupDerived(text string) (domain.AllergenCategory, string, bool) {
	normalized := Normalize(text)
	if normalized == "" {
		return Unknown, "", false
	}
	for _, term := range derivedTerms {
		if strings.Contains(normalized, term) {
			return byID[derivedIngredients[term]], term, true
		}
	}
	return Unknown, "", false
}

// StripLookalikes normalizes text and removes phrases that borrow an allergen
// keyword without implying it, like "cocoa butter" or "buckwheat".
func StripLookalikes(text string) string {
	normalized := Normalize(text)
	for _, l := range lookalikes {
		normalized = strings.ReplaceAll(normalized, l, " ")
	}
	return strings.Join(strings.Fields(normalized), " ")
}

// VocabularyEntry pairs a matchable term with its category
type VocabularyEntry struct {
	Term       string
	CategoryID string
}

// Vocabulary lists every keyword and derived term, keywords first
func Vocabulary() []VocabularyEntry {
	out := make([]VocabularyEntry, 0, len(derivedTerms)+64)
	for _, c := range categories {
		for _, kw := range c.Keywords {
			out = append(out, VocabularyEntry{Term: kw, CategoryID: c.ID})
		}
	}
	for _, term := range derivedTerms {
		out = append(out, VocabularyEntry{Term: term, CategoryID: derivedIngredients[term]})
	}
	return out
}

// Normalize lowercases text, strips diacritics and collapses whitespace
func Normalize(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
