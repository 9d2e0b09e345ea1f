package usecase

import (
	"fmt"
	"strings"

	"github.com/allergenscan/backend/internal/domain"
)

const analysisSystemPrompt = `You are a food allergen analyst. You read product ingredient lists and decide whether a product contains allergens that matter to a specific person.

Work through these steps:
1. Split the ingredient list into discrete ingredients. A pre-split list is provided for convenience; the verbatim text is authoritative.
2. For every allergen in the user's profile, decide whether it is present and justify the decision from the ingredient text.
3. Also report any other common allergen (peanuts, tree nuts, sesame, soy, shellfish, molluscs, fish, eggs, milk, gluten, mustard, celery, lupin, sulphites) that you detect with confidence, even if it is not in the profile.
4. Only report allergens that can be traced to the ingredient text, the product name or the description. Never guess.

If an ingredient is a scientific name, an additive code or a compound ingredient whose allergen is not obvious (whey, casein, albumin, semolina, tahini, E220 and similar), call the ` + IngredientToolName + ` tool instead of guessing.

Respond with a single JSON object and nothing else:
{
  "containsAllergens": true,
  "safeToConsume": false,
  "allergensList": ["Milk", "Peanuts"],
  "reasoning": "Whey powder is derived from milk. Peanut oil comes from peanuts."
}

Rules:
- allergensList holds allergen names such as "Milk" or "Peanuts", one entry per allergen, not ingredient names.
- containsAllergens is true exactly when allergensList is non-empty.
- safeToConsume is the negation of containsAllergens.
- reasoning is a short plain-text explanation.`

// buildAnalysisPrompt renders the user turn for one analysis request
func buildAnalysisPrompt(input domain.AnalysisInput, terms []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Product name: %s\n", strings.TrimSpace(input.ProductName))
	if desc := strings.TrimSpace(input.ProductDescription); desc != "" {
		fmt.Fprintf(&sb, "Product description: %s\n", desc)
	}

	sb.WriteString("\nIngredients (verbatim):\n")
	sb.WriteString(strings.TrimSpace(input.Ingredients))
	sb.WriteString("\n")

	if len(terms) > 0 {
		sb.WriteString("\nIngredients (pre-split):\n")
		for _, term := range terms {
			sb.WriteString("- ")
			sb.WriteString(term)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nUser allergen profile: ")
	if profile := strings.TrimSpace(input.AllergensProfile); profile != "" {
		sb.WriteString(profile)
	} else {
		sb.WriteString("(none selected; report any common allergen you detect with confidence)")
	}
	sb.WriteString("\n\nReturn ONLY the JSON object.")

	return sb.String()
}
