package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/allergenscan/backend/internal/domain"
	"github.com/allergenscan/backend/internal/taxonomy"
	"github.com/mark3labs/mcp-go/mcp"
)

// IngredientToolName is the name the reasoning backend uses to call the tool
const IngredientToolName = "lookup_ingredient_allergens"

// maxToolIngredients bounds the work done for a single tool call
const maxToolIngredients = 100

// IngredientToolInput is the argument object of the ingredient tool
type IngredientToolInput struct {
	Ingredients []string `json:"ingredients"`
}

// IngredientTool resolves ingredient terms to allergen categories using the
// taxonomy keywords, the derived-ingredient table and a fuzzy fallback.
type IngredientTool struct {
	definition mcp.Tool
	spec       domain.ToolSpec
	fuzzyTerms []taxonomy.VocabularyEntry
}

// NewIngredientTool builds the tool and its JSON schema
func NewIngredientTool() *IngredientTool {
	definition := mcp.NewTool(IngredientToolName,
		mcp.WithDescription("Look up which allergen category each ingredient belongs to. "+
			"Use it for scientific names, additives and compound ingredients whose allergen is not "+
			"obvious from the name (for example whey, casein, albumin, semolina, tahini, E220)."),
		mcp.WithArray("ingredients",
			mcp.Required(),
			mcp.Description("Ingredient terms exactly as they appear in the ingredient list"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)

	schema, err := json.Marshal(definition.InputSchema)
	if err != nil {
		// The schema is built from literals above
		panic(fmt.Sprintf("ingredient tool schema: %v", err))
	}

	// Only single-word terms take part in fuzzy matching
	var fuzzyTerms []taxonomy.VocabularyEntry
	for _, entry := range taxonomy.Vocabulary() {
		if !strings.Contains(entry.Term, " ") {
			fuzzyTerms = append(fuzzyTerms, entry)
		}
	}

	return &IngredientTool{
		definition: definition,
		spec: domain.ToolSpec{
			Name:        definition.Name,
			Description: definition.Description,
			InputSchema: schema,
		},
		fuzzyTerms: fuzzyTerms,
	}
}

// Definition returns the MCP tool definition
func (t *IngredientTool) Definition() mcp.Tool {
	return t.definition
}

// Spec returns the provider-neutral tool description for the reasoning backend
func (t *IngredientTool) Spec() domain.ToolSpec {
	return t.spec
}

// Resolve maps each ingredient to a category. The output has one entry per input.
func (t *IngredientTool) Resolve(ingredients []string) []domain.IngredientMatch {
	matches := make([]domain.IngredientMatch, 0, len(ingredients))
	for _, ingredient := range ingredients {
		matches = append(matches, t.ResolveOne(ingredient))
	}
	return matches
}

// ResolveOne tries a keyword match, then the derived-ingredient table, then
// fuzzy matching against both.
func (t *IngredientTool) ResolveOne(ingredient string) domain.IngredientMatch {
	match := domain.IngredientMatch{
		Ingredient: ingredient,
		CategoryID: domain.UnknownCategoryID,
		Via:        domain.MatchViaNone,
	}

	text := taxonomy.StripLookalikes(ingredient)
	if text == "" {
		return match
	}

	// Derived terms go first so that "bean curd" is not read as dairy
	if cat, _, ok := taxonomy.LookupDerived(text); ok {
		match.CategoryID, match.Category, match.Via = cat.ID, cat.DisplayName, domain.MatchViaDerived
		return match
	}

	if cat := taxonomy.LookupCategoryByFreeText(text); !cat.IsUnknown() {
		match.CategoryID, match.Category, match.Via = cat.ID, cat.DisplayName, domain.MatchViaKeyword
		return match
	}

	for _, token := range tokenize(text) {
		for _, entry := range t.fuzzyTerms {
			if fuzzyTokenMatch(token, entry.Term, 1) {
				cat, _ := taxonomy.ByID(entry.CategoryID)
				match.CategoryID, match.Category, match.Via = cat.ID, cat.DisplayName, domain.MatchViaFuzzy
				return match
			}
		}
	}

	return match
}

// Execute answers a tool call from the reasoning backend. Bad input produces
// an error result for the model rather than a Go error.
func (t *IngredientTool) Execute(call domain.ToolCall) domain.ToolResult {
	var input IngredientToolInput
	if err := json.Unmarshal(call.Input, &input); err != nil {
		return domain.ToolResult{CallID: call.ID, Content: fmt.Sprintf("invalid input: %v", err), IsError: true}
	}
	if len(input.Ingredients) == 0 {
		return domain.ToolResult{CallID: call.ID, Content: "invalid input: ingredients must be a non-empty array of strings", IsError: true}
	}
	if len(input.Ingredients) > maxToolIngredients {
		input.Ingredients = input.Ingredients[:maxToolIngredients]
	}

	out, err := json.Marshal(t.Resolve(input.Ingredients))
	if err != nil {
		return domain.ToolResult{CallID: call.ID, Content: fmt.Sprintf("encoding result: %v", err), IsError: true}
	}
	return domain.ToolResult{CallID: call.ID, Content: string(out)}
}
