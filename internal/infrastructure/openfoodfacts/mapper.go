package openfoodfacts

import (
	"strings"

	"github.com/allergenscan/backend/internal/domain"
)

// MapToProductRecord converts an Open Food Facts product to our domain model.
// Each text field independently prefers its English variant. A product with no
// ingredient text is still returned, together with a warning for the caller.
func MapToProductRecord(barcode string, p *domain.OFFProduct) (*domain.ProductRecord, string) {
	record := &domain.ProductRecord{
		Barcode:            barcode,
		ProductName:        preferEnglish(p.ProductNameEN, p.ProductName),
		Ingredients:        preferEnglish(p.IngredientsTextEN, p.IngredientsText),
		ProductDescription: preferEnglish(p.GenericNameEN, p.GenericName),
		ImageURL:           firstNonEmpty(p.ImageFrontURL, p.ImageURL),
	}

	if record.ProductName == "" {
		record.ProductName = domain.UnknownProductName
	}

	var warning string
	if !record.HasIngredients() {
		record.Ingredients = ""
		warning = domain.WarningIngredientsMissing
	}

	return record, warning
}

// preferEnglish returns the trimmed English value when present, else the default-locale value
func preferEnglish(english, fallback string) string {
	return firstNonEmpty(english, fallback)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
