package domain

import "strings"

// UnknownProductName is used when the upstream record carries no usable name
const UnknownProductName = "Unknown Product"

// WarningIngredientsMissing is surfaced when a product was found without ingredient text
const WarningIngredientsMissing = "Product found, but no ingredients are listed. Please enter the ingredients manually to run an allergen analysis."

// ProductRecord is the normalized result of one barcode lookup
type ProductRecord struct {
	Barcode            string `json:"barcode"`
	ProductName        string `json:"productName"`
	Ingredients        string `json:"ingredients"`
	ProductDescription string `json:"productDescription,omitempty"`
	ImageURL           string `json:"imageUrl,omitempty"`
}

// HasIngredients reports whether the record can be analyzed
func (p *ProductRecord) HasIngredients() bool {
	return p != nil && strings.TrimSpace(p.Ingredients) != ""
}

// LookupResult wraps a ProductRecord with the partial-success warning and its origin
type LookupResult struct {
	Product *ProductRecord `json:"product"`
	Warning string         `json:"warning,omitempty"` // set only when ingredients are missing
	Source  string         `json:"source"`            // "OpenFoodFacts" or "Cache"
}

// IsPartial reports whether the lookup found the product but not its ingredients
func (r *LookupResult) IsPartial() bool {
	return r != nil && r.Warning != ""
}

// OFFProductResponse represents the response of the Open Food Facts product API
type OFFProductResponse struct {
	Code          string      `json:"code"`
	Status        int         `json:"status"`
	StatusVerbose string      `json:"status_verbose"`
	Product       *OFFProduct `json:"product,omitempty"`
}

// OFFProduct holds the subset of Open Food Facts product fields we request
type OFFProduct struct {
	ProductName       string `json:"product_name"`
	ProductNameEN     string `json:"product_name_en"`
	IngredientsText   string `json:"ingredients_text"`
	IngredientsTextEN string `json:"ingredients_text_en"`
	GenericName       string `json:"generic_name"`
	GenericNameEN     string `json:"generic_name_en"`
	ImageURL          string `json:"image_url"`
	ImageFrontURL     string `json:"image_front_url"`
	Brands            string `json:"brands,omitempty"`
}
