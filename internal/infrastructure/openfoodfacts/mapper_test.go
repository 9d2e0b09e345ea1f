package openfoodfacts

import (
	"testing"

	"github.com/allergenscan/backend/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapToProductRecord(t *testing.T) {
	tests := []struct {
		name        string
		product     domain.OFFProduct
		want        domain.ProductRecord
		wantWarning string
	}{
		{
			name: "prefers english fields independently",
			product: domain.OFFProduct{
				ProductName:       "Biscuits à l'avoine",
				ProductNameEN:     "Oat Biscuits",
				IngredientsText:   "Avoine, sucre",
				GenericName:       "Biscuits",
				GenericNameEN:     "",
				ImageURL:          "https://img/1.jpg",
				IngredientsTextEN: "  Oats, sugar ",
			},
			want: domain.ProductRecord{
				Barcode:            "111",
				ProductName:        "Oat Biscuits",
				Ingredients:        "Oats, sugar",
				ProductDescription: "Biscuits",
				ImageURL:           "https://img/1.jpg",
			},
		},
		{
			name: "falls back to default locale",
			product: domain.OFFProduct{
				ProductName:     "Galletas",
				IngredientsText: "Harina de trigo",
			},
			want: domain.ProductRecord{
				Barcode:     "111",
				ProductName: "Galletas",
				Ingredients: "Harina de trigo",
			},
		},
		{
			name: "front image wins over generic image",
			product: domain.OFFProduct{
				ProductName:     "Crackers",
				IngredientsText: "Wheat",
				ImageURL:        "https://img/generic.jpg",
				ImageFrontURL:   "https://img/front.jpg",
			},
			want: domain.ProductRecord{
				Barcode:     "111",
				ProductName: "Crackers",
				Ingredients: "Wheat",
				ImageURL:    "https://img/front.jpg",
			},
		},
		{
			name:    "missing ingredients is a partial success",
			product: domain.OFFProduct{ProductName: "Oat Crackers", IngredientsTextEN: "   "},
			want: domain.ProductRecord{
				Barcode:     "111",
				ProductName: "Oat Crackers",
				Ingredients: "",
			},
			wantWarning: domain.WarningIngredientsMissing,
		},
		{
			name:    "missing name uses placeholder",
			product: domain.OFFProduct{IngredientsText: "Water"},
			want: domain.ProductRecord{
				Barcode:     "111",
				ProductName: domain.UnknownProductName,
				Ingredients: "Water",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warning := MapToProductRecord("111", &tt.product)
			assert.Equal(t, tt.want, *got)
			assert.Equal(t, tt.wantWarning, warning)
		})
	}
}
