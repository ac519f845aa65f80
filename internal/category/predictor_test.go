package category

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calliehart/parsimony/internal/model"
)

func TestPredict(t *testing.T) {
	tests := []struct {
		input    string
		expected model.Category
	}{
		{input: "Starbucks", expected: model.CategoryFoodDrink},
		{input: "coffee with the team", expected: model.CategoryFoodDrink},
		{input: "Uber", expected: model.CategoryTransportation},
		{input: "shell gas station", expected: model.CategoryTransportation},
		{input: "Amazon", expected: model.CategoryShopping},
		{input: "Netflix subscription", expected: model.CategoryEntertainment},
		{input: "electric bill", expected: model.CategoryBills},
		{input: "CVS pharmacy", expected: model.CategoryHealthcare},
		{input: "flight to Denver", expected: model.CategoryTravel},
		{input: "Acme Corp", expected: model.CategoryOther},
		{input: "", expected: model.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Predict(tt.input))
		})
	}
}

func TestPredictFirstRuleWins(t *testing.T) {
	// "uber delivery" matches both food (delivery) and transportation
	// (uber); rule order makes the result stable.
	assert.Equal(t, model.CategoryFoodDrink, Predict("uber delivery"))
}

func TestMatchMerchant(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "coffee at starbucks this morning", expected: "Starbucks"},
		{input: "UBER ride home", expected: "Uber"},
		{input: "ordered from amazon", expected: "Amazon"},
		{input: "corner deli sandwich", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, MatchMerchant(tt.input))
		})
	}
}
