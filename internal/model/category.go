// Package model defines the core domain models used throughout the application.
package model

import "strings"

// Category is a member of the fixed expense category enumeration shared with
// every consumer of the extraction engine.
type Category string

// The full category enumeration. Values outside this set are normalized to
// CategoryOther before a result leaves the engine.
const (
	CategoryFoodDrink      Category = "Food & Drink"
	CategoryTransportation Category = "Transportation"
	CategoryShopping       Category = "Shopping"
	CategoryEntertainment  Category = "Entertainment"
	CategoryBills          Category = "Bills & Utilities"
	CategoryHealthcare     Category = "Healthcare"
	CategoryTravel         Category = "Travel"
	CategoryOther          Category = "Other"
)

// AllCategories returns the enumeration in its canonical order.
func AllCategories() []Category {
	return []Category{
		CategoryFoodDrink,
		CategoryTransportation,
		CategoryShopping,
		CategoryEntertainment,
		CategoryBills,
		CategoryHealthcare,
		CategoryTravel,
		CategoryOther,
	}
}

// NormalizeCategory maps an arbitrary string onto the enumeration.
// Matching is case-insensitive; anything unrecognized becomes CategoryOther.
func NormalizeCategory(s string) Category {
	trimmed := strings.TrimSpace(s)
	for _, c := range AllCategories() {
		if strings.EqualFold(trimmed, string(c)) {
			return c
		}
	}
	return CategoryOther
}
