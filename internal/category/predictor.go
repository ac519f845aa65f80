// Package category provides deterministic keyword-based category prediction.
package category

import (
	"strings"

	"github.com/calliehart/parsimony/internal/model"
)

// rule maps a keyword set to a category. Rules are evaluated in order and the
// first rule with any matching keyword wins.
type rule struct {
	category model.Category
	keywords []string
}

var rules = []rule{
	{
		category: model.CategoryFoodDrink,
		keywords: []string{
			"coffee", "lunch", "dinner", "breakfast", "food", "restaurant",
			"starbucks", "mcdonalds", "pizza", "subway", "delivery",
		},
	},
	{
		category: model.CategoryTransportation,
		keywords: []string{
			"uber", "lyft", "gas", "gasoline", "shell", "exxon", "parking",
			"taxi", "metro", "bus", "ride",
		},
	},
	{
		category: model.CategoryShopping,
		keywords: []string{
			"amazon", "target", "walmart", "shop", "shopping", "store",
			"mall", "clothes", "groceries", "purchase",
		},
	},
	{
		category: model.CategoryEntertainment,
		keywords: []string{
			"netflix", "spotify", "movie", "game", "concert", "theater",
			"entertainment",
		},
	},
	{
		category: model.CategoryBills,
		keywords: []string{
			"bill", "utility", "electric", "water", "internet", "phone",
			"insurance", "subscription",
		},
	},
	{
		category: model.CategoryHealthcare,
		keywords: []string{
			"doctor", "hospital", "pharmacy", "medical", "health", "dental",
		},
	},
	{
		category: model.CategoryTravel,
		keywords: []string{
			"flight", "hotel", "travel", "vacation", "airbnb",
		},
	},
}

// Predict returns the category for a merchant name or free text. The check is
// a case-insensitive substring containment over the ordered rule list;
// unmatched input yields CategoryOther.
func Predict(merchantOrText string) model.Category {
	lowered := strings.ToLower(merchantOrText)

	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lowered, kw) {
				return r.category
			}
		}
	}

	return model.CategoryOther
}

// knownMerchants maps lowercase keywords found in free text to display names.
// Ordered so repeated scans are deterministic.
var knownMerchants = []struct {
	keyword string
	name    string
}{
	{"starbucks", "Starbucks"},
	{"uber", "Uber"},
	{"lyft", "Lyft"},
	{"amazon", "Amazon"},
	{"target", "Target"},
	{"walmart", "Walmart"},
	{"mcdonalds", "McDonald's"},
	{"subway", "Subway"},
}

// MatchMerchant scans text for a known merchant keyword and returns its
// display name, or an empty string when none is found. Used to attribute a
// merchant when the generative path does not provide one.
func MatchMerchant(text string) string {
	lowered := strings.ToLower(text)
	for _, m := range knownMerchants {
		if strings.Contains(lowered, m.keyword) {
			return m.name
		}
	}
	return ""
}
