package llm

import (
	"fmt"
	"strings"

	"github.com/calliehart/parsimony/internal/model"
)

func categoryList() string {
	names := make([]string, 0, len(model.AllCategories()))
	for _, c := range model.AllCategories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// buildEmailPrompt asks for the expense fields of a purchase email.
func buildEmailPrompt(content string) string {
	return fmt.Sprintf(`Extract the expense details from this email.

Email content:
%s

Respond with a JSON object containing these fields:
- "amount": the total charged, as a number (required)
- "description": a short description of the purchase
- "merchant": the merchant or vendor name
- "date": the transaction date in YYYY-MM-DD format
- "category": one of: %s
- "confidence": your confidence in the extraction, from 0 to 1; report 0.8 or higher only when every field is clearly identifiable

If a field cannot be determined, omit it.`, content, categoryList())
}

// buildFreeTextPrompt asks for the expense fields of a casual expense note,
// with examples showing the expected shape.
func buildFreeTextPrompt(text string) string {
	return fmt.Sprintf(`Extract the expense details from this text.

Text:
%s

Examples:
"coffee at starbucks $4.50" -> {"amount": 4.50, "description": "coffee", "merchant": "Starbucks", "category": "Food & Drink", "confidence": 0.9}
"uber ride home 23.80" -> {"amount": 23.80, "description": "ride home", "merchant": "Uber", "category": "Transportation", "confidence": 0.9}

Respond with a JSON object containing these fields:
- "amount": the amount spent, as a number (required)
- "description": a short description of the expense
- "merchant": the merchant name, if identifiable
- "date": the date in YYYY-MM-DD format, if mentioned
- "category": one of: %s
- "confidence": your confidence in the extraction, from 0 to 1; report 0.8 or higher only when every field is clearly identifiable`, text, categoryList())
}
