// Package llm integrates the external generative text service used as the
// extraction fallback. Providers implement a common Client interface; the
// Extractor adds prompts, retries, rate limiting, caching, and the free-text
// heuristic degradation on top.
package llm

import (
	"context"

	"github.com/shopspring/decimal"
)

// Client defines the interface for generative text providers.
type Client interface {
	// ExtractExpense sends an extraction prompt and returns the parsed
	// strict-JSON payload. Non-conforming responses are errors.
	ExtractExpense(ctx context.Context, prompt string) (ExpenseResponse, error)
}

// ExpenseResponse is the provider's payload after strict-JSON parsing.
// Amount must be positive; everything else is optional and defaulted by the
// Extractor.
type ExpenseResponse struct {
	Description string          `json:"description"`
	Merchant    string          `json:"merchant"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Confidence  float64         `json:"confidence"`
}
