package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResultOrigin tags which path produced an extraction result.
type ResultOrigin string

// Result origin constants.
const (
	// OriginDeterministic marks results produced by stored templates.
	OriginDeterministic ResultOrigin = "deterministic"
	// OriginGenerative marks results produced by the generative fallback.
	OriginGenerative ResultOrigin = "generative"
	// OriginHeuristic marks results produced by the degraded amount scan.
	OriginHeuristic ResultOrigin = "heuristic-fallback"
)

// ExtractionResult is the ephemeral output of one extraction attempt.
// A zero (or negative) Amount signals extraction failure.
type ExtractionResult struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant"`
	Category    Category        `json:"category"`
	Origin      ResultOrigin    `json:"origin"`
	Amount      decimal.Decimal `json:"amount"`
	Confidence  float64         `json:"confidence"`
}

// HasAmount reports whether a positive amount was extracted.
func (r ExtractionResult) HasAmount() bool {
	return r.Amount.IsPositive()
}

// ExtractedFields is the typed snapshot of extracted values stored in a
// template's sample history.
type ExtractedFields struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant"`
	Category    Category        `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Confidence  float64         `json:"confidence"`
}

// Snapshot converts a result into the sample-history form.
func (r ExtractionResult) Snapshot() ExtractedFields {
	return ExtractedFields{
		Amount:      r.Amount,
		Description: r.Description,
		Merchant:    r.Merchant,
		Date:        r.Date,
		Category:    r.Category,
		Confidence:  r.Confidence,
	}
}
