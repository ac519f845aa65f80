package pattern

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/calliehart/parsimony/internal/category"
	"github.com/calliehart/parsimony/internal/model"
)

// Confidence bonuses for independent field matches. A fully-matching
// candidate with a found description scores 0.9; with a defaulted
// description, 0.8.
const (
	amountBonus      = 0.4
	dateBonus        = 0.2
	descriptionBonus = 0.2
	defaultDescBonus = 0.1
	knownSenderBonus = 0.1
)

// outcomeThreshold is the per-candidate confidence above which an evaluation
// counts as a success in the template's statistics.
const outcomeThreshold = 0.7

// dateLayouts are the formats attempted when a date pattern matches.
var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// Extractor applies stored templates to content and scores each candidate.
// It is a pure scorer: the trust decision lives with the caller.
type Extractor struct {
	store *Store
}

// NewExtractor creates a deterministic extractor over the given store.
func NewExtractor(store *Store) *Extractor {
	return &Extractor{store: store}
}

// Extract evaluates every candidate template for the sender and returns the
// best-scoring result. Every evaluated candidate updates its own statistics,
// not only the winner. A result with confidence 0 means no candidate matched
// an amount.
func (e *Extractor) Extract(ctx context.Context, content, sender string) model.ExtractionResult {
	candidates := e.store.Lookup(sender)

	best := model.ExtractionResult{
		Date:     time.Now(),
		Category: model.CategoryOther,
		Origin:   model.OriginDeterministic,
	}

	for _, candidate := range candidates {
		result := evaluate(content, candidate)

		if err := e.store.RecordOutcome(ctx, candidate.Template.ID, result.Confidence > outcomeThreshold); err != nil {
			slog.Warn("Failed to record template outcome",
				"template_id", candidate.Template.ID,
				"error", err)
		}

		if result.Confidence > best.Confidence {
			best = result
		}
	}

	return best
}

// Preview evaluates candidates like Extract but records no outcomes, so a
// dry run never shifts template statistics.
func (e *Extractor) Preview(_ context.Context, content, sender string) model.ExtractionResult {
	best := model.ExtractionResult{
		Date:     time.Now(),
		Category: model.CategoryOther,
		Origin:   model.OriginDeterministic,
	}

	for _, candidate := range e.store.Lookup(sender) {
		if result := evaluate(content, candidate); result.Confidence > best.Confidence {
			best = result
		}
	}

	return best
}

// evaluate attempts field extraction with a single candidate, accumulating
// confidence from independent field bonuses.
func evaluate(content string, candidate *CompiledTemplate) model.ExtractionResult {
	result := model.ExtractionResult{
		Merchant: candidate.Template.MerchantName,
		Date:     time.Now(),
		Category: category.Predict(candidate.Template.MerchantName),
		Origin:   model.OriginDeterministic,
	}

	if match := candidate.Amount.FindStringSubmatch(content); match != nil {
		// Prefer the capture group so literal context with digits in it
		// (order numbers, dates) never bleeds into the amount.
		captured := match[0]
		if len(match) > 1 && match[1] != "" {
			captured = match[1]
		}
		if amount, ok := parseAmount(captured); ok {
			result.Amount = amount
			result.Confidence += amountBonus
		}
	}

	if candidate.Date != nil {
		if match := candidate.Date.FindString(content); match != "" {
			if date, ok := parseDate(match); ok {
				result.Date = date
				result.Confidence += dateBonus
			}
		}
	}

	if candidate.Description != nil {
		if match := candidate.Description.FindString(content); match != "" {
			result.Description = strings.TrimSpace(match)
			result.Confidence += descriptionBonus
		}
	}

	if result.Description == "" {
		result.Description = candidate.Template.MerchantName + " purchase"
		result.Confidence += defaultDescBonus
	}

	// The candidate came from a recognized sender.
	result.Confidence += knownSenderBonus

	return result
}

// parseAmount strips everything but digits and the decimal point from a
// matched string and parses the remainder. Non-positive or unparsable
// amounts count as no match.
func parseAmount(match string) (decimal.Decimal, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, match)

	if cleaned == "" {
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}

// parseDate attempts the known date layouts against matched text.
func parseDate(match string) (time.Time, bool) {
	trimmed := strings.TrimSpace(match)
	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, trimmed); err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}
