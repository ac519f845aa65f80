package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/calliehart/parsimony/internal/model"
)

const (
	// digitsToken generalizes a located numeric substring: one or more
	// digits (comma grouping allowed), optional fractional part.
	digitsToken = `[0-9,]+\.?[0-9]*`

	// sampleExcerptLimit caps how much content is kept in a sample.
	sampleExcerptLimit = 1000

	// contextWindow is how far back from the amount the synthesized pattern
	// preserves literal context (currency symbol, preceding label).
	contextWindow = 30
)

// Recognized literal date shapes a learned template may carry.
var (
	dateShapeUS  = `[0-9]{1,2}/[0-9]{1,2}/[0-9]{4}`
	dateShapeISO = `[0-9]{4}-[0-9]{2}-[0-9]{2}`
)

// Learner synthesizes deterministic templates from high-confidence
// generative results and writes them back into the store.
type Learner struct {
	store *Store
}

// NewLearner creates a learner over the given store.
func NewLearner(store *Store) *Learner {
	return &Learner{store: store}
}

// Learn synthesizes a new template from a generative result. It returns the
// persisted template, or nil when the result's amount does not appear
// verbatim in the content and no pattern can be safely generalized.
func (l *Learner) Learn(ctx context.Context, content, sender string, result model.ExtractionResult) (*model.Template, error) {
	amountStr := result.Amount.String()
	loc := strings.Index(content, amountStr)
	if loc < 0 {
		slog.Debug("Amount not found verbatim in content, skipping pattern learning",
			"sender", sender,
			"amount", amountStr)
		return nil, nil
	}

	start := numericTokenStart(content, loc)

	patterns := model.FieldPatterns{
		Amount:      synthesizeAmountPattern(content, start),
		Date:        synthesizeDatePattern(content, result.Date),
		Description: synthesizeDescriptionPattern(result.Description),
	}

	merchant := result.Merchant
	if merchant == "" {
		merchant = merchantFromSender(sender)
	}

	tmpl := &model.Template{
		Sender:       strings.ToLower(sender),
		MerchantName: merchant,
		Patterns:     patterns,
		Confidence:   result.Confidence,
		Origin:       model.OriginLearned,
		IsActive:     true,
		Samples: []model.Sample{{
			Content:   truncate(content, sampleExcerptLimit),
			Extracted: result.Snapshot(),
			Timestamp: time.Now(),
		}},
	}

	if err := l.store.Insert(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("failed to persist learned template: %w", err)
	}

	slog.Info("Learned new template",
		"sender", tmpl.Sender,
		"merchant", tmpl.MerchantName,
		"template_id", tmpl.ID)

	// Make the new template visible to future lookups.
	if err := l.store.Refresh(ctx); err != nil {
		slog.Warn("Failed to refresh after learning", "error", err)
	}

	return tmpl, nil
}

// numericTokenStart widens the located amount backwards to the start of the
// full numeric token, so "5" located inside "45.00" anchors at the "4".
func numericTokenStart(content string, loc int) int {
	start := loc

	isDigit := func(i int) bool {
		return i >= 0 && i < len(content) && content[i] >= '0' && content[i] <= '9'
	}
	isSep := func(i int) bool {
		return i >= 0 && i < len(content) && (content[i] == '.' || content[i] == ',')
	}

	for isDigit(start-1) || (isSep(start-1) && isDigit(start-2)) {
		start--
	}

	return start
}

// synthesizeAmountPattern escapes the literal context preceding the numeric
// token and replaces the number itself with the generic digits token. Context
// extends back to the start of the line, capped at the context window. The
// digits token is captured so extraction reads the amount alone even when the
// context itself carries digits (order numbers, dates).
func synthesizeAmountPattern(content string, start int) string {
	ctxStart := start - contextWindow
	if ctxStart < 0 {
		ctxStart = 0
	}
	if nl := strings.LastIndexByte(content[:start], '\n'); nl >= ctxStart {
		ctxStart = nl + 1
	}

	return regexp.QuoteMeta(content[ctxStart:start]) + "(" + digitsToken + ")"
}

// synthesizeDatePattern emits a generic pattern only when the result's date
// appears in the content in one of the two recognized literal shapes.
func synthesizeDatePattern(content string, date time.Time) string {
	if date.IsZero() {
		return ""
	}

	usLayouts := []string{"01/02/2006", "1/2/2006"}
	for _, layout := range usLayouts {
		if strings.Contains(content, date.Format(layout)) {
			return dateShapeUS
		}
	}
	if strings.Contains(content, date.Format("2006-01-02")) {
		return dateShapeISO
	}

	return ""
}

// synthesizeDescriptionPattern builds a pattern from the first three words of
// the description, each escaped, joined by a whitespace token.
func synthesizeDescriptionPattern(description string) string {
	words := strings.Fields(description)
	if len(words) == 0 {
		return ""
	}
	if len(words) > 3 {
		words = words[:3]
	}

	escaped := make([]string, len(words))
	for i, word := range words {
		escaped[i] = regexp.QuoteMeta(word)
	}
	return strings.Join(escaped, `\s+`)
}

// merchantFromSender derives a display name from the sender's mail domain,
// title-casing the first label.
func merchantFromSender(sender string) string {
	at := strings.Index(sender, "@")
	if at < 0 || at+1 >= len(sender) {
		return "Unknown Merchant"
	}

	domain := sender[at+1:]
	label := domain
	if dot := strings.Index(domain, "."); dot > 0 {
		label = domain[:dot]
	}
	if label == "" {
		return "Unknown Merchant"
	}

	return strings.ToUpper(label[:1]) + label[1:]
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
