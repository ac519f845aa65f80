package pattern

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calliehart/parsimony/internal/model"
)

func generativeResult(amount string) model.ExtractionResult {
	return model.ExtractionResult{
		Amount:      decimal.RequireFromString(amount),
		Description: "Office supplies order",
		Merchant:    "Acme",
		Category:    model.CategoryShopping,
		Confidence:  0.95,
		Origin:      model.OriginGenerative,
	}
}

func TestLearnPersistsTemplate(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	learner := NewLearner(store)

	content := "Thanks for your order!\nOrder total: 15.30 charged to your card."
	tmpl, err := learner.Learn(ctx, content, "Bills@Acme.com", generativeResult("15.30"))
	require.NoError(t, err)
	require.NotNil(t, tmpl)

	assert.Equal(t, "bills@acme.com", tmpl.Sender)
	assert.Equal(t, "Acme", tmpl.MerchantName)
	assert.Equal(t, model.OriginLearned, tmpl.Origin)
	assert.InDelta(t, 0.95, tmpl.Confidence, 1e-9)
	assert.True(t, tmpl.IsActive)

	got := db.MustGetTemplate(tmpl.ID)
	require.Len(t, got.Samples, 1)
	assert.Equal(t, content, got.Samples[0].Content)
	assert.True(t, got.Samples[0].Extracted.Amount.Equal(decimal.RequireFromString("15.30")))
}

func TestLearnNoOpWhenAmountAbsent(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	learner := NewLearner(store)

	// The result's amount never appears verbatim in the content.
	tmpl, err := learner.Learn(ctx, "Thanks for shopping with us", "bills@acme.com", generativeResult("15.30"))
	require.NoError(t, err)
	assert.Nil(t, tmpl)

	all, err := db.Storage.GetAllTemplates(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLearnedTemplateReExtracts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	learner := NewLearner(store)

	content := "Order total: $15.30 charged on 2026-03-15"
	result := generativeResult("15.30")
	result.Date = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	tmpl, err := learner.Learn(ctx, content, "bills@acme.com", result)
	require.NoError(t, err)
	require.NotNil(t, tmpl)

	// The learner refreshes the index, so the template is visible at once.
	extractor := NewExtractor(store)
	got := extractor.Extract(ctx, content, "bills@acme.com")

	assert.True(t, got.Amount.Equal(result.Amount),
		"learned pattern should re-extract the same amount, got %s", got.Amount)
	assert.Equal(t, 2026, got.Date.Year())
	assert.Equal(t, time.March, got.Date.Month())
}

func TestLearnedPatternReExtractsWithDigitsInContext(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	learner := NewLearner(store)

	// The preserved literal context carries its own digits; the learned
	// pattern must still yield exactly the amount, not a merge of every
	// digit on the line.
	content := "Order #123 Total: $45.00 charged to your card"
	tmpl, err := learner.Learn(ctx, content, "orders@acme.com", generativeResult("45.00"))
	require.NoError(t, err)
	require.NotNil(t, tmpl)

	extractor := NewExtractor(store)
	got := extractor.Extract(ctx, content, "orders@acme.com")
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("45.00")),
		"got %s, want 45.00", got.Amount)
}

func TestLearnedPatternSurvivesTrailingZeros(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	learner := NewLearner(store)

	// decimal renders 42.10 as "42.1"; the learner must still anchor the
	// pattern on the full "42.10" token in the content.
	content := "Your Total: $42.10 today"
	tmpl, err := learner.Learn(ctx, content, "store-news@amazon.com", generativeResult("42.10"))
	require.NoError(t, err)
	require.NotNil(t, tmpl)

	extractor := NewExtractor(store)
	got := extractor.Extract(ctx, content, "store-news@amazon.com")
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("42.10")),
		"got %s", got.Amount)
}

func TestSynthesizeDatePattern(t *testing.T) {
	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		content  string
		date     time.Time
		expected string
	}{
		{name: "US shape", content: "charged on 03/05/2026", date: date, expected: dateShapeUS},
		{name: "US shape without zero padding", content: "charged on 3/5/2026", date: date, expected: dateShapeUS},
		{name: "ISO shape", content: "charged on 2026-03-05", date: date, expected: dateShapeISO},
		{name: "date not in content", content: "charged yesterday", date: date, expected: ""},
		{name: "zero date", content: "charged on 03/05/2026", date: time.Time{}, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, synthesizeDatePattern(tt.content, tt.date))
		})
	}
}

func TestSynthesizeDescriptionPattern(t *testing.T) {
	tests := []struct {
		name        string
		description string
		expected    string
	}{
		{name: "three words", description: "Office supplies order", expected: `Office\s+supplies\s+order`},
		{name: "caps at three words", description: "Office supplies order for June", expected: `Office\s+supplies\s+order`},
		{name: "escapes metacharacters", description: "A+ rating", expected: `A\+\s+rating`},
		{name: "empty", description: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, synthesizeDescriptionPattern(tt.description))
		})
	}
}

func TestMerchantFromSender(t *testing.T) {
	tests := []struct {
		sender   string
		expected string
	}{
		{sender: "bills@acme.com", expected: "Acme"},
		{sender: "noreply@starbucks.co.uk", expected: "Starbucks"},
		{sender: "not-an-email", expected: "Unknown Merchant"},
		{sender: "trailing@", expected: "Unknown Merchant"},
	}

	for _, tt := range tests {
		t.Run(tt.sender, func(t *testing.T) {
			assert.Equal(t, tt.expected, merchantFromSender(tt.sender))
		})
	}
}

func TestLearnTruncatesSampleContent(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	learner := NewLearner(store)

	content := "Order total: 15.30\n" + strings.Repeat("x", 2000)
	tmpl, err := learner.Learn(ctx, content, "bills@acme.com", generativeResult("15.30"))
	require.NoError(t, err)
	require.NotNil(t, tmpl)

	got := db.MustGetTemplate(tmpl.ID)
	require.Len(t, got.Samples, 1)
	assert.Len(t, got.Samples[0].Content, 1000)
}
