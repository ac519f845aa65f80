package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calliehart/parsimony/internal/common"
	"github.com/calliehart/parsimony/internal/model"
)

type stubClient struct {
	resp  ExpenseResponse
	err   error
	calls int
}

func (c *stubClient) ExtractExpense(_ context.Context, _ string) (ExpenseResponse, error) {
	c.calls++
	if c.err != nil {
		return ExpenseResponse{}, c.err
	}
	return c.resp, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtractFromEmail(t *testing.T) {
	client := &stubClient{resp: ExpenseResponse{
		Amount:      decimal.RequireFromString("42.10"),
		Description: "Amazon order",
		Merchant:    "Amazon",
		Date:        "2026-03-15",
		Category:    "Shopping",
		Confidence:  0.92,
	}}

	extractor := NewExtractorWithClient(client, testLogger())
	defer func() { _ = extractor.Close() }()

	result, err := extractor.ExtractFromEmail(context.Background(), "order email body")
	require.NoError(t, err)

	assert.True(t, result.Amount.Equal(decimal.RequireFromString("42.10")))
	assert.Equal(t, "Amazon order", result.Description)
	assert.Equal(t, "Amazon", result.Merchant)
	assert.Equal(t, model.CategoryShopping, result.Category)
	assert.Equal(t, model.OriginGenerative, result.Origin)
	assert.InDelta(t, 0.92, result.Confidence, 1e-9)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), result.Date)
}

func TestExtractFromEmailDefaults(t *testing.T) {
	client := &stubClient{resp: ExpenseResponse{
		Amount: decimal.RequireFromString("9.99"),
	}}

	extractor := NewExtractorWithClient(client, testLogger())
	defer func() { _ = extractor.Close() }()

	result, err := extractor.ExtractFromEmail(context.Background(), "a receipt with no details")
	require.NoError(t, err)

	assert.Equal(t, "Email purchase", result.Description)
	assert.Equal(t, "Unknown Merchant", result.Merchant)
	assert.Equal(t, model.CategoryOther, result.Category)
	assert.InDelta(t, 0.7, result.Confidence, 1e-9)
	assert.WithinDuration(t, time.Now(), result.Date, time.Minute)
}

func TestExtractFromEmailServiceFailure(t *testing.T) {
	client := &stubClient{err: errors.New("connection refused")}

	extractor := NewExtractorWithClient(client, testLogger())
	defer func() { _ = extractor.Close() }()

	_, err := extractor.ExtractFromEmail(context.Background(), "order email body")
	assert.ErrorIs(t, err, common.ErrGenerativeService)
}

func TestExtractFromEmailCaches(t *testing.T) {
	client := &stubClient{resp: ExpenseResponse{
		Amount: decimal.RequireFromString("5.00"),
	}}

	extractor := NewExtractorWithClient(client, testLogger())
	defer func() { _ = extractor.Close() }()

	ctx := context.Background()
	_, err := extractor.ExtractFromEmail(ctx, "same content")
	require.NoError(t, err)
	_, err = extractor.ExtractFromEmail(ctx, "same content")
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls, "second identical request should hit the cache")
}

func TestExtractFromTextHeuristicDegradation(t *testing.T) {
	client := &stubClient{err: errors.New("service unavailable")}

	extractor := NewExtractorWithClient(client, testLogger())
	defer func() { _ = extractor.Close() }()

	result, err := extractor.ExtractFromText(context.Background(), "coffee $4.50")
	require.NoError(t, err)

	assert.True(t, result.Amount.Equal(decimal.RequireFromString("4.50")), "got %s", result.Amount)
	assert.InDelta(t, 0.5, result.Confidence, 1e-9)
	assert.Equal(t, model.OriginHeuristic, result.Origin)
	assert.Equal(t, "Parsed Expense", result.Description)
	assert.Equal(t, model.CategoryFoodDrink, result.Category)
}

func TestExtractFromTextNoHeuristicAmount(t *testing.T) {
	client := &stubClient{err: errors.New("service unavailable")}

	extractor := NewExtractorWithClient(client, testLogger())
	defer func() { _ = extractor.Close() }()

	_, err := extractor.ExtractFromText(context.Background(), "had a great day")
	assert.ErrorIs(t, err, common.ErrNoAmountFound)
}

func TestNewExtractorConfigErrors(t *testing.T) {
	_, err := NewExtractor(Config{Provider: "oracle"}, testLogger())
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = NewExtractor(Config{Provider: "openai"}, testLogger())
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewExtractor(Config{Provider: "anthropic"}, testLogger())
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestExtractFromTextMerchantAttribution(t *testing.T) {
	client := &stubClient{resp: ExpenseResponse{
		Amount:      decimal.RequireFromString("23.80"),
		Description: "ride home",
		Confidence:  0.9,
	}}

	extractor := NewExtractorWithClient(client, testLogger())
	defer func() { _ = extractor.Close() }()

	result, err := extractor.ExtractFromText(context.Background(), "uber ride home 23.80")
	require.NoError(t, err)

	// No merchant in the response, but the text names a known one.
	assert.Equal(t, "Uber", result.Merchant)
	assert.Equal(t, model.CategoryTransportation, result.Category)
}

func TestHeuristicScan(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		amount string
		ok     bool
	}{
		{name: "dollar amount", text: "coffee $4.50", amount: "4.50", ok: true},
		{name: "bare number", text: "lunch 12.00 with team", amount: "12.00", ok: true},
		{name: "integer", text: "paid 30 for parking", amount: "30", ok: true},
		{name: "no number", text: "nothing to see", ok: false},
		{name: "zero rejected", text: "balance 0", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := heuristicScan(tt.text)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, result.Amount.Equal(decimal.RequireFromString(tt.amount)),
					"got %s, want %s", result.Amount, tt.amount)
			}
		})
	}
}
