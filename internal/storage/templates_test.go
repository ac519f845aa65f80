package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calliehart/parsimony/internal/common"
	"github.com/calliehart/parsimony/internal/model"
)

func setupStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func validTemplate() *model.Template {
	return &model.Template{
		Sender:       "receipts@example.com",
		MerchantName: "Example",
		Patterns: model.FieldPatterns{
			Amount: `Total.*?\$([0-9,]+\.?[0-9]*)`,
		},
		Origin:   model.OriginManual,
		IsActive: true,
	}
}

func TestCreateAndGetTemplate(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	tmpl := validTemplate()
	tmpl.Sender = "Receipts@Example.COM"
	tmpl.Patterns.Date = `([0-9]{4}-[0-9]{2}-[0-9]{2})`
	tmpl.Samples = []model.Sample{{
		Content:   "Total: $10.00",
		Timestamp: time.Now(),
		Extracted: model.ExtractedFields{Description: "test purchase"},
	}}

	require.NoError(t, store.CreateTemplate(ctx, tmpl))
	require.NotZero(t, tmpl.ID)

	got, err := store.GetTemplate(ctx, tmpl.ID)
	require.NoError(t, err)

	assert.Equal(t, "receipts@example.com", got.Sender, "sender should be lowercased")
	assert.Equal(t, "Example", got.MerchantName)
	assert.Equal(t, tmpl.Patterns.Amount, got.Patterns.Amount)
	assert.Equal(t, tmpl.Patterns.Date, got.Patterns.Date)
	assert.Equal(t, model.OriginManual, got.Origin)
	assert.True(t, got.IsActive)
	require.Len(t, got.Samples, 1)
	assert.Equal(t, "Total: $10.00", got.Samples[0].Content)
	assert.Equal(t, "test purchase", got.Samples[0].Extracted.Description)
}

func TestGetTemplateNotFound(t *testing.T) {
	store := setupStorage(t)

	_, err := store.GetTemplate(context.Background(), 9999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateTemplateValidation(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*model.Template)
	}{
		{name: "missing sender", mutate: func(tm *model.Template) { tm.Sender = "" }},
		{name: "missing merchant", mutate: func(tm *model.Template) { tm.MerchantName = "" }},
		{name: "missing amount pattern", mutate: func(tm *model.Template) { tm.Patterns.Amount = "" }},
		{name: "confidence out of range", mutate: func(tm *model.Template) { tm.Confidence = 1.5 }},
		{name: "negative success rate", mutate: func(tm *model.Template) { tm.SuccessRate = -0.1 }},
		{name: "bad origin", mutate: func(tm *model.Template) { tm.Origin = "guessed" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := validTemplate()
			tt.mutate(tmpl)
			assert.Error(t, store.CreateTemplate(ctx, tmpl))
		})
	}
}

func TestRecordTemplateOutcome(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	tmpl := validTemplate()
	tmpl.SuccessRate = 0.5
	tmpl.UsageCount = 4
	require.NoError(t, store.CreateTemplate(ctx, tmpl))

	require.NoError(t, store.RecordTemplateOutcome(ctx, tmpl.ID, true))

	got, err := store.GetTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, got.SuccessRate, 1e-9) // (0.5*4 + 1) / 5
	assert.Equal(t, 5, got.UsageCount)
	assert.False(t, got.LastUsed.IsZero())

	require.NoError(t, store.RecordTemplateOutcome(ctx, tmpl.ID, false))

	got, err = store.GetTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got.SuccessRate, 1e-9) // (0.6*5 + 0) / 6
	assert.Equal(t, 6, got.UsageCount)
}

func TestRecordTemplateOutcomeStaysBounded(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	tmpl := validTemplate()
	tmpl.SuccessRate = 0.9
	tmpl.UsageCount = 1
	require.NoError(t, store.CreateTemplate(ctx, tmpl))

	// Alternate outcomes; the rate must remain a valid probability at
	// every step.
	for i := 0; i < 20; i++ {
		require.NoError(t, store.RecordTemplateOutcome(ctx, tmpl.ID, i%2 == 0))

		got, err := store.GetTemplate(ctx, tmpl.ID)
		require.NoError(t, err)
		require.GreaterOrEqual(t, got.SuccessRate, 0.0)
		require.LessOrEqual(t, got.SuccessRate, 1.0)
	}

	got, err := store.GetTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, 21, got.UsageCount)
}

func TestRecordTemplateOutcomeNotFound(t *testing.T) {
	store := setupStorage(t)
	err := store.RecordTemplateOutcome(context.Background(), 42, true)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetActiveTemplatesFiltersAndOrders(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	rates := []float64{0.3, 0.9, 0.6}
	for i, rate := range rates {
		tmpl := validTemplate()
		tmpl.Sender = fmt.Sprintf("sender%d@example.com", i)
		tmpl.SuccessRate = rate
		require.NoError(t, store.CreateTemplate(ctx, tmpl))
	}

	inactive := validTemplate()
	inactive.Sender = "inactive@example.com"
	inactive.IsActive = false
	require.NoError(t, store.CreateTemplate(ctx, inactive))

	active, err := store.GetActiveTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3)

	// Ordered by success rate, best first.
	assert.Equal(t, "sender1@example.com", active[0].Sender)
	assert.Equal(t, "sender2@example.com", active[1].Sender)
	assert.Equal(t, "sender0@example.com", active[2].Sender)

	all, err := store.GetAllTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSetTemplateActive(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	tmpl := validTemplate()
	require.NoError(t, store.CreateTemplate(ctx, tmpl))

	require.NoError(t, store.SetTemplateActive(ctx, tmpl.ID, false))

	active, err := store.GetActiveTemplates(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	got, err := store.GetTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestAddTemplateSampleTrimsHistory(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	tmpl := validTemplate()
	require.NoError(t, store.CreateTemplate(ctx, tmpl))

	for i := 0; i < 8; i++ {
		sample := model.Sample{
			Content:   fmt.Sprintf("receipt %d", i),
			Timestamp: time.Now(),
		}
		require.NoError(t, store.AddTemplateSample(ctx, tmpl.ID, sample))
	}

	got, err := store.GetTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Len(t, got.Samples, maxSamplesPerTemplate)

	// Newest samples survive the trim.
	assert.Equal(t, "receipt 7", got.Samples[0].Content)
}

func TestSeedDefaultTemplates(t *testing.T) {
	store := setupStorage(t)
	ctx := context.Background()

	count, err := store.SeedDefaultTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Idempotent: a second seed installs nothing.
	count, err = store.SeedDefaultTemplates(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	active, err := store.GetActiveTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3)
	for _, tmpl := range active {
		assert.Equal(t, model.OriginSeeded, tmpl.Origin)
		assert.NotEmpty(t, tmpl.Patterns.Amount)
	}
}
