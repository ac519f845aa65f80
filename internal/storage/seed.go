package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/calliehart/parsimony/internal/model"
)

// defaultTemplates are the extraction templates shipped with the application.
// Patterns are compiled case-insensitively at load time.
var defaultTemplates = []model.Template{
	{
		Sender:       "store-news@amazon.com",
		MerchantName: "Amazon",
		Patterns: model.FieldPatterns{
			Amount:      `Total.*?\$([0-9,]+\.?[0-9]*)`,
			Date:        `Order Date.*?([A-Za-z]+ [0-9]{1,2}, [0-9]{4})`,
			Description: `Amazon\.com order`,
			Total:       `Total.*?\$([0-9,]+\.?[0-9]*)`,
		},
		SuccessRate: 0.9,
		Origin:      model.OriginSeeded,
		Confidence:  0.9,
		IsActive:    true,
	},
	{
		Sender:       "receipts@uber.com",
		MerchantName: "Uber",
		Patterns: model.FieldPatterns{
			Amount:      `Total.*?\$([0-9,]+\.?[0-9]*)`,
			Date:        `([A-Za-z]+ [0-9]{1,2}, [0-9]{4})`,
			Description: `Uber ride`,
			Total:       `Total.*?\$([0-9,]+\.?[0-9]*)`,
		},
		SuccessRate: 0.85,
		Origin:      model.OriginSeeded,
		Confidence:  0.85,
		IsActive:    true,
	},
	{
		Sender:       "noreply@starbucks.com",
		MerchantName: "Starbucks",
		Patterns: model.FieldPatterns{
			Amount:      `Total.*?\$([0-9,]+\.?[0-9]*)`,
			Date:        `([0-9]{1,2}/[0-9]{1,2}/[0-9]{4})`,
			Description: `Starbucks purchase`,
			Total:       `Total.*?\$([0-9,]+\.?[0-9]*)`,
		},
		SuccessRate: 0.8,
		Origin:      model.OriginSeeded,
		Confidence:  0.8,
		IsActive:    true,
	},
}

// SeedDefaultTemplates inserts the shipped templates, skipping any sender that
// already has a seeded template. Returns the number inserted.
func (s *SQLiteStorage) SeedDefaultTemplates(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	inserted := 0
	for i := range defaultTemplates {
		tmpl := defaultTemplates[i]

		var count int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM templates WHERE sender = ? AND origin = ?`,
			tmpl.Sender, string(model.OriginSeeded)).Scan(&count)
		if err != nil {
			return inserted, fmt.Errorf("failed to check existing template: %w", err)
		}
		if count > 0 {
			slog.Debug("Seeded template already exists", "sender", tmpl.Sender)
			continue
		}

		if err := s.CreateTemplate(ctx, &tmpl); err != nil {
			return inserted, fmt.Errorf("failed to seed template for %s: %w", tmpl.Sender, err)
		}
		inserted++

		slog.Info("Seeded template", "sender", tmpl.Sender, "merchant", tmpl.MerchantName)
	}

	return inserted, nil
}
