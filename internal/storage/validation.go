package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/calliehart/parsimony/internal/model"
)

// validateContext ensures a context is usable.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return nil
}

// validateString ensures a required string field is non-empty.
func validateString(value, name string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

// validateTemplate validates a template before persistence.
func validateTemplate(tmpl *model.Template) error {
	if tmpl == nil {
		return fmt.Errorf("template cannot be nil")
	}
	if err := validateString(tmpl.Sender, "sender"); err != nil {
		return err
	}
	if err := validateString(tmpl.MerchantName, "merchant_name"); err != nil {
		return err
	}
	if err := validateString(tmpl.Patterns.Amount, "amount pattern"); err != nil {
		return err
	}
	if tmpl.Confidence < 0 || tmpl.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1")
	}
	if tmpl.SuccessRate < 0 || tmpl.SuccessRate > 1 {
		return fmt.Errorf("success rate must be between 0 and 1")
	}
	if tmpl.UsageCount < 0 {
		return fmt.Errorf("usage count cannot be negative")
	}

	switch tmpl.Origin {
	case model.OriginSeeded, model.OriginLearned, model.OriginManual:
	default:
		return fmt.Errorf("invalid template origin: %s", tmpl.Origin)
	}

	return nil
}
