// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/calliehart/parsimony/internal/model"
)

// TemplateStore defines the contract for the durable pattern store backing.
type TemplateStore interface {
	// CreateTemplate persists a new template, including any attached samples.
	CreateTemplate(ctx context.Context, tmpl *model.Template) error
	// GetTemplate retrieves a template with its sample history.
	GetTemplate(ctx context.Context, id int64) (*model.Template, error)
	// GetActiveTemplates returns all active templates ordered by descending
	// success rate (ties broken by insertion order).
	GetActiveTemplates(ctx context.Context) ([]model.Template, error)
	// GetAllTemplates returns every template, active or not.
	GetAllTemplates(ctx context.Context) ([]model.Template, error)
	// RecordTemplateOutcome folds one evaluation outcome into the template's
	// statistics. Updates are per-template and atomic; no outcome is lost.
	RecordTemplateOutcome(ctx context.Context, id int64, succeeded bool) error
	// SetTemplateActive toggles a template's active flag. Templates are never
	// hard-deleted.
	SetTemplateActive(ctx context.Context, id int64, active bool) error
	// AddTemplateSample appends an audit sample, trimming history to the
	// per-template bound.
	AddTemplateSample(ctx context.Context, id int64, sample model.Sample) error

	// Migrate brings the schema up to date.
	Migrate(ctx context.Context) error
	Close() error
}

// GenerativeExtractor is the external text-understanding service boundary.
type GenerativeExtractor interface {
	// ExtractFromEmail parses sender-attributed content. A failure means no
	// usable amount was produced.
	ExtractFromEmail(ctx context.Context, content string) (model.ExtractionResult, error)
	// ExtractFromText parses free-form text, degrading to a heuristic amount
	// scan when the service is unavailable.
	ExtractFromText(ctx context.Context, text string) (model.ExtractionResult, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
