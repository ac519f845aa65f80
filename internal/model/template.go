package model

import (
	"time"
)

// TemplateOrigin records how a template came to exist.
type TemplateOrigin string

// Template origin constants.
const (
	// OriginSeeded marks templates shipped as defaults.
	OriginSeeded TemplateOrigin = "seeded"
	// OriginLearned marks templates synthesized from generative results.
	OriginLearned TemplateOrigin = "learned"
	// OriginManual marks human-authored templates.
	OriginManual TemplateOrigin = "manual"
)

// FieldPatterns holds the per-field pattern expressions of a template.
// Amount is the only mandatory field.
type FieldPatterns struct {
	Amount      string `json:"amount"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
	Total       string `json:"total,omitempty"`
	Merchant    string `json:"merchant,omitempty"`
}

// Template is a sender-scoped set of extraction patterns plus empirical
// success statistics.
type Template struct {
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	LastUsed     time.Time      `json:"last_used"`
	Sender       string         `json:"sender"`
	MerchantName string         `json:"merchant_name"`
	Origin       TemplateOrigin `json:"origin"`
	Patterns     FieldPatterns  `json:"patterns"`
	Samples      []Sample       `json:"samples,omitempty"`
	ID           int64          `json:"id"`
	UsageCount   int            `json:"usage_count"`
	SuccessRate  float64        `json:"success_rate"`
	Confidence   float64        `json:"confidence"`
	IsActive     bool           `json:"is_active"`
}

// Sample is one audit record attached to a template: a content excerpt and
// the fields that were extracted from it. Samples are never used in scoring.
type Sample struct {
	Timestamp time.Time       `json:"timestamp"`
	Content   string          `json:"content"`
	Extracted ExtractedFields `json:"extracted"`
}
