package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calliehart/parsimony/internal/common"
	"github.com/calliehart/parsimony/internal/model"
)

// maxSamplesPerTemplate bounds the per-template audit history.
const maxSamplesPerTemplate = 5

const templateColumns = `id, sender, merchant_name, amount_pattern, date_pattern,
	description_pattern, total_pattern, merchant_pattern, success_rate,
	usage_count, last_used, origin, confidence, is_active, created_at, updated_at`

// CreateTemplate persists a new template, including any attached samples.
func (s *SQLiteStorage) CreateTemplate(ctx context.Context, tmpl *model.Template) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTemplate(tmpl); err != nil {
		return err
	}

	tmpl.Sender = strings.ToLower(tmpl.Sender)

	query := `
		INSERT INTO templates (
			sender, merchant_name, amount_pattern, date_pattern,
			description_pattern, total_pattern, merchant_pattern,
			success_rate, usage_count, last_used, origin, confidence, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		tmpl.Sender, tmpl.MerchantName, tmpl.Patterns.Amount,
		nullString(tmpl.Patterns.Date), nullString(tmpl.Patterns.Description),
		nullString(tmpl.Patterns.Total), nullString(tmpl.Patterns.Merchant),
		tmpl.SuccessRate, tmpl.UsageCount, nullTime(tmpl.LastUsed),
		string(tmpl.Origin), tmpl.Confidence, tmpl.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get template ID: %w", err)
	}

	tmpl.ID = id
	tmpl.CreatedAt = time.Now()
	tmpl.UpdatedAt = time.Now()

	for _, sample := range tmpl.Samples {
		if err := s.AddTemplateSample(ctx, id, sample); err != nil {
			return err
		}
	}

	return nil
}

// GetTemplate retrieves a template by ID, including its sample history.
func (s *SQLiteStorage) GetTemplate(ctx context.Context, id int64) (*model.Template, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM templates WHERE id = ?`, templateColumns)

	tmpl, err := scanTemplate(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	samples, err := s.getTemplateSamples(ctx, id)
	if err != nil {
		return nil, err
	}
	tmpl.Samples = samples

	return tmpl, nil
}

// GetActiveTemplates retrieves all active templates ordered by descending
// success rate, insertion order within ties.
func (s *SQLiteStorage) GetActiveTemplates(ctx context.Context) ([]model.Template, error) {
	return s.getTemplates(ctx, true)
}

// GetAllTemplates retrieves every template regardless of active flag.
func (s *SQLiteStorage) GetAllTemplates(ctx context.Context) ([]model.Template, error) {
	return s.getTemplates(ctx, false)
}

func (s *SQLiteStorage) getTemplates(ctx context.Context, activeOnly bool) ([]model.Template, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM templates`, templateColumns)
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY success_rate DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var templates []model.Template
	for rows.Next() {
		tmpl, scanErr := scanTemplate(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan template: %w", scanErr)
		}
		templates = append(templates, *tmpl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return templates, nil
}

// RecordTemplateOutcome folds one evaluation outcome into a template's
// statistics. With prior (s, n), a success yields (s*n+1)/(n+1) and a failure
// s*n/(n+1), which stays in [0,1] for any history. The recurrence runs inside
// a single UPDATE so concurrent evaluations never lose an outcome.
func (s *SQLiteStorage) RecordTemplateOutcome(ctx context.Context, id int64, succeeded bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	hit := 0.0
	if succeeded {
		hit = 1.0
	}

	query := `
		UPDATE templates SET
			success_rate = (success_rate * usage_count + ?) / (usage_count + 1),
			usage_count = usage_count + 1,
			last_used = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, hit, id)
	if err != nil {
		return fmt.Errorf("failed to record template outcome: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("template %d: %w", id, common.ErrNotFound)
	}

	return nil
}

// SetTemplateActive toggles a template's active flag. Inactive templates are
// excluded from lookups but retained for history.
func (s *SQLiteStorage) SetTemplateActive(ctx context.Context, id int64, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE templates SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, id)
	if err != nil {
		return fmt.Errorf("failed to update template active flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("template %d: %w", id, common.ErrNotFound)
	}

	return nil
}

// AddTemplateSample appends an audit sample, trimming history to the bound.
func (s *SQLiteStorage) AddTemplateSample(ctx context.Context, id int64, sample model.Sample) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	extracted, err := json.Marshal(sample.Extracted)
	if err != nil {
		return fmt.Errorf("failed to marshal sample fields: %w", err)
	}

	timestamp := sample.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO template_samples (template_id, content, extracted, created_at) VALUES (?, ?, ?, ?)`,
		id, sample.Content, string(extracted), timestamp)
	if err != nil {
		return fmt.Errorf("failed to add template sample: %w", err)
	}

	// Keep only the newest samples.
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM template_samples
		WHERE template_id = ? AND id NOT IN (
			SELECT id FROM template_samples
			WHERE template_id = ?
			ORDER BY id DESC
			LIMIT ?
		)`, id, id, maxSamplesPerTemplate)
	if err != nil {
		return fmt.Errorf("failed to trim template samples: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) getTemplateSamples(ctx context.Context, id int64) ([]model.Sample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content, extracted, created_at FROM template_samples WHERE template_id = ? ORDER BY id DESC`,
		id)
	if err != nil {
		return nil, fmt.Errorf("failed to query template samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var samples []model.Sample
	for rows.Next() {
		var sample model.Sample
		var extracted string
		if err := rows.Scan(&sample.Content, &extracted, &sample.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan template sample: %w", err)
		}
		if err := json.Unmarshal([]byte(extracted), &sample.Extracted); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sample fields: %w", err)
		}
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template samples: %w", err)
	}

	return samples, nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanTemplate.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*model.Template, error) {
	var tmpl model.Template
	var datePattern, descPattern, totalPattern, merchantPattern sql.NullString
	var lastUsed sql.NullTime
	var origin string

	err := row.Scan(
		&tmpl.ID, &tmpl.Sender, &tmpl.MerchantName, &tmpl.Patterns.Amount,
		&datePattern, &descPattern, &totalPattern, &merchantPattern,
		&tmpl.SuccessRate, &tmpl.UsageCount, &lastUsed, &origin,
		&tmpl.Confidence, &tmpl.IsActive, &tmpl.CreatedAt, &tmpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tmpl.Patterns.Date = datePattern.String
	tmpl.Patterns.Description = descPattern.String
	tmpl.Patterns.Total = totalPattern.String
	tmpl.Patterns.Merchant = merchantPattern.String
	if lastUsed.Valid {
		tmpl.LastUsed = lastUsed.Time
	}
	tmpl.Origin = model.TemplateOrigin(origin)

	return &tmpl, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
