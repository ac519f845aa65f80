// Package pattern implements the deterministic extraction engine: a
// sender-keyed template index, per-candidate field extraction with confidence
// scoring, and synthesis of new templates from generative results.
package pattern

import (
	"fmt"
	"regexp"

	"github.com/calliehart/parsimony/internal/common"
	"github.com/calliehart/parsimony/internal/model"
)

// maxPatternLength caps stored pattern expressions. Anything longer is
// rejected at load time rather than compiled.
const maxPatternLength = 1024

// CompiledTemplate pairs a template with its immutable compiled field
// patterns. Compilation happens once at load, never per request.
type CompiledTemplate struct {
	Amount      *regexp.Regexp
	Date        *regexp.Regexp
	Description *regexp.Regexp
	Template    model.Template
}

// Compile validates and compiles a template's field patterns. The amount
// pattern is mandatory; any invalid pattern rejects the whole template.
// Patterns apply case-insensitively.
func Compile(tmpl model.Template) (*CompiledTemplate, error) {
	amount, err := compileField(tmpl.Patterns.Amount, "amount")
	if err != nil {
		return nil, err
	}
	if amount == nil {
		return nil, fmt.Errorf("%w: template %d has no amount pattern", common.ErrTemplateInvalid, tmpl.ID)
	}

	date, err := compileField(tmpl.Patterns.Date, "date")
	if err != nil {
		return nil, err
	}

	description, err := compileField(tmpl.Patterns.Description, "description")
	if err != nil {
		return nil, err
	}

	return &CompiledTemplate{
		Template:    tmpl,
		Amount:      amount,
		Date:        date,
		Description: description,
	}, nil
}

func compileField(expr, field string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	if len(expr) > maxPatternLength {
		return nil, fmt.Errorf("%w: %s pattern exceeds %d characters", common.ErrTemplateInvalid, field, maxPatternLength)
	}

	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s pattern: %v", common.ErrTemplateInvalid, field, err)
	}
	return re, nil
}
