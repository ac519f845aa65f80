// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
)

// Common application errors.
var (
	// Extraction errors.
	ErrNoAmountFound     = errors.New("no amount found")
	ErrGenerativeService = errors.New("generative service failed")
	ErrTemplateInvalid   = errors.New("template pattern invalid")

	// Store errors.
	ErrNotFound  = errors.New("not found")
	ErrStoreLoad = errors.New("failed to load templates")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)
