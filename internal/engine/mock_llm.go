package engine

import (
	"context"
	"sync"

	"github.com/calliehart/parsimony/internal/model"
)

// MockExtractor is a test double for service.GenerativeExtractor.
type MockExtractor struct {
	mu sync.Mutex

	// EmailResult and TextResult are returned by the respective methods
	// unless the matching error is set.
	EmailResult model.ExtractionResult
	TextResult  model.ExtractionResult
	EmailErr    error
	TextErr     error

	emailCalls []string
	textCalls  []string
}

// ExtractFromEmail records the call and returns the configured result.
func (m *MockExtractor) ExtractFromEmail(_ context.Context, content string) (model.ExtractionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailCalls = append(m.emailCalls, content)
	if m.EmailErr != nil {
		return model.ExtractionResult{}, m.EmailErr
	}
	return m.EmailResult, nil
}

// ExtractFromText records the call and returns the configured result.
func (m *MockExtractor) ExtractFromText(_ context.Context, text string) (model.ExtractionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textCalls = append(m.textCalls, text)
	if m.TextErr != nil {
		return model.ExtractionResult{}, m.TextErr
	}
	return m.TextResult, nil
}

// EmailCallCount reports how many times ExtractFromEmail was invoked.
func (m *MockExtractor) EmailCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.emailCalls)
}

// TextCallCount reports how many times ExtractFromText was invoked.
func (m *MockExtractor) TextCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.textCalls)
}
