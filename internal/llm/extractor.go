package llm

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/calliehart/parsimony/internal/category"
	"github.com/calliehart/parsimony/internal/common"
	"github.com/calliehart/parsimony/internal/model"
	"github.com/calliehart/parsimony/internal/service"
)

// defaultConfidence is assumed when the service omits a confidence score.
const defaultConfidence = 0.7

// heuristicConfidence tags results produced by the degraded amount scan.
const heuristicConfidence = 0.5

// heuristicAmount is the permissive currency-like token used when the
// service is unavailable on the free-text path.
var heuristicAmount = regexp.MustCompile(`\$?([0-9]+(?:\.[0-9]{2})?)`)

// Config holds configuration for the generative extractor.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// Extractor implements service.GenerativeExtractor over a provider client,
// adding prompts, retries, rate limiting, caching, and the free-text
// heuristic degradation.
type Extractor struct {
	client      Client
	cache       *resultCache
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// NewExtractor creates a generative extractor for the configured provider.
func NewExtractor(cfg Config, logger *slog.Logger) (*Extractor, error) {
	var client Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		client, err = newOpenAIClient(cfg)
	case "anthropic":
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Extractor{
		client:      client,
		cache:       newResultCache(cfg.CacheTTL),
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}, nil
}

// NewExtractorWithClient wires a pre-built client. Used by tests.
func NewExtractorWithClient(client Client, logger *slog.Logger) *Extractor {
	return &Extractor{
		client:      client,
		cache:       newResultCache(time.Minute),
		logger:      logger,
		retryOpts:   service.RetryOptions{MaxAttempts: 1, InitialDelay: time.Millisecond},
		rateLimiter: newRateLimiter(0),
	}
}

// ExtractFromEmail parses sender-attributed email content. Service failure
// propagates: there is no further fallback on this path.
func (e *Extractor) ExtractFromEmail(ctx context.Context, content string) (model.ExtractionResult, error) {
	key := contentKey(content)
	if result, found := e.cache.get(key); found {
		e.logger.Debug("cache hit for email content")
		return result, nil
	}

	resp, err := e.extract(ctx, buildEmailPrompt(content))
	if err != nil {
		return model.ExtractionResult{}, fmt.Errorf("%w: %v", common.ErrGenerativeService, err)
	}

	result := e.buildResult(resp, "Email purchase", content)
	e.cache.set(key, result)

	e.logger.Info("extracted expense from email",
		"merchant", result.Merchant,
		"amount", result.Amount,
		"confidence", result.Confidence)

	return result, nil
}

// ExtractFromText parses free-form text. On any service failure it degrades
// to a heuristic amount scan before failing.
func (e *Extractor) ExtractFromText(ctx context.Context, text string) (model.ExtractionResult, error) {
	key := contentKey(text)
	if result, found := e.cache.get(key); found {
		e.logger.Debug("cache hit for free text")
		return result, nil
	}

	resp, err := e.extract(ctx, buildFreeTextPrompt(text))
	if err != nil {
		e.logger.Warn("generative extraction failed, trying heuristic scan", "error", err)

		if result, ok := heuristicScan(text); ok {
			return result, nil
		}
		return model.ExtractionResult{}, fmt.Errorf("%w: service unavailable (%v) and no amount token in text",
			common.ErrNoAmountFound, err)
	}

	result := e.buildResult(resp, "Expense", text)
	e.cache.set(key, result)

	return result, nil
}

// extract runs one prompt through the rate limiter and retry loop.
func (e *Extractor) extract(ctx context.Context, prompt string) (ExpenseResponse, error) {
	if err := e.rateLimiter.wait(ctx); err != nil {
		return ExpenseResponse{}, fmt.Errorf("rate limit error: %w", err)
	}

	var resp ExpenseResponse
	err := common.WithRetry(ctx, func() error {
		r, callErr := e.client.ExtractExpense(ctx, prompt)
		if callErr != nil {
			e.logger.Warn("extraction attempt failed", "error", callErr)
			return &common.RetryableError{Err: callErr, Retryable: true}
		}
		resp = r
		return nil
	}, e.retryOpts)

	return resp, err
}

// buildResult applies the output defaults: Unknown Merchant, Other category,
// confidence 0.7, and the current time when the date is absent or malformed.
func (e *Extractor) buildResult(resp ExpenseResponse, defaultDescription, sourceText string) model.ExtractionResult {
	description := strings.TrimSpace(resp.Description)
	if description == "" {
		description = defaultDescription
	}

	merchant := strings.TrimSpace(resp.Merchant)
	if merchant == "" {
		if known := category.MatchMerchant(sourceText); known != "" {
			merchant = known
		} else {
			merchant = "Unknown Merchant"
		}
	}

	cat := model.CategoryOther
	if strings.TrimSpace(resp.Category) != "" {
		cat = model.NormalizeCategory(resp.Category)
	} else {
		cat = category.Predict(sourceText)
	}

	confidence := resp.Confidence
	if confidence == 0 {
		confidence = defaultConfidence
	}

	return model.ExtractionResult{
		Amount:      resp.Amount,
		Description: description,
		Merchant:    merchant,
		Date:        parseResponseDate(resp.Date),
		Category:    cat,
		Confidence:  confidence,
		Origin:      model.OriginGenerative,
	}
}

// parseResponseDate accepts ISO-8601 dates, with or without a time portion.
func parseResponseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now()
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if date, err := time.Parse(layout, s); err == nil {
			return date
		}
	}

	return time.Now()
}

// heuristicScan looks for a currency-like numeric token in raw text and, if
// found, returns a low-confidence result.
func heuristicScan(text string) (model.ExtractionResult, bool) {
	match := heuristicAmount.FindStringSubmatch(text)
	if match == nil {
		return model.ExtractionResult{}, false
	}

	amount, err := decimal.NewFromString(match[1])
	if err != nil || !amount.IsPositive() {
		return model.ExtractionResult{}, false
	}

	merchant := category.MatchMerchant(text)
	if merchant == "" {
		merchant = "Unknown Merchant"
	}

	return model.ExtractionResult{
		Amount:      amount,
		Description: "Parsed Expense",
		Merchant:    merchant,
		Date:        time.Now(),
		Category:    category.Predict(text),
		Confidence:  heuristicConfidence,
		Origin:      model.OriginHeuristic,
	}, true
}

// Close stops background goroutines and cleans up resources.
func (e *Extractor) Close() error {
	if e.cache != nil {
		e.cache.Close()
	}
	if e.rateLimiter != nil {
		e.rateLimiter.Close()
	}
	return nil
}
