// Package engine orchestrates expense extraction: deterministic pattern
// matching first, generative fallback when patterns are not trusted, and a
// background learning loop that turns high-confidence generative results
// into new patterns.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/calliehart/parsimony/internal/model"
	"github.com/calliehart/parsimony/internal/pattern"
	"github.com/calliehart/parsimony/internal/service"
)

// Config controls the engine's decision thresholds and learn queue.
type Config struct {
	// TrustThreshold is the minimum deterministic confidence at which the
	// pattern result is returned without consulting the generative service.
	TrustThreshold float64
	// LearnThreshold is the minimum generative confidence at which a result
	// is queued for pattern learning.
	LearnThreshold float64
	// LearnQueueSize bounds the learn queue; a full queue drops requests.
	LearnQueueSize int
	// LearnRetries is how many times a failed learn attempt is retried.
	LearnRetries int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		TrustThreshold: 0.8,
		LearnThreshold: 0.9,
		LearnQueueSize: 32,
		LearnRetries:   2,
	}
}

type learnRequest struct {
	content string
	sender  string
	result  model.ExtractionResult
}

// Engine resolves expense content to extraction results.
type Engine struct {
	store         *pattern.Store
	deterministic *pattern.Extractor
	learner       *pattern.Learner
	generative    service.GenerativeExtractor
	logger        *slog.Logger
	config        Config

	learnCh chan learnRequest
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an engine and starts its background learn worker.
func New(store *pattern.Store, generative service.GenerativeExtractor, config Config, logger *slog.Logger) *Engine {
	if config.TrustThreshold == 0 {
		config.TrustThreshold = 0.8
	}
	if config.LearnThreshold == 0 {
		config.LearnThreshold = 0.9
	}
	if config.LearnQueueSize <= 0 {
		config.LearnQueueSize = 32
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		store:         store,
		deterministic: pattern.NewExtractor(store),
		learner:       pattern.NewLearner(store),
		generative:    generative,
		logger:        logger,
		config:        config,
		learnCh:       make(chan learnRequest, config.LearnQueueSize),
		cancel:        cancel,
	}

	e.wg.Add(1)
	go e.learnWorker(ctx)

	return e
}

// Resolve extracts an expense from sender-attributed email content. The
// deterministic path wins when its confidence exceeds the trust threshold;
// otherwise the generative service decides, and sufficiently confident
// generative results are queued for learning.
func (e *Engine) Resolve(ctx context.Context, content, sender string) (model.ExtractionResult, error) {
	deterministic := e.deterministic.Extract(ctx, content, sender)

	if deterministic.Confidence > e.config.TrustThreshold {
		e.logger.Debug("pattern extraction trusted",
			"sender", sender,
			"confidence", deterministic.Confidence)
		return deterministic, nil
	}

	generative, err := e.generative.ExtractFromEmail(ctx, content)
	if err != nil {
		return model.ExtractionResult{}, err
	}

	if generative.Confidence > e.config.LearnThreshold {
		e.enqueueLearn(content, sender, generative)
	}

	return generative, nil
}

// ResolveFreeText extracts an expense from free-form text. There is no
// sender to match patterns against, so this always uses the generative
// service and never learns.
func (e *Engine) ResolveFreeText(ctx context.Context, text string) (model.ExtractionResult, error) {
	return e.generative.ExtractFromText(ctx, text)
}

// enqueueLearn queues a learn request without blocking. A full queue means
// the system is learning faster than it can write; dropping is acceptable
// because learning is an optimization, not a correctness requirement.
func (e *Engine) enqueueLearn(content, sender string, result model.ExtractionResult) {
	select {
	case e.learnCh <- learnRequest{content: content, sender: sender, result: result}:
	default:
		e.logger.Warn("learn queue full, dropping request", "sender", sender)
	}
}

// learnWorker drains the learn queue. Learning errors are logged and never
// surfaced to callers.
func (e *Engine) learnWorker(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-e.learnCh:
			if !ok {
				return
			}
			e.processLearn(ctx, req)
		}
	}
}

func (e *Engine) processLearn(ctx context.Context, req learnRequest) {
	var lastErr error
	for attempt := 0; attempt <= e.config.LearnRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		tmpl, err := e.learner.Learn(ctx, req.content, req.sender, req.result)
		if err == nil {
			if tmpl != nil {
				e.logger.Info("learned new template",
					"sender", req.sender,
					"merchant", tmpl.MerchantName)
			}
			return
		}
		lastErr = err
	}

	e.logger.Error("failed to learn template",
		"sender", req.sender,
		"error", lastErr)
}

// Close stops the learn worker and waits for in-flight learning to finish.
func (e *Engine) Close() error {
	e.cancel()
	e.wg.Wait()
	return nil
}
