package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/calliehart/parsimony/internal/common"
	"github.com/calliehart/parsimony/internal/model"
	"github.com/calliehart/parsimony/internal/service"
)

// Store owns the in-memory template index over a durable backing store.
// Refresh rebuilds the whole index and swaps it atomically, so concurrent
// lookups always observe a complete index.
type Store struct {
	backing service.TemplateStore
	index   atomic.Pointer[senderIndex]
}

// indexEntry groups a sender's templates, preserving load order.
type indexEntry struct {
	sender    string
	templates []*CompiledTemplate
}

type senderIndex struct {
	bySender map[string]int
	entries  []indexEntry
}

// NewStore creates a pattern store over the given backing store. The index
// starts empty; call Refresh to populate it.
func NewStore(backing service.TemplateStore) *Store {
	s := &Store{backing: backing}
	s.index.Store(&senderIndex{bySender: make(map[string]int)})
	return s
}

// Refresh reloads all active templates from the backing store and atomically
// swaps the in-memory index. On load failure the previous index stays in
// place and the engine keeps serving from it.
func (s *Store) Refresh(ctx context.Context) error {
	templates, err := s.backing.GetActiveTemplates(ctx)
	if err != nil {
		common.LogError(err, "Failed to refresh template index, keeping previous index", nil)
		return fmt.Errorf("%w: %v", common.ErrStoreLoad, err)
	}

	idx := &senderIndex{bySender: make(map[string]int)}
	loaded := 0
	for _, tmpl := range templates {
		compiled, compileErr := Compile(tmpl)
		if compileErr != nil {
			slog.Warn("Skipping template with invalid pattern",
				"template_id", tmpl.ID,
				"sender", tmpl.Sender,
				"error", compileErr)
			continue
		}

		sender := strings.ToLower(tmpl.Sender)
		pos, ok := idx.bySender[sender]
		if !ok {
			pos = len(idx.entries)
			idx.bySender[sender] = pos
			idx.entries = append(idx.entries, indexEntry{sender: sender})
		}
		idx.entries[pos].templates = append(idx.entries[pos].templates, compiled)
		loaded++
	}

	s.index.Store(idx)

	slog.Info("Loaded email templates", "count", loaded, "senders", len(idx.entries))
	return nil
}

// Lookup returns the active templates applicable to a sender: exact-sender
// matches first, then templates whose stored sender shares the input's mail
// domain. A sender without an @ yields no candidates.
func (s *Store) Lookup(sender string) []*CompiledTemplate {
	at := strings.Index(sender, "@")
	if at < 0 {
		return nil
	}

	lowered := strings.ToLower(sender)
	domain := lowered[at+1:]
	idx := s.index.Load()

	var candidates []*CompiledTemplate
	if pos, ok := idx.bySender[lowered]; ok {
		candidates = append(candidates, idx.entries[pos].templates...)
	}

	if domain == "" {
		return candidates
	}

	for _, entry := range idx.entries {
		if entry.sender == lowered {
			continue
		}
		if strings.Contains(entry.sender, domain) {
			candidates = append(candidates, entry.templates...)
		}
	}

	return candidates
}

// Insert persists a new template. It becomes visible to Lookup after the
// next Refresh.
func (s *Store) Insert(ctx context.Context, tmpl *model.Template) error {
	if err := s.backing.CreateTemplate(ctx, tmpl); err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}
	return nil
}

// RecordOutcome folds an evaluation outcome into a template's statistics.
func (s *Store) RecordOutcome(ctx context.Context, id int64, succeeded bool) error {
	return s.backing.RecordTemplateOutcome(ctx, id, succeeded)
}
