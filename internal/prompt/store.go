// Package prompt implements the prompt store: prompt-slot resolution
// (issuer-specific, falling back to the default slot) and
// ${textContent} template expansion. It follows this codebase's
// narrow-sub-interface pattern (see extraction.MerchantMappingStore) —
// a store exposing only the one read operation the engine needs, with
// expansion as a plain function. The only backing is an in-memory map;
// there is no Firestore-backed prompt store.
package prompt

import (
	"context"
	"strings"
	"sync"

	"github.com/fantomftfw/bankParse/internal/engineerrors"
	"github.com/fantomftfw/bankParse/internal/model"
)

// Store resolves an active prompt for an issuer tag (falling back to the
// default slot). Expanding it against page text is done by Expand.
type Store interface {
	ResolvePrompt(ctx context.Context, issuerTag string) (model.Prompt, error)
}

// Expand substitutes every ${textContent} marker in text with pageText.
// No other interpolation is performed.
func Expand(text, pageText string) string {
	return strings.ReplaceAll(text, "${textContent}", pageText)
}

// MemoryStore is an in-memory Store keyed by issuer tag, with "" as the
// default slot, mirroring this codebase's sync.RWMutex-guarded map idiom.
type MemoryStore struct {
	mu      sync.RWMutex
	prompts map[string]model.Prompt
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prompts: make(map[string]model.Prompt)}
}

// Upsert inserts or replaces the active prompt for a slot.
func (s *MemoryStore) Upsert(p model.Prompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := p.IssuerTag
	s.prompts[key] = p
}

// ResolvePrompt implements Store.ResolvePrompt.
func (s *MemoryStore) ResolvePrompt(ctx context.Context, issuerTag string) (model.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if issuerTag != "" {
		if p, ok := s.prompts[issuerTag]; ok && p.IsActive {
			return p, nil
		}
	}
	if p, ok := s.prompts[""]; ok && p.IsActive {
		return p, nil
	}
	return model.Prompt{}, engineerrors.New(engineerrors.NoPromptConfigured, "no active default prompt configured")
}

// RunCache wraps a Store with per-run memoization, since the backing
// store may be consulted once per page; it caches the resolved prompt
// for the lifetime of one run.
type RunCache struct {
	backing Store
	mu      sync.Mutex
	cache   map[string]model.Prompt
}

// NewRunCache wraps backing with a fresh per-run cache.
func NewRunCache(backing Store) *RunCache {
	return &RunCache{backing: backing, cache: make(map[string]model.Prompt)}
}

// ResolvePrompt implements Store.ResolvePrompt, consulting the cache first.
func (c *RunCache) ResolvePrompt(ctx context.Context, issuerTag string) (model.Prompt, error) {
	c.mu.Lock()
	if p, ok := c.cache[issuerTag]; ok {
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	p, err := c.backing.ResolvePrompt(ctx, issuerTag)
	if err != nil {
		return model.Prompt{}, err
	}

	c.mu.Lock()
	c.cache[issuerTag] = p
	c.mu.Unlock()
	return p, nil
}
