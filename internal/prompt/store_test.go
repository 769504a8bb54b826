package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantomftfw/bankParse/internal/engineerrors"
	"github.com/fantomftfw/bankParse/internal/model"
)

func TestMemoryStore_ResolvesIssuerSpecificOverDefault(t *testing.T) {
	store := NewMemoryStore()
	store.Upsert(model.Prompt{ID: "default", IssuerTag: "", IsActive: true, Text: "default ${textContent}"})
	store.Upsert(model.Prompt{ID: "icici", IssuerTag: "ICICI", IsActive: true, Text: "icici ${textContent}"})

	got, err := store.ResolvePrompt(context.Background(), "ICICI")
	require.NoError(t, err)
	assert.Equal(t, "icici", got.ID)
}

func TestMemoryStore_FallsBackToDefaultWhenIssuerUnknown(t *testing.T) {
	store := NewMemoryStore()
	store.Upsert(model.Prompt{ID: "default", IssuerTag: "", IsActive: true, Text: "default"})

	got, err := store.ResolvePrompt(context.Background(), "UNKNOWN_BANK")
	require.NoError(t, err)
	assert.Equal(t, "default", got.ID)
}

func TestMemoryStore_NoPromptConfigured(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.ResolvePrompt(context.Background(), "")
	require.Error(t, err)
	assert.True(t, engineerrors.IsKind(err, engineerrors.NoPromptConfigured))
}

func TestExpand_SubstitutesTextContent(t *testing.T) {
	got := Expand("before ${textContent} after", "PAGE-TEXT")
	assert.Equal(t, "before PAGE-TEXT after", got)
}

type countingStore struct {
	resolveCalls int
	prompt       model.Prompt
}

func (c *countingStore) ResolvePrompt(ctx context.Context, issuerTag string) (model.Prompt, error) {
	c.resolveCalls++
	return c.prompt, nil
}

func TestRunCache_MemoizesPerIssuer(t *testing.T) {
	backing := &countingStore{prompt: model.Prompt{ID: "p1"}}
	cache := NewRunCache(backing)

	_, _ = cache.ResolvePrompt(context.Background(), "ICICI")
	_, _ = cache.ResolvePrompt(context.Background(), "ICICI")
	_, _ = cache.ResolvePrompt(context.Background(), "ICICI")

	assert.Equal(t, 1, backing.resolveCalls)
}
