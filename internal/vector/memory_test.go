package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySearchOrdersByScore(t *testing.T) {
	index := NewMemory(nil)
	ctx := context.Background()

	err := index.AddDocuments(ctx, "s1", []Document{
		{Text: "Cats hunt mice", Tags: map[string]string{"role": "question"}},
		{Text: "Bananas are yellow fruits", Tags: map[string]string{"model_id": "alpha"}},
		{Text: "Felines chase rodents", Tags: map[string]string{"model_id": "beta"}},
	})
	require.NoError(t, err)

	matches, err := index.SearchSimilar(ctx, "Cats hunt mice", 10)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// The exact text and its synonym-folded paraphrase outrank the
	// unrelated claim.
	assert.Equal(t, "Cats hunt mice", matches[0].Document.Text)
	assert.Equal(t, "Felines chase rodents", matches[1].Document.Text)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Greater(t, matches[0].Score, matches[2].Score)
	assert.Equal(t, "s1", matches[0].SessionID)
}

func TestMemorySearchTopK(t *testing.T) {
	index := NewMemory(nil)
	ctx := context.Background()

	err := index.AddDocuments(ctx, "s1", []Document{
		{Text: "one"}, {Text: "two"}, {Text: "three"},
	})
	require.NoError(t, err)

	matches, err := index.SearchSimilar(ctx, "one", 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestMemoryEmptyIndex(t *testing.T) {
	index := NewMemory(nil)

	matches, err := index.SearchSimilar(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryAddNothing(t *testing.T) {
	index := NewMemory(nil)
	require.NoError(t, index.AddDocuments(context.Background(), "s1", nil))
}
