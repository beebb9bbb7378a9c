package vector

import (
	"context"
	"sort"
	"sync"

	"github.com/llm-arbiter/backend/internal/semantic"
)

type memoryItem struct {
	sessionID string
	doc       Document
	embedding []float32
}

// Memory is an in-process index used in tests and as the fallback when
// no vector database is configured. Embeddings come from the provided
// embedder, degrading to the deterministic local vectorizer.
type Memory struct {
	embedder semantic.Embedder

	mu    sync.RWMutex
	items []memoryItem
}

func NewMemory(embedder semantic.Embedder) *Memory {
	return &Memory{embedder: embedder}
}

func (m *Memory) AddDocuments(ctx context.Context, sessionID string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	embeddings := semantic.EmbedOrFallback(ctx, texts, m.embedder)

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range docs {
		m.items = append(m.items, memoryItem{
			sessionID: sessionID,
			doc:       d,
			embedding: embeddings[i],
		})
	}
	return nil
}

func (m *Memory) SearchSimilar(ctx context.Context, query string, topK int) ([]Match, error) {
	queryVec := semantic.EmbedOrFallback(ctx, []string{query}, m.embedder)[0]

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.items))
	for _, item := range m.items {
		matches = append(matches, Match{
			Score:     semantic.Cosine(queryVec, item.embedding),
			SessionID: item.sessionID,
			Document:  item.doc,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}
