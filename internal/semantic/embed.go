package semantic

import (
	"context"

	"go.uber.org/zap"

	"github.com/llm-arbiter/backend/internal/metrics"
	"github.com/llm-arbiter/backend/internal/models"
	"github.com/llm-arbiter/backend/pkg/logger"
)

// Embedder maps texts to fixed-size vectors. Implementations may call a
// remote service; callers always degrade to the local fallback on error.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedPoints returns one vector per point. A nil embedder, an embedder
// error, or a count mismatch all fall back to the deterministic local
// vectorizer so an aggregation pass can never fail on embeddings.
func EmbedPoints(ctx context.Context, points []models.Point, embedder Embedder) [][]float32 {
	texts := make([]string, len(points))
	for i, p := range points {
		texts[i] = p.Text
	}
	return EmbedOrFallback(ctx, texts, embedder)
}

func EmbedOrFallback(ctx context.Context, texts []string, embedder Embedder) [][]float32 {
	if embedder != nil && len(texts) > 0 {
		vectors, err := embedder.EmbedTexts(ctx, texts)
		if err == nil && len(vectors) == len(texts) {
			return vectors
		}
		if err != nil {
			logger.Debug("Remote embedding failed, using local fallback", zap.Error(err))
		}
		metrics.EmbeddingFallbacks.Inc()
	}

	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = Vectorize(t)
	}
	return vectors
}
