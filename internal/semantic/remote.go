package semantic

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/llm-arbiter/backend/pkg/circuitbreaker"
	"github.com/llm-arbiter/backend/pkg/config"
	"github.com/llm-arbiter/backend/pkg/logger"
	"github.com/llm-arbiter/backend/pkg/retry"
	"github.com/llm-arbiter/backend/pkg/utils"
)

// EmbeddingCache stores vectors keyed by text hash. Implemented by the
// redis cache client; nil disables caching.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

const embeddingCacheTTL = 24 * time.Hour

// RemoteEmbedder calls the embedding API in batches, consulting the
// cache first. Failures surface as errors so callers can degrade to the
// local vectorizer.
type RemoteEmbedder struct {
	client      *openai.Client
	model       string
	cache       EmbeddingCache
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewRemoteEmbedder(cfg config.OpenAIConfig, cache EmbeddingCache) *RemoteEmbedder {
	cb := circuitbreaker.NewCircuitBreaker("embeddings", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	return &RemoteEmbedder{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.EmbeddingModel,
		cache:  cache,
		cb:     cb,
		retryConfig: retry.Config{
			MaxAttempts:    3,
			InitialDelay:   500 * time.Millisecond,
			MaxDelay:       5 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.1,
			Logger:         logger.GetLogger(),
		},
	}
}

func (e *RemoteEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if cached, ok := e.cacheGet(ctx, text); ok {
			vectors[i] = cached
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	fetched, err := e.fetch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fetched) != len(missing) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(fetched), len(missing))
	}

	for j, vec := range fetched {
		vectors[missingIdx[j]] = vec
		e.cacheSet(ctx, missing[j], vec)
	}

	return vectors, nil
}

func (e *RemoteEmbedder) fetch(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	err := e.cb.Execute(ctx, func() error {
		return retry.Do(ctx, e.retryConfig, func() error {
			resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: texts,
				Model: openai.EmbeddingModel(e.model),
			})
			if err != nil {
				return fmt.Errorf("failed to generate embeddings: %w", err)
			}
			if len(resp.Data) != len(texts) {
				return fmt.Errorf("embedding response has %d entries for %d inputs", len(resp.Data), len(texts))
			}

			embeddings = make([][]float32, len(resp.Data))
			for i, d := range resp.Data {
				vec := make([]float32, len(d.Embedding))
				copy(vec, d.Embedding)
				embeddings[i] = vec
			}
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	logger.Debug("Embeddings generated", zap.Int("count", len(embeddings)))
	return embeddings, nil
}

func (e *RemoteEmbedder) cacheGet(ctx context.Context, text string) ([]float32, bool) {
	if e.cache == nil {
		return nil, false
	}
	vec, ok, err := e.cache.GetEmbedding(ctx, utils.HashString(text))
	if err != nil {
		logger.Warn("Embedding cache lookup failed", zap.Error(err))
		return nil, false
	}
	return vec, ok
}

func (e *RemoteEmbedder) cacheSet(ctx context.Context, text string, vec []float32) {
	if e.cache == nil {
		return
	}
	if err := e.cache.SetEmbedding(ctx, utils.HashString(text), vec, embeddingCacheTTL); err != nil {
		logger.Warn("Embedding cache store failed", zap.Error(err))
	}
}
