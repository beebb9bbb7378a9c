// Package milvus backs the claim index with a Milvus collection.
package milvus

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/llm-arbiter/backend/internal/semantic"
	"github.com/llm-arbiter/backend/internal/vector"
	"github.com/llm-arbiter/backend/pkg/logger"
)

type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
	embedder       semantic.Embedder
}

func NewClient(endpoint, collectionName string, vectorDim int, embedder semantic.Embedder) (*Client, error) {
	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	if vectorDim == 0 {
		vectorDim = semantic.FallbackDim
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
		zap.Int("dim", vectorDim),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
		embedder:       embedder,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) EnsureCollection(ctx context.Context) error {
	has, err := c.client.HasCollection(ctx, c.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: c.collectionName,
		Description:    "Per-session claim texts accumulated across rounds",
		Fields: []*entity.Field{
			{
				Name:       "doc_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "session_id",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "text",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "4096"},
			},
			{
				Name:       "model_id",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "128"},
			},
			{
				Name:     "round",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:       "role",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "32"},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", c.vectorDim),
				},
			},
			{
				Name:     "timestamp",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	if err := c.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.IP, 1024)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := c.client.CreateIndex(ctx, c.collectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := c.client.LoadCollection(ctx, c.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", c.collectionName))
	return nil
}

func (c *Client) AddDocuments(ctx context.Context, sessionID string, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	embeddings := semantic.EmbedOrFallback(ctx, texts, c.embedder)

	docIDs := make([]string, len(docs))
	sessionIDs := make([]string, len(docs))
	modelIDs := make([]string, len(docs))
	rounds := make([]int64, len(docs))
	roles := make([]string, len(docs))
	timestamps := make([]int64, len(docs))

	now := time.Now().Unix()
	for i, d := range docs {
		docIDs[i] = uuid.New().String()
		sessionIDs[i] = sessionID
		modelIDs[i] = d.Tags["model_id"]
		roles[i] = d.Tags["role"]
		timestamps[i] = now
		if r, err := strconv.ParseInt(d.Tags["round"], 10, 64); err == nil {
			rounds[i] = r
		}
	}

	_, err := c.client.Insert(
		ctx,
		c.collectionName,
		"",
		entity.NewColumnVarChar("doc_id", docIDs),
		entity.NewColumnVarChar("session_id", sessionIDs),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("model_id", modelIDs),
		entity.NewColumnInt64("round", rounds),
		entity.NewColumnVarChar("role", roles),
		entity.NewColumnFloatVector("embedding", c.vectorDim, embeddings),
		entity.NewColumnInt64("timestamp", timestamps),
	)
	if err != nil {
		return fmt.Errorf("failed to insert documents: %w", err)
	}

	if err := c.client.Flush(ctx, c.collectionName, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Debug("Documents indexed",
		zap.String("session_id", sessionID),
		zap.Int("count", len(docs)),
	)
	return nil
}

func (c *Client) SearchSimilar(ctx context.Context, query string, topK int) ([]vector.Match, error) {
	queryVec := semantic.EmbedOrFallback(ctx, []string{query}, c.embedder)[0]

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := c.client.Search(
		ctx,
		c.collectionName,
		[]string{},
		"",
		[]string{"session_id", "text", "model_id", "round", "role"},
		[]entity.Vector{entity.FloatVector(queryVec)},
		"embedding",
		entity.IP,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	matches := make([]vector.Match, 0)
	for _, sr := range searchResult {
		sessionCol := sr.Fields.GetColumn("session_id")
		textCol := sr.Fields.GetColumn("text")
		modelCol := sr.Fields.GetColumn("model_id")
		roundCol := sr.Fields.GetColumn("round")
		roleCol := sr.Fields.GetColumn("role")
		if sessionCol == nil || textCol == nil || modelCol == nil || roundCol == nil || roleCol == nil {
			return nil, fmt.Errorf("search result missing expected columns")
		}

		for i := 0; i < sr.ResultCount; i++ {
			sid, _ := sessionCol.Get(i)
			text, _ := textCol.Get(i)
			modelID, _ := modelCol.Get(i)
			round, _ := roundCol.Get(i)
			role, _ := roleCol.Get(i)

			sessionID, okSession := sid.(string)
			textValue, okText := text.(string)
			if !okSession || !okText {
				logger.Warn("Skipping search hit with unexpected column type",
					zap.Int("index", i))
				continue
			}

			tags := map[string]string{}
			if s, ok := modelID.(string); ok && s != "" {
				tags["model_id"] = s
			}
			if r, ok := round.(int64); ok {
				tags["round"] = strconv.FormatInt(r, 10)
			}
			if s, ok := role.(string); ok && s != "" {
				tags["role"] = s
			}

			matches = append(matches, vector.Match{
				Score:     float64(sr.Scores[i]),
				SessionID: sessionID,
				Document: vector.Document{
					Text: textValue,
					Tags: tags,
				},
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(matches)),
	)
	return matches, nil
}
