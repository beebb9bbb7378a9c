// Package vector defines the append-only claim index the controller
// persists round output into. Entries are never updated or deleted by
// this service.
package vector

import "context"

// Document is one indexed text with its tags (round, model, role).
type Document struct {
	Text string            `json:"text"`
	Tags map[string]string `json:"tags"`
}

// Match is one search hit; results are ordered by descending score.
type Match struct {
	Score     float64  `json:"score"`
	SessionID string   `json:"session_id"`
	Document  Document `json:"document"`
}

type Index interface {
	AddDocuments(ctx context.Context, sessionID string, docs []Document) error
	SearchSimilar(ctx context.Context, query string, topK int) ([]Match, error)
}
