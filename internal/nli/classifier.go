// Package nli classifies claim pairs as entailment, neutral or
// contradiction. The remote zero-shot path is preferred; any failure
// degrades to a deterministic token heuristic so aggregation can never
// fail on classification.
package nli

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/llm-arbiter/backend/internal/models"
	"github.com/llm-arbiter/backend/pkg/logger"
)

var negationWords = map[string]struct{}{
	"not":     {},
	"no":      {},
	"never":   {},
	"none":    {},
	"nobody":  {},
	"nothing": {},
	"n't":     {},
}

var antonymPairs = [][2]string{
	{"true", "false"},
	{"yes", "no"},
	{"up", "down"},
	{"increase", "decrease"},
	{"good", "bad"},
}

// Classifier prefers the remote client when present and falls back to
// the heuristic on any remote failure.
type Classifier struct {
	remote *RemoteClient
}

func NewClassifier(remote *RemoteClient) *Classifier {
	return &Classifier{remote: remote}
}

func (c *Classifier) Classify(ctx context.Context, a, b string) models.Label {
	if c.remote != nil {
		label, err := c.remote.Classify(ctx, a, b)
		if err == nil {
			return label
		}
		logger.Debug("Remote NLI failed, using heuristic", zap.Error(err))
	}
	return HeuristicLabel(a, b)
}

// HeuristicLabel applies the fallback rules in order: negation on
// exactly one side, then a split antonym pair, then token overlap, else
// neutral. The negation and antonym rules are symmetric under swap.
func HeuristicLabel(a, b string) models.Label {
	ta := normalize(a)
	tb := normalize(b)

	negA := hasNegation(ta)
	negB := hasNegation(tb)
	if negA != negB {
		return models.LabelContradiction
	}

	for _, pair := range antonymPairs {
		x, y := pair[0], pair[1]
		if (contains(ta, x) && contains(tb, y)) || (contains(ta, y) && contains(tb, x)) {
			return models.LabelContradiction
		}
	}

	for tok := range ta {
		if contains(tb, tok) {
			return models.LabelEntailment
		}
	}
	return models.LabelNeutral
}

func normalize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	cleaned := strings.ReplaceAll(strings.ToLower(text), ".", " ")
	for _, raw := range strings.Fields(cleaned) {
		tok := strings.Trim(raw, ".,;:!?()[]{}\"'")
		if tok != "" {
			tokens[tok] = struct{}{}
		}
	}
	return tokens
}

func hasNegation(tokens map[string]struct{}) bool {
	for tok := range tokens {
		if _, ok := negationWords[tok]; ok {
			return true
		}
		if strings.HasSuffix(tok, "n't") {
			return true
		}
	}
	return false
}

func contains(set map[string]struct{}, tok string) bool {
	_, ok := set[tok]
	return ok
}
