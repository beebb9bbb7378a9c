package aggregate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-arbiter/backend/internal/models"
)

func parsedResponse(modelID string, texts ...string) models.ModelResponse {
	points := make([]models.SummaryPoint, len(texts))
	for i, text := range texts {
		points[i] = models.SummaryPoint{ID: "p" + string(rune('1'+i)), Text: text}
	}
	return models.ModelResponse{
		ModelID: modelID,
		Parsed:  &models.StructuredAnswer{SummaryPoints: points},
	}
}

func TestAggregateConfirmsAgreeingClaims(t *testing.T) {
	agg := New(nil, nil)

	report := agg.Aggregate(context.Background(), []models.ModelResponse{
		parsedResponse("alpha", "Cats are mammals"),
		parsedResponse("beta", "Cats are mammals"),
	})

	require.Len(t, report.Confirmed, 1)
	assert.Empty(t, report.Contradictions)
	assert.Empty(t, report.Followups)
	assert.Equal(t, []string{"alpha", "beta"}, report.Confirmed[0].Models)
	assert.Equal(t, "alpha_p1|beta_p1", report.Confirmed[0].ClusterID)
	assert.Equal(t, models.RecommendContinueRounds, report.Recommendation)
}

func TestAggregateFlagsContradiction(t *testing.T) {
	agg := New(nil, nil)

	report := agg.Aggregate(context.Background(), []models.ModelResponse{
		parsedResponse("alpha", "The sky is blue"),
		parsedResponse("beta", "The sky is not blue"),
	})

	require.Len(t, report.Contradictions, 1)
	assert.Empty(t, report.Confirmed)
	require.Len(t, report.Followups, 1)
	assert.Contains(t, report.Followups[0], "Clarify conflict for cluster")
	assert.Equal(t, models.RecommendRunRAG, report.Recommendation)

	contradiction := report.Contradictions[0]
	assert.Len(t, contradiction.Points, 2)
	assert.Equal(t, "Heuristic NLI detected contradiction", contradiction.Reason)
}

func TestAggregateCrossEvalSkipsSameModel(t *testing.T) {
	agg := New(nil, nil)

	report := agg.Aggregate(context.Background(), []models.ModelResponse{
		parsedResponse("alpha", "Bananas are yellow", "Bananas are yellow fruits"),
		parsedResponse("beta", "Ripe bananas are yellow"),
	})

	for _, ce := range report.CrossEval {
		assert.NotEqual(t, ce.A.ModelID, ce.B.ModelID, "cross-eval only compares different models")
		assert.Equal(t, "medium", ce.Confidence)
	}
	// Same-model pairs still show up in the entailment matrix.
	sameModel := 0
	for _, r := range report.NLI {
		if r.A.ModelID == r.B.ModelID {
			sameModel++
		}
	}
	assert.Greater(t, sameModel, 0)
}

func TestAggregateEmptyInput(t *testing.T) {
	agg := New(nil, nil)

	report := agg.Aggregate(context.Background(), nil)

	assert.NotNil(t, report.Confirmed)
	assert.Empty(t, report.Confirmed)
	assert.NotNil(t, report.Contradictions)
	assert.Empty(t, report.Contradictions)
	assert.NotNil(t, report.Followups)
	assert.Equal(t, models.RecommendContinueRounds, report.Recommendation)
}

func TestAggregateIgnoresFailedResponses(t *testing.T) {
	agg := New(nil, nil)

	report := agg.Aggregate(context.Background(), []models.ModelResponse{
		parsedResponse("alpha", "Cats are mammals"),
		{ModelID: "beta", Error: "model call timed out after 3m0s"},
		{ModelID: "gamma", Raw: "not json", ParseError: "invalid JSON"},
	})

	require.Len(t, report.Confirmed, 1)
	assert.Equal(t, []string{"alpha"}, report.Confirmed[0].Models)
}

func TestJudgementMapping(t *testing.T) {
	assert.Equal(t, "agree", judgement(models.LabelEntailment))
	assert.Equal(t, "disagree", judgement(models.LabelContradiction))
	assert.Equal(t, "uncertain", judgement(models.LabelNeutral))
}
