package aggregate

import (
	"context"
	"fmt"

	"github.com/llm-arbiter/backend/internal/models"
)

// crossEvaluate judges within-cluster pairs whose points come from
// different models, mapping the three-way entailment label onto an
// agree/disagree/uncertain judgement.
func (a *Aggregator) crossEvaluate(ctx context.Context, clusters [][]string, lookup map[string]models.Point) []models.CrossEvalResult {
	var results []models.CrossEvalResult
	for _, cluster := range clusters {
		cid := clusterID(cluster)
		for i := 0; i < len(cluster); i++ {
			for j := i + 1; j < len(cluster); j++ {
				pa, okA := lookup[cluster[i]]
				pb, okB := lookup[cluster[j]]
				if !okA || !okB {
					continue
				}
				if pa.ModelID == pb.ModelID {
					continue
				}

				label := a.classifier.Classify(ctx, pa.Text, pb.Text)
				results = append(results, models.CrossEvalResult{
					ClusterID:  cid,
					A:          models.PointRef{ID: pa.ID, ModelID: pa.ModelID},
					B:          models.PointRef{ID: pb.ID, ModelID: pb.ModelID},
					Judgement:  judgement(label),
					Reason:     fmt.Sprintf("Heuristic NLI -> %s", label),
					Confidence: "medium",
				})
			}
		}
	}
	return results
}

func judgement(label models.Label) string {
	switch label {
	case models.LabelContradiction:
		return "disagree"
	case models.LabelEntailment:
		return "agree"
	default:
		return "uncertain"
	}
}
