// Package aggregate reconciles one round of structured answers into a
// consensus report: extract claims, embed, cluster, classify every
// within-cluster pair, and summarize.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/llm-arbiter/backend/internal/models"
	"github.com/llm-arbiter/backend/internal/nli"
	"github.com/llm-arbiter/backend/internal/semantic"
)

// ClusterThreshold used when clustering is invoked from aggregation.
const ClusterThreshold = 0.5

type Aggregator struct {
	embedder   semantic.Embedder
	classifier *nli.Classifier
}

// New builds an aggregator. embedder may be nil (local fallback only).
func New(embedder semantic.Embedder, classifier *nli.Classifier) *Aggregator {
	if classifier == nil {
		classifier = nli.NewClassifier(nil)
	}
	return &Aggregator{embedder: embedder, classifier: classifier}
}

// Aggregate builds the consensus report for one round's responses.
// It never fails: missing or unparsed responses simply contribute
// nothing, and an empty claim set yields an empty report with
// recommendation continue_rounds.
func (a *Aggregator) Aggregate(ctx context.Context, responses []models.ModelResponse) *models.Report {
	points := semantic.ExtractPoints(responses)
	vectors := semantic.EmbedPoints(ctx, points, a.embedder)
	clusters := semantic.ClusterPoints(points, vectors, ClusterThreshold)

	lookup := make(map[string]models.Point, len(points))
	for _, p := range points {
		lookup[p.ID] = p
	}

	nliResults := a.entailmentMatrix(ctx, clusters, lookup)
	crossResults := a.crossEvaluate(ctx, clusters, lookup)

	return summarize(clusters, nliResults, crossResults, lookup)
}

// entailmentMatrix classifies every unordered pair within each cluster.
// Pairs whose points are missing from the lookup are skipped, never fatal.
func (a *Aggregator) entailmentMatrix(ctx context.Context, clusters [][]string, lookup map[string]models.Point) []models.NLIResult {
	var results []models.NLIResult
	for _, cluster := range clusters {
		cid := clusterID(cluster)
		for i := 0; i < len(cluster); i++ {
			for j := i + 1; j < len(cluster); j++ {
				pa, okA := lookup[cluster[i]]
				pb, okB := lookup[cluster[j]]
				if !okA || !okB {
					continue
				}
				results = append(results, models.NLIResult{
					ClusterID: cid,
					A:         models.PointRef{ID: pa.ID, ModelID: pa.ModelID},
					B:         models.PointRef{ID: pb.ID, ModelID: pb.ModelID},
					Label:     a.classifier.Classify(ctx, pa.Text, pb.Text),
				})
			}
		}
	}
	return results
}

func summarize(clusters [][]string, nliResults []models.NLIResult, crossResults []models.CrossEvalResult, lookup map[string]models.Point) *models.Report {
	contradicted := make(map[string]struct{})
	for _, r := range nliResults {
		if r.Label == models.LabelContradiction {
			contradicted[r.ClusterID] = struct{}{}
		}
	}

	report := &models.Report{
		Confirmed:      []models.ConfirmedCluster{},
		Contradictions: []models.Contradiction{},
		Followups:      []string{},
		CrossEval:      crossResults,
		NLI:            nliResults,
	}

	for _, cluster := range clusters {
		cid := clusterID(cluster)

		var memberPoints []models.Point
		var texts []string
		modelSet := make(map[string]struct{})
		for _, pid := range cluster {
			p, ok := lookup[pid]
			if !ok {
				continue
			}
			memberPoints = append(memberPoints, p)
			texts = append(texts, p.Text)
			modelSet[p.ModelID] = struct{}{}
		}

		if _, hasConflict := contradicted[cid]; hasConflict {
			report.Contradictions = append(report.Contradictions, models.Contradiction{
				ClusterID: cid,
				Points:    memberPoints,
				Reason:    "Heuristic NLI detected contradiction",
			})
			report.Followups = append(report.Followups,
				fmt.Sprintf("Clarify conflict for cluster %s: %v", cid, texts))
			continue
		}

		modelIDs := make([]string, 0, len(modelSet))
		for m := range modelSet {
			modelIDs = append(modelIDs, m)
		}
		sort.Strings(modelIDs)

		report.Confirmed = append(report.Confirmed, models.ConfirmedCluster{
			ClusterID: cid,
			Points:    memberPoints,
			Models:    modelIDs,
		})
	}

	if len(report.Contradictions) > 0 {
		report.Recommendation = models.RecommendRunRAG
	} else {
		report.Recommendation = models.RecommendContinueRounds
	}

	return report
}

func clusterID(memberIDs []string) string {
	return strings.Join(memberIDs, "|")
}
