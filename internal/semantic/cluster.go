package semantic

import (
	"math"

	"github.com/llm-arbiter/backend/internal/models"
)

// DefaultClusterThreshold applies to direct clustering calls; the
// aggregator passes a looser 0.5.
const DefaultClusterThreshold = 0.82

// Cosine similarity in [-1, 1]. A zero vector is defined as similarity 0
// against anything.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, x := range a {
		na += float64(x) * float64(x)
	}
	for _, y := range b {
		nb += float64(y) * float64(y)
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ClusterPoints runs greedy single-pass clustering: each point, in
// extraction order, joins the first existing cluster whose
// representative (first member) is at least threshold-similar, otherwise
// it starts a new cluster. Comparing against the representative only is
// an intentional O(n*k) approximation; results depend on input order and
// the output always partitions the input ids.
func ClusterPoints(points []models.Point, vectors [][]float32, threshold float64) [][]string {
	vecByID := make(map[string][]float32, len(points))
	for i, p := range points {
		vecByID[p.ID] = vectors[i]
	}

	var clusters [][]string
	for _, p := range points {
		assigned := false
		for i, cluster := range clusters {
			rep := cluster[0]
			if Cosine(vecByID[p.ID], vecByID[rep]) >= threshold {
				clusters[i] = append(clusters[i], p.ID)
				assigned = true
				break
			}
		}
		if !assigned {
			clusters = append(clusters, []string{p.ID})
		}
	}
	return clusters
}
