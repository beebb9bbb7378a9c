package semantic

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-arbiter/backend/internal/models"
)

func TestVectorizeDeterministic(t *testing.T) {
	a := Vectorize("Cats hunt mice at night.")
	b := Vectorize("Cats hunt mice at night.")

	require.Len(t, a, FallbackDim)
	assert.Equal(t, a, b)
}

func TestVectorizeFoldsSynonyms(t *testing.T) {
	// "felines" and "cats" canonicalize to the same token, as do
	// "chase" and "hunt", so the paraphrases share a vector.
	a := Vectorize("Felines chase rodents")
	b := Vectorize("Cats hunt mice")

	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, Cosine(a, b), 1e-9)
}

func TestVectorizeStripsPluralS(t *testing.T) {
	assert.Equal(t, Vectorize("dogs bark"), Vectorize("dog bark"))
}

func TestCosineProperties(t *testing.T) {
	a := Vectorize("The sky is blue")
	b := Vectorize("Bananas are yellow")

	assert.InDelta(t, Cosine(a, b), Cosine(b, a), 1e-12, "cosine must be symmetric")
	assert.InDelta(t, 1.0, Cosine(a, a), 1e-9)
	assert.LessOrEqual(t, Cosine(a, b), 1.0)
	assert.GreaterOrEqual(t, Cosine(a, b), -1.0)
}

func TestCosineZeroVector(t *testing.T) {
	zero := make([]float32, FallbackDim)
	assert.Equal(t, 0.0, Cosine(zero, Vectorize("anything")))
	assert.Equal(t, 0.0, Cosine(zero, zero))
}

func TestClusterPointsPartitionsInput(t *testing.T) {
	points := []models.Point{
		{ID: "a_p1", Text: "Cats hunt mice", ModelID: "a"},
		{ID: "b_p1", Text: "Felines chase rodents", ModelID: "b"},
		{ID: "a_p2", Text: "Bananas are yellow fruits", ModelID: "a"},
		{ID: "b_p2", Text: "Quantum computers use qubits", ModelID: "b"},
	}
	vectors := make([][]float32, len(points))
	for i, p := range points {
		vectors[i] = Vectorize(p.Text)
	}

	clusters := ClusterPoints(points, vectors, DefaultClusterThreshold)

	seen := make(map[string]int)
	for _, cluster := range clusters {
		require.NotEmpty(t, cluster)
		for _, id := range cluster {
			seen[id]++
		}
	}
	require.Len(t, seen, len(points), "every point appears in the output")
	for id, n := range seen {
		assert.Equal(t, 1, n, "point %s assigned exactly once", id)
	}

	// The two paraphrases share a cluster, the unrelated claims do not.
	assert.Equal(t, []string{"a_p1", "b_p1"}, clusters[0])
	assert.Len(t, clusters, 3)
}

func TestClusterPointsIdenticalTexts(t *testing.T) {
	points := []models.Point{
		{ID: "a_p1", Text: "Water boils at 100 degrees", ModelID: "a"},
		{ID: "b_p1", Text: "Water boils at 100 degrees", ModelID: "b"},
	}
	vectors := [][]float32{Vectorize(points[0].Text), Vectorize(points[1].Text)}

	clusters := ClusterPoints(points, vectors, DefaultClusterThreshold)
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"a_p1", "b_p1"}, clusters[0])
}

func TestExtractPointsOrderAndIDs(t *testing.T) {
	responses := []models.ModelResponse{
		{
			ModelID: "alpha",
			Parsed: &models.StructuredAnswer{SummaryPoints: []models.SummaryPoint{
				{ID: "p1", Text: "first"},
				{ID: "p2", Text: "second"},
			}},
		},
		{ModelID: "broken", Error: "model call failed"},
		{
			ModelID: "beta",
			Parsed: &models.StructuredAnswer{SummaryPoints: []models.SummaryPoint{
				{Text: "no local id"},
			}},
		},
	}

	points := ExtractPoints(responses)
	require.Len(t, points, 3)
	assert.Equal(t, "alpha_p1", points[0].ID)
	assert.Equal(t, "alpha_p2", points[1].ID)
	assert.Equal(t, "beta_p", points[2].ID, "missing local id defaults to p")
	assert.Equal(t, "beta", points[2].ModelID)
}

type failingEmbedder struct{}

func (failingEmbedder) EmbedTexts(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("remote unavailable")
}

func TestEmbedPointsFallsBack(t *testing.T) {
	points := []models.Point{{ID: "a_p1", Text: "Cats hunt mice", ModelID: "a"}}

	vectors := EmbedPoints(context.Background(), points, failingEmbedder{})
	require.Len(t, vectors, 1)
	assert.Equal(t, Vectorize("Cats hunt mice"), vectors[0])

	vectors = EmbedPoints(context.Background(), points, nil)
	require.Len(t, vectors, 1)
	assert.Equal(t, Vectorize("Cats hunt mice"), vectors[0])
}
