package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/llm-arbiter/backend/internal/models"
)

// MockAdapter returns a deterministic structured payload, used in tests
// and as a zero-dependency backend for local runs.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

func (m *MockAdapter) Generate(_ context.Context, prompt string) (string, error) {
	answer := models.StructuredAnswer{
		SummaryPoints: []models.SummaryPoint{
			{ID: "p1", Text: fmt.Sprintf("Echo of '%s'", prompt), Confidence: "high"},
			{ID: "p2", Text: "Mock systems return static data", Confidence: "medium"},
			{ID: "p3", Text: "Use real adapters in production", Confidence: "medium"},
		},
		DetailedExplanation: "This is a mock structured response for testing pipelines.",
		Evidence:            []string{"https://example.com/mock"},
		ReproducibleExample: "print('mock')",
	}

	data, err := json.Marshal(answer)
	if err != nil {
		return "", fmt.Errorf("failed to marshal mock answer: %w", err)
	}
	return string(data), nil
}

func (m *MockAdapter) ModelName() string {
	return "mock"
}
