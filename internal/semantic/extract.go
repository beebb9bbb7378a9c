// Package semantic turns structured answers into claims, claims into
// vectors, and vectors into similarity clusters.
package semantic

import (
	"fmt"

	"github.com/llm-arbiter/backend/internal/models"
)

// ExtractPoints emits one claim per summary point of every parsed
// response, in response order then point order. Responses without a
// parsed payload contribute nothing. Point ids are unique within a
// round: "{model_id}_{local_id}", local id defaulting to "p".
func ExtractPoints(responses []models.ModelResponse) []models.Point {
	var points []models.Point
	for _, r := range responses {
		if r.Parsed == nil {
			continue
		}
		for _, sp := range r.Parsed.SummaryPoints {
			localID := sp.ID
			if localID == "" {
				localID = "p"
			}
			points = append(points, models.Point{
				ID:      fmt.Sprintf("%s_%s", r.ModelID, localID),
				Text:    sp.Text,
				ModelID: r.ModelID,
			})
		}
	}
	return points
}
