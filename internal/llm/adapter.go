// Package llm provides the backend adapter capability: given a rendered
// prompt, asynchronously return text or fail. Backends are data-driven
// configuration resolved by id, not a type hierarchy.
package llm

import "context"

// Adapter is the uniform generation contract every backend satisfies.
// Generate must honor ctx cancellation; it must not block indefinitely
// past the dispatcher's own deadline.
type Adapter interface {
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName is the resolved underlying model, for response metadata.
	ModelName() string
}
