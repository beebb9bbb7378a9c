// Package prompt loads the prompt-template registry once at startup.
// The registry is read-only after Load; handles are shared across
// components without locking.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/llm-arbiter/backend/pkg/logger"
)

const (
	QuestionPlaceholder = "<USER_QUESTION>"
	ContextPlaceholder  = "<CONTEXT_HISTORY>"
)

type Entry struct {
	ID       string `yaml:"id"`
	Version  string `yaml:"version"`
	Template string `yaml:"template"`
}

type Registry struct {
	entries []Entry
}

// Load reads the yaml registry at path. A missing file yields an empty
// registry, not an error: the dispatcher falls back to using the raw
// question as the prompt.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("Prompt registry not found, using raw questions", zap.String("path", path))
			return &Registry{}, nil
		}
		return nil, fmt.Errorf("failed to read prompt registry: %w", err)
	}

	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse prompt registry: %w", err)
	}

	logger.Info("Prompt registry loaded",
		zap.String("path", path),
		zap.Int("entries", len(entries)),
	)

	return &Registry{entries: entries}, nil
}

// Get returns the template for (id, version), or false if absent.
func (r *Registry) Get(id, version string) (string, bool) {
	for _, e := range r.entries {
		if e.ID == id && e.Version == version {
			return e.Template, true
		}
	}
	return "", false
}

// Render substitutes the question into a template and clears the context
// placeholder (context injection is a later concern; rounds currently
// re-ask the original question).
func Render(template, question string) string {
	rendered := strings.ReplaceAll(template, QuestionPlaceholder, question)
	return strings.ReplaceAll(rendered, ContextPlaceholder, "")
}
