package llm

import (
	"fmt"
	"strings"
	"sync"

	"github.com/llm-arbiter/backend/pkg/config"
)

// Registry resolves backend identifiers to adapter instances. Resolution
// is case-insensitive; an unknown identifier is a local configuration
// error and is never sent over the wire.
type Registry struct {
	cfg config.Config

	mu       sync.Mutex
	adapters map[string]Adapter
}

func NewRegistry(cfg config.Config) *Registry {
	return &Registry{
		cfg:      cfg,
		adapters: make(map[string]Adapter),
	}
}

func (r *Registry) Resolve(modelID string) (Adapter, error) {
	key := strings.ToLower(strings.TrimSpace(modelID))

	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.adapters[key]; ok {
		return a, nil
	}

	a, err := r.build(key)
	if err != nil {
		return nil, err
	}

	r.adapters[key] = a
	return a, nil
}

func (r *Registry) build(key string) (Adapter, error) {
	switch {
	case strings.HasPrefix(key, "mock"):
		return NewMockAdapter(), nil
	case key == "openai":
		if r.cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai backend requires an api key")
		}
		return NewOpenAIAdapter(r.cfg.OpenAI), nil
	case key == "ollama":
		return NewOllamaAdapter(r.cfg.Ollama), nil
	case key == "hf":
		if r.cfg.HuggingFace.APIKey == "" {
			return nil, fmt.Errorf("hf backend requires an api key")
		}
		return NewHuggingFaceAdapter(r.cfg.HuggingFace), nil
	default:
		return nil, fmt.Errorf("unsupported model id: %s", key)
	}
}
