package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/llm-arbiter/backend/pkg/config"
	"github.com/llm-arbiter/backend/pkg/logger"
	"github.com/llm-arbiter/backend/pkg/retry"
)

// OllamaAdapter calls a local Ollama server's generate endpoint.
type OllamaAdapter struct {
	endpoint    string
	model       string
	httpClient  *http.Client
	retryConfig retry.Config
}

func NewOllamaAdapter(cfg config.OllamaConfig) *OllamaAdapter {
	rc := retry.Config{
		MaxAttempts:     3,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		Multiplier:      2.0,
		JitterFraction:  0.1,
		RetryableErrors: []error{retry.ErrTransient},
		Logger:          logger.GetLogger(),
	}

	return &OllamaAdapter{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		retryConfig: rc,
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (a *OllamaAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaRequest{Model: a.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	return retry.DoWithResult(ctx, a.retryConfig, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("failed to build ollama request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("ollama request failed: %w: %v", retry.ErrTransient, err)
		}
		defer resp.Body.Close()

		if retry.RetryableStatus(resp.StatusCode) {
			return "", fmt.Errorf("ollama request failed: %w", &retry.StatusError{Code: resp.StatusCode})
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read ollama response: %w: %v", retry.ErrTransient, err)
		}

		var parsed ollamaResponse
		if err := json.Unmarshal(data, &parsed); err != nil {
			return "", fmt.Errorf("failed to decode ollama response: %w", err)
		}
		if parsed.Response == "" {
			return "", fmt.Errorf("ollama returned an empty response")
		}

		return parsed.Response, nil
	})
}

func (a *OllamaAdapter) ModelName() string {
	return a.model
}
