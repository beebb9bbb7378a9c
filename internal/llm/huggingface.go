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

// HuggingFaceAdapter calls the hosted inference API for text generation.
type HuggingFaceAdapter struct {
	apiKey      string
	model       string
	httpClient  *http.Client
	retryConfig retry.Config
}

func NewHuggingFaceAdapter(cfg config.HuggingFaceConfig) *HuggingFaceAdapter {
	rc := retry.Config{
		MaxAttempts:     3,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		Multiplier:      2.0,
		JitterFraction:  0.1,
		RetryableErrors: []error{retry.ErrTransient},
		Logger:          logger.GetLogger(),
	}

	return &HuggingFaceAdapter{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		retryConfig: rc,
	}
}

func (a *HuggingFaceAdapter) endpoint() string {
	return fmt.Sprintf("https://api-inference.huggingface.co/models/%s", a.model)
}

func (a *HuggingFaceAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"inputs": prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal hf request: %w", err)
	}

	return retry.DoWithResult(ctx, a.retryConfig, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(), bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("failed to build hf request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("hf request failed: %w: %v", retry.ErrTransient, err)
		}
		defer resp.Body.Close()

		if retry.RetryableStatus(resp.StatusCode) {
			return "", fmt.Errorf("hf request failed: %w", &retry.StatusError{Code: resp.StatusCode})
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("hf returned status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read hf response: %w: %v", retry.ErrTransient, err)
		}

		return parseGeneratedText(data)
	})
}

// parseGeneratedText handles the two shapes the inference API returns:
// a list of {generated_text} objects, or a single object.
func parseGeneratedText(data []byte) (string, error) {
	type generated struct {
		GeneratedText string `json:"generated_text"`
	}

	var list []generated
	if err := json.Unmarshal(data, &list); err == nil && len(list) > 0 && list[0].GeneratedText != "" {
		return list[0].GeneratedText, nil
	}

	var single generated
	if err := json.Unmarshal(data, &single); err == nil && single.GeneratedText != "" {
		return single.GeneratedText, nil
	}

	return "", fmt.Errorf("unexpected hf generation response: %s", truncate(string(data), 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (a *HuggingFaceAdapter) ModelName() string {
	return a.model
}
