package nli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/llm-arbiter/backend/internal/models"
	"github.com/llm-arbiter/backend/pkg/config"
	"github.com/llm-arbiter/backend/pkg/logger"
	"github.com/llm-arbiter/backend/pkg/retry"
)

// RemoteClient calls a hosted zero-shot entailment model. Scores below
// the configured threshold are reported as neutral.
type RemoteClient struct {
	endpoint    string
	apiKey      string
	threshold   float64
	httpClient  *http.Client
	retryConfig retry.Config
}

func NewRemoteClient(cfg config.HuggingFaceConfig) *RemoteClient {
	endpoint := cfg.NLIEndpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://api-inference.huggingface.co/models/%s", cfg.NLIModel)
	}

	threshold := cfg.NLIThreshold
	if threshold == 0 {
		threshold = 0.6
	}

	return &RemoteClient{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		threshold:  threshold,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryConfig: retry.Config{
			MaxAttempts:     3,
			InitialDelay:    500 * time.Millisecond,
			MaxDelay:        5 * time.Second,
			Multiplier:      2.0,
			JitterFraction:  0.1,
			RetryableErrors: []error{retry.ErrTransient},
			Logger:          logger.GetLogger(),
		},
	}
}

type nliRequest struct {
	Inputs nliInputs `json:"inputs"`
}

type nliInputs struct {
	Premise    string `json:"premise"`
	Hypothesis string `json:"hypothesis"`
}

type nliCandidate struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (c *RemoteClient) Classify(ctx context.Context, premise, hypothesis string) (models.Label, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("nli api key not configured")
	}

	body, err := json.Marshal(nliRequest{Inputs: nliInputs{Premise: premise, Hypothesis: hypothesis}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal nli request: %w", err)
	}

	data, err := retry.DoWithResult(ctx, c.retryConfig, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build nli request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("nli request failed: %w: %v", retry.ErrTransient, err)
		}
		defer resp.Body.Close()

		if retry.RetryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("nli request failed: %w", &retry.StatusError{Code: resp.StatusCode})
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("nli returned status %d", resp.StatusCode)
		}

		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return "", err
	}

	return c.mapResponse(data)
}

// mapResponse picks the best-scoring candidate. The API returns either a
// flat candidate list or a single-element nesting of one.
func (c *RemoteClient) mapResponse(data []byte) (models.Label, error) {
	var nested [][]nliCandidate
	var candidates []nliCandidate

	if err := json.Unmarshal(data, &nested); err == nil && len(nested) > 0 {
		candidates = nested[0]
	} else if err := json.Unmarshal(data, &candidates); err != nil {
		return "", fmt.Errorf("unexpected nli response: %s", string(data))
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("nli response has no candidates")
	}

	best := candidates[0]
	for _, cand := range candidates[1:] {
		if cand.Score > best.Score {
			best = cand
		}
	}

	if best.Score < c.threshold {
		return models.LabelNeutral, nil
	}

	label := strings.ToLower(best.Label)
	switch {
	case strings.Contains(label, "entailment"):
		return models.LabelEntailment, nil
	case strings.Contains(label, "contradiction"), strings.Contains(label, "refute"):
		return models.LabelContradiction, nil
	default:
		return models.LabelNeutral, nil
	}
}
