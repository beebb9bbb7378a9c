package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/llm-arbiter/backend/pkg/circuitbreaker"
	"github.com/llm-arbiter/backend/pkg/config"
	"github.com/llm-arbiter/backend/pkg/logger"
	"github.com/llm-arbiter/backend/pkg/retry"
)

type OpenAIAdapter struct {
	client      *openai.Client
	model       string
	maxTokens   int
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewOpenAIAdapter(cfg config.OpenAIConfig) *OpenAIAdapter {
	cb := circuitbreaker.NewCircuitBreaker("openai", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	return &OpenAIAdapter{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (a *OpenAIAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	var content string

	err := a.cb.Execute(ctx, func() error {
		return retry.Do(ctx, a.retryConfig, func() error {
			resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model: a.model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleUser, Content: prompt},
				},
				MaxTokens: a.maxTokens,
			})
			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("completion returned no choices")
			}
			content = resp.Choices[0].Message.Content
			return nil
		})
	})

	if err != nil {
		return "", err
	}
	return content, nil
}

func (a *OpenAIAdapter) ModelName() string {
	return a.model
}
