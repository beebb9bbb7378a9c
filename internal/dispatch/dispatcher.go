// Package dispatch fans a question out to a set of model backends
// concurrently and joins their results in caller order. Every failure a
// single call can hit (unknown backend, adapter error, timeout, bad
// structured output, panic) is converted into an error-tagged
// ModelResponse; one backend can never fail the batch.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/llm-arbiter/backend/internal/llm"
	"github.com/llm-arbiter/backend/internal/metrics"
	"github.com/llm-arbiter/backend/internal/models"
	"github.com/llm-arbiter/backend/internal/prompt"
	"github.com/llm-arbiter/backend/pkg/logger"
	"github.com/llm-arbiter/backend/pkg/utils"
)

const DefaultCallTimeout = 180 * time.Second

// Resolver maps a backend identifier to an adapter. Implemented by
// llm.Registry; tests substitute stubs.
type Resolver interface {
	Resolve(modelID string) (llm.Adapter, error)
}

type Dispatcher struct {
	resolver Resolver
	prompts  *prompt.Registry
	schema   *Schema
	timeout  time.Duration
}

func New(resolver Resolver, prompts *prompt.Registry, schema *Schema, timeout time.Duration) *Dispatcher {
	if timeout == 0 {
		timeout = DefaultCallTimeout
	}
	if prompts == nil {
		prompts = &prompt.Registry{}
	}
	return &Dispatcher{
		resolver: resolver,
		prompts:  prompts,
		schema:   schema,
		timeout:  timeout,
	}
}

// MultiModelQuery issues one concurrent call per non-empty model id
// (duplicates allowed) and returns responses in input order. It blocks
// until every call has resolved: success, parse error, timeout or
// failure.
func (d *Dispatcher) MultiModelQuery(ctx context.Context, question string, modelIDs []string, structured bool, promptID, promptVersion string) *models.MultiResult {
	var ids []string
	for _, id := range modelIDs {
		if strings.TrimSpace(id) != "" {
			ids = append(ids, strings.TrimSpace(id))
		}
	}

	responses := make([]models.ModelResponse, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			responses[i] = d.callWithTimeout(ctx, id, question, structured, promptID, promptVersion)
		}(i, id)
	}
	wg.Wait()

	logger.Debug("Multi-model query completed",
		zap.String("question", question),
		zap.Int("backends", len(ids)),
	)

	return &models.MultiResult{
		Question:      question,
		Responses:     responses,
		PromptID:      promptID,
		PromptVersion: promptVersion,
	}
}

// callWithTimeout enforces the per-call deadline. A timeout converts
// only this call's outcome; sibling calls keep running. The inner
// goroutine is left to drain when the adapter ignores cancellation.
func (d *Dispatcher) callWithTimeout(ctx context.Context, modelID, question string, structured bool, promptID, promptVersion string) models.ModelResponse {
	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan models.ModelResponse, 1)
	go func() {
		done <- d.callModel(cctx, modelID, question, structured, promptID, promptVersion)
	}()

	var resp models.ModelResponse
	select {
	case resp = <-done:
	case <-cctx.Done():
		resp = models.ModelResponse{
			ModelID: modelID,
			Error:   fmt.Sprintf("model call timed out after %s", d.timeout),
			Meta: models.ResponseMeta{
				ModelID:   modelID,
				Timestamp: time.Now().UTC(),
				TimedOut:  true,
			},
		}
	}

	metrics.DispatchDuration.WithLabelValues(strings.ToLower(modelID)).Observe(time.Since(start).Seconds())
	metrics.ResponsesTotal.WithLabelValues(strings.ToLower(modelID), responseStatus(resp)).Inc()
	return resp
}

func responseStatus(r models.ModelResponse) string {
	switch {
	case r.Meta.TimedOut:
		return "timeout"
	case r.Error != "":
		return "error"
	case r.ParseError != "":
		return "parse_error"
	default:
		return "ok"
	}
}

func (d *Dispatcher) callModel(ctx context.Context, modelID, question string, structured bool, promptID, promptVersion string) (resp models.ModelResponse) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Backend call panicked",
				zap.String("model_id", modelID),
				zap.Any("panic", r),
			)
			resp = errorResponse(modelID, fmt.Sprintf("backend call panicked: %v", r))
		}
	}()

	adapter, err := d.resolver.Resolve(modelID)
	if err != nil {
		return errorResponse(modelID, err.Error())
	}

	rendered, promptHash := d.renderPrompt(promptID, promptVersion, question)
	requestID := utils.ShortHash(fmt.Sprintf("%s:%s:%s:%d", modelID, promptID, promptVersion, time.Now().UnixNano()))

	start := time.Now()
	raw, err := adapter.Generate(ctx, rendered)
	latency := time.Since(start).Seconds()

	meta := models.ResponseMeta{
		ModelID:        modelID,
		Backend:        strings.ToLower(modelID),
		Timestamp:      time.Now().UTC(),
		ModelName:      adapter.ModelName(),
		PromptID:       promptID,
		PromptVersion:  promptVersion,
		PromptHash:     promptHash,
		PromptUsed:     rendered,
		RequestID:      requestID,
		LatencySeconds: latency,
	}

	if err != nil {
		meta.TimedOut = ctx.Err() == context.DeadlineExceeded
		return models.ModelResponse{
			ModelID: modelID,
			Error:   fmt.Sprintf("model call failed: %v", err),
			Meta:    meta,
		}
	}

	if !structured {
		meta.TokensEstimate = wordCount(raw)
		return models.ModelResponse{ModelID: modelID, Raw: raw, Meta: meta}
	}

	parsed, parseErr := d.parseStructured(raw)
	if parseErr != nil {
		meta.TokensEstimate = wordCount(raw)
		return models.ModelResponse{
			ModelID:    modelID,
			Raw:        raw,
			ParseError: parseErr.Error(),
			Meta:       meta,
		}
	}

	meta.TokensEstimate = tokensEstimate(parsed)
	return models.ModelResponse{
		ModelID: modelID,
		Raw:     raw,
		Parsed:  parsed,
		Meta:    meta,
	}
}

func (d *Dispatcher) renderPrompt(promptID, promptVersion, question string) (string, string) {
	template, ok := d.prompts.Get(promptID, promptVersion)
	if !ok {
		// No template: the raw question travels verbatim, no hash recorded.
		return question, ""
	}
	return prompt.Render(template, question), utils.HashString(template)
}

// parseStructured decodes a JSON object and, when a schema is
// configured, validates it.
func (d *Dispatcher) parseStructured(raw string) (*models.StructuredAnswer, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("invalid JSON: %v", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("parsed JSON is not an object")
	}

	if d.schema != nil {
		if err := d.schema.Validate(raw); err != nil {
			return nil, err
		}
	}

	var answer models.StructuredAnswer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return nil, fmt.Errorf("failed to decode structured answer: %v", err)
	}
	return &answer, nil
}

func errorResponse(modelID, message string) models.ModelResponse {
	return models.ModelResponse{
		ModelID: modelID,
		Error:   message,
		Meta: models.ResponseMeta{
			ModelID:   modelID,
			Timestamp: time.Now().UTC(),
		},
	}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func tokensEstimate(answer *models.StructuredAnswer) int {
	data, err := json.Marshal(answer)
	if err != nil {
		return 0
	}
	return wordCount(string(data))
}
