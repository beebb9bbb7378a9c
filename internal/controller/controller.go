// Package controller drives repeated dispatch-and-aggregate rounds
// against a session until the answers converge or the round budget is
// exhausted.
package controller

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/llm-arbiter/backend/internal/aggregate"
	"github.com/llm-arbiter/backend/internal/dispatch"
	"github.com/llm-arbiter/backend/internal/metrics"
	"github.com/llm-arbiter/backend/internal/models"
	"github.com/llm-arbiter/backend/internal/semantic"
	"github.com/llm-arbiter/backend/internal/vector"
	"github.com/llm-arbiter/backend/pkg/config"
	"github.com/llm-arbiter/backend/pkg/logger"
)

// SessionStore is the durable session collaborator. Operations have
// whole-document read/overwrite semantics; Load returns (nil, nil) for
// an unknown id. Concurrent appends to the same session id must be
// serialized by the store's caller or deployment.
type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Load(ctx context.Context, sessionID string) (*models.Session, error)
	AppendRound(ctx context.Context, sessionID string, round models.Round) error
	Finalize(ctx context.Context, sessionID string, state models.SessionState, finalReport *models.Report) error
}

type Controller struct {
	dispatcher *dispatch.Dispatcher
	aggregator *aggregate.Aggregator
	store      SessionStore
	index      vector.Index

	maxRounds          int
	agreementThreshold float64
}

// Result is what a completed iteration run returns to the caller.
type Result struct {
	SessionID   string              `json:"session_id"`
	State       models.SessionState `json:"state"`
	Rounds      []models.Round      `json:"rounds"`
	FinalReport *models.Report      `json:"final_report"`
}

func New(dispatcher *dispatch.Dispatcher, aggregator *aggregate.Aggregator, store SessionStore, index vector.Index, cfg config.ArbiterConfig) *Controller {
	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 3
	}
	agreement := cfg.AgreementThreshold
	if agreement == 0 {
		agreement = 0.8
	}

	return &Controller{
		dispatcher:         dispatcher,
		aggregator:         aggregator,
		store:              store,
		index:              index,
		maxRounds:          maxRounds,
		agreementThreshold: agreement,
	}
}

// MultiModelQuery runs a single dispatch without touching any session.
func (c *Controller) MultiModelQuery(ctx context.Context, question string, modelIDs []string, structured bool, promptID, promptVersion string) *models.MultiResult {
	return c.dispatcher.MultiModelQuery(ctx, question, modelIDs, structured, promptID, promptVersion)
}

// RunIterations executes up to maxRounds dispatch-and-aggregate cycles
// and returns the full history with the final report. Stop conditions,
// checked in order after each round is persisted: round budget
// exhausted, absolute agreement at or above the threshold, or the
// contradiction count dropping to half of the previous round's.
//
// Only session persistence failures propagate; backend failures are
// already data by the time they reach this layer, and a round with no
// usable responses still yields an empty report with agreement 1.0.
func (c *Controller) RunIterations(ctx context.Context, question string, modelIDs []string, maxRounds int, promptID, promptVersion, sessionID string) (*Result, error) {
	if maxRounds <= 0 {
		maxRounds = c.maxRounds
	}

	sessionID, err := c.ensureSession(ctx, sessionID, question, modelIDs)
	if err != nil {
		return nil, err
	}

	state := models.StateRunning
	var prevContradictions *int
	var finalReport *models.Report

	for roundIdx := 1; roundIdx <= maxRounds; roundIdx++ {
		multi := c.dispatcher.MultiModelQuery(ctx, question, modelIDs, true, promptID, promptVersion)
		report := c.aggregator.Aggregate(ctx, multi.Responses)

		contradictions := len(report.Contradictions)
		clusterTotal := contradictions + len(report.Confirmed)
		agreementScore := 1.0
		if clusterTotal > 0 {
			agreementScore = float64(len(report.Confirmed)) / float64(clusterTotal)
		}

		metrics.RoundsTotal.Inc()
		metrics.RoundContradictions.Observe(float64(contradictions))
		metrics.AgreementScore.Observe(agreementScore)

		round := models.Round{
			Round:          roundIdx,
			Multi:          multi,
			Report:         report,
			Contradictions: contradictions,
			AgreementScore: agreementScore,
		}
		if err := c.store.AppendRound(ctx, sessionID, round); err != nil {
			return nil, fmt.Errorf("failed to append round %d: %w", roundIdx, err)
		}

		c.indexRound(ctx, sessionID, question, roundIdx, multi.Responses)

		logger.Info("Round completed",
			zap.String("session_id", sessionID),
			zap.Int("round", roundIdx),
			zap.Int("contradictions", contradictions),
			zap.Float64("agreement_score", agreementScore),
		)

		if roundIdx == maxRounds {
			state = models.StateMaxRoundsReached
			finalReport = report
			break
		}
		if agreementScore >= c.agreementThreshold {
			state = models.StateConverged
			finalReport = report
			break
		}
		if prevContradictions != nil && *prevContradictions > 0 &&
			float64(contradictions) <= float64(*prevContradictions)*0.5 {
			state = models.StateConverged
			finalReport = report
			break
		}

		prev := contradictions
		prevContradictions = &prev
	}

	metrics.SessionsFinished.WithLabelValues(string(state)).Inc()

	if err := c.store.Finalize(ctx, sessionID, state, finalReport); err != nil {
		return nil, fmt.Errorf("failed to finalize session: %w", err)
	}

	session, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload session: %w", err)
	}

	return &Result{
		SessionID:   sessionID,
		State:       state,
		Rounds:      session.Rounds,
		FinalReport: finalReport,
	}, nil
}

func (c *Controller) ensureSession(ctx context.Context, sessionID, question string, modelIDs []string) (string, error) {
	if sessionID != "" {
		existing, err := c.store.Load(ctx, sessionID)
		if err != nil {
			return "", fmt.Errorf("failed to load session: %w", err)
		}
		if existing != nil {
			return sessionID, nil
		}
	} else {
		sessionID = uuid.New().String()
	}

	session := &models.Session{
		SessionID: sessionID,
		Question:  question,
		Models:    modelIDs,
		Rounds:    []models.Round{},
		State:     models.StateRunning,
	}
	if err := c.store.Save(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return sessionID, nil
}

// indexRound persists the question plus every extracted claim for later
// semantic retrieval. Index failures are logged, never fatal: the vector
// store enriches retrieval but is not part of the round's durability.
func (c *Controller) indexRound(ctx context.Context, sessionID, question string, roundIdx int, responses []models.ModelResponse) {
	if c.index == nil {
		return
	}

	roundTag := strconv.Itoa(roundIdx)
	docs := []vector.Document{
		{Text: question, Tags: map[string]string{"role": "question", "round": roundTag}},
	}
	for _, p := range semantic.ExtractPoints(responses) {
		docs = append(docs, vector.Document{
			Text: p.Text,
			Tags: map[string]string{
				"model_id": p.ModelID,
				"round":    roundTag,
				"point_id": p.ID,
			},
		})
	}

	if err := c.index.AddDocuments(ctx, sessionID, docs); err != nil {
		logger.Warn("Failed to index round documents",
			zap.String("session_id", sessionID),
			zap.Int("round", roundIdx),
			zap.Error(err),
		)
	}
}
