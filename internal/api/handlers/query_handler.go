package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/llm-arbiter/backend/internal/controller"
	"github.com/llm-arbiter/backend/internal/models"
	"github.com/llm-arbiter/backend/pkg/config"
	"github.com/llm-arbiter/backend/pkg/logger"
)

type QueryHandler struct {
	controller *controller.Controller
	store      controller.SessionStore
	cfg        config.ArbiterConfig
}

func NewQueryHandler(ctrl *controller.Controller, store controller.SessionStore, cfg config.ArbiterConfig) *QueryHandler {
	return &QueryHandler{
		controller: ctrl,
		store:      store,
		cfg:        cfg,
	}
}

type queryRequest struct {
	Question      string   `json:"question"`
	Models        []string `json:"models"`
	PromptID      string   `json:"prompt_id"`
	PromptVersion string   `json:"prompt_version"`
	MaxRounds     int      `json:"max_rounds"`
}

func (h *QueryHandler) applyDefaults(req *queryRequest) {
	if len(req.Models) == 0 {
		req.Models = []string{"mock", "mock"}
	}
	if req.PromptID == "" {
		req.PromptID = h.cfg.DefaultPromptID
	}
	if req.PromptVersion == "" {
		req.PromptVersion = h.cfg.DefaultVersion
	}
	if req.MaxRounds <= 0 {
		req.MaxRounds = h.cfg.MaxRounds
	}
}

// HandleQuery answers the first round synchronously, then continues the
// remaining convergence rounds in the background. Clients poll the
// session endpoint with the returned session_id for the final report.
func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
	}
	h.applyDefaults(&req)

	multi := h.controller.MultiModelQuery(c.Context(), req.Question, req.Models, true, req.PromptID, req.PromptVersion)

	session := &models.Session{
		SessionID: "",
		Question:  req.Question,
		Models:    req.Models,
		Rounds:    []models.Round{},
		State:     models.StateRunning,
	}
	session.SessionID = newSessionID()
	if err := h.store.Save(c.Context(), session); err != nil {
		logger.Error("Failed to create session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
		})
	}

	// The request context dies with the response; the remaining rounds
	// run on their own context.
	go func(req queryRequest, sessionID string) {
		ctx := context.Background()
		if _, err := h.controller.RunIterations(ctx, req.Question, req.Models, req.MaxRounds, req.PromptID, req.PromptVersion, sessionID); err != nil {
			logger.Error("Background iteration run failed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}(req, session.SessionID)

	return c.JSON(fiber.Map{
		"session_id": session.SessionID,
		"question":   multi.Question,
		"responses":  multi.Responses,
	})
}

// HandleIterate runs the full convergence loop synchronously and
// returns the complete history.
func (h *QueryHandler) HandleIterate(c *fiber.Ctx) error {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
	}
	h.applyDefaults(&req)

	result, err := h.controller.RunIterations(c.Context(), req.Question, req.Models, req.MaxRounds, req.PromptID, req.PromptVersion, "")
	if err != nil {
		logger.Error("Failed to run iterations", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to run iterations",
		})
	}

	return c.JSON(result)
}
