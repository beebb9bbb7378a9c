package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/llm-arbiter/backend/internal/controller"
	"github.com/llm-arbiter/backend/internal/vector"
	"github.com/llm-arbiter/backend/pkg/logger"
)

func newSessionID() string {
	return uuid.New().String()
}

type SessionHandler struct {
	store controller.SessionStore
	index vector.Index
}

func NewSessionHandler(store controller.SessionStore, index vector.Index) *SessionHandler {
	return &SessionHandler{
		store: store,
		index: index,
	}
}

// HandleGetSession returns the current session document, including any
// rounds appended by a still-running background loop.
func (h *SessionHandler) HandleGetSession(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session id is required",
		})
	}

	session, err := h.store.Load(c.Context(), sessionID)
	if err != nil {
		logger.Error("Failed to load session", zap.String("session_id", sessionID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load session",
		})
	}
	if session == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	return c.JSON(session)
}

// HandleSearch looks up semantically similar indexed claims and
// questions across all sessions.
func (h *SessionHandler) HandleSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "q is required",
		})
	}

	topK := 5
	if raw := c.Query("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "top_k must be a positive integer",
			})
		}
		topK = parsed
	}

	matches, err := h.index.SearchSimilar(c.Context(), query, topK)
	if err != nil {
		logger.Error("Failed to search index", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to search index",
		})
	}

	return c.JSON(fiber.Map{
		"query":   query,
		"matches": matches,
	})
}
