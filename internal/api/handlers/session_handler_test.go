package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-arbiter/backend/internal/models"
	"github.com/llm-arbiter/backend/internal/vector"
)

type fakeStore struct {
	sessions map[string]*models.Session
}

func (s *fakeStore) Save(_ context.Context, session *models.Session) error {
	s.sessions[session.SessionID] = session
	return nil
}

func (s *fakeStore) Load(_ context.Context, sessionID string) (*models.Session, error) {
	return s.sessions[sessionID], nil
}

func (s *fakeStore) AppendRound(_ context.Context, sessionID string, round models.Round) error {
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	session.Rounds = append(session.Rounds, round)
	return nil
}

func (s *fakeStore) Finalize(_ context.Context, sessionID string, state models.SessionState, finalReport *models.Report) error {
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	session.State = state
	session.FinalReport = finalReport
	return nil
}

func newSessionApp(store *fakeStore) *fiber.App {
	handler := NewSessionHandler(store, vector.NewMemory(nil))
	app := fiber.New()
	app.Get("/api/v1/session/:id", handler.HandleGetSession)
	app.Get("/api/v1/search", handler.HandleSearch)
	return app
}

func TestGetSessionFound(t *testing.T) {
	store := &fakeStore{sessions: map[string]*models.Session{
		"s1": {
			SessionID: "s1",
			Question:  "Are cats mammals?",
			State:     models.StateConverged,
		},
	}}
	app := newSessionApp(store)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/session/s1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var session models.Session
	require.NoError(t, json.Unmarshal(body, &session))
	assert.Equal(t, "s1", session.SessionID)
	assert.Equal(t, models.StateConverged, session.State)
}

func TestGetSessionNotFound(t *testing.T) {
	app := newSessionApp(&fakeStore{sessions: map[string]*models.Session{}})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/session/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSearchRequiresQuery(t *testing.T) {
	app := newSessionApp(&fakeStore{sessions: map[string]*models.Session{}})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/search", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSearchRejectsBadTopK(t *testing.T) {
	app := newSessionApp(&fakeStore{sessions: map[string]*models.Session{}})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/search?q=cats&top_k=zero", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSearchReturnsMatches(t *testing.T) {
	index := vector.NewMemory(nil)
	require.NoError(t, index.AddDocuments(context.Background(), "s1", []vector.Document{
		{Text: "Cats are mammals", Tags: map[string]string{"model_id": "alpha"}},
	}))

	handler := NewSessionHandler(&fakeStore{sessions: map[string]*models.Session{}}, index)
	app := fiber.New()
	app.Get("/api/v1/search", handler.HandleSearch)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/search?q=cats", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload struct {
		Query   string         `json:"query"`
		Matches []vector.Match `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "cats", payload.Query)
	require.Len(t, payload.Matches, 1)
	assert.Equal(t, "Cats are mammals", payload.Matches[0].Document.Text)
}
