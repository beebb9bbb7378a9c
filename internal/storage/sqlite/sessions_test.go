package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-arbiter/backend/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema())
	return store
}

func testSession(id string) *models.Session {
	return &models.Session{
		SessionID: id,
		Question:  "Are cats mammals?",
		Models:    []string{"mock-a", "mock-b"},
		Rounds:    []models.Round{},
		State:     models.StateRunning,
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("s1")))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "s1", loaded.SessionID)
	assert.Equal(t, "Are cats mammals?", loaded.Question)
	assert.Equal(t, []string{"mock-a", "mock-b"}, loaded.Models)
	assert.Equal(t, models.StateRunning, loaded.State)
}

func TestLoadUnknownSession(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, loaded, "an unknown id is not an error")
}

func TestSaveOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession("s1")
	require.NoError(t, store.Save(ctx, session))

	session.Question = "updated question"
	require.NoError(t, store.Save(ctx, session))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "updated question", loaded.Question)
}

func TestAppendRound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("s1")))

	for i := 1; i <= 2; i++ {
		round := models.Round{
			Round:          i,
			Contradictions: i,
			AgreementScore: 0.5,
		}
		require.NoError(t, store.AppendRound(ctx, "s1", round))
	}

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded.Rounds, 2)
	assert.Equal(t, 1, loaded.Rounds[0].Round)
	assert.Equal(t, 2, loaded.Rounds[1].Round)
}

func TestAppendRoundUnknownSession(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendRound(context.Background(), "missing", models.Round{Round: 1})
	assert.ErrorContains(t, err, "not found")
}

func TestFinalize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("s1")))

	report := &models.Report{
		Confirmed:      []models.ConfirmedCluster{},
		Contradictions: []models.Contradiction{},
		Followups:      []string{},
		Recommendation: models.RecommendContinueRounds,
	}
	require.NoError(t, store.Finalize(ctx, "s1", models.StateConverged, report))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StateConverged, loaded.State)
	require.NotNil(t, loaded.FinalReport)
	assert.Equal(t, models.RecommendContinueRounds, loaded.FinalReport.Recommendation)
}
