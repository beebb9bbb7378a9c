// Package sqlite persists iteration sessions as whole JSON documents,
// one row per session id. All operations are read-then-overwrite with
// last-writer-wins semantics; callers that could race on the same
// session id must serialize their appends externally.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/llm-arbiter/backend/internal/models"
	"github.com/llm-arbiter/backend/pkg/logger"
)

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("Session store initialized", zap.String("path", dbPath))

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Save writes the full session document, replacing any previous version.
func (s *Store) Save(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	query := `
		INSERT INTO sessions (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, session.SessionID, string(data), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	logger.Debug("Session saved",
		zap.String("session_id", session.SessionID),
		zap.Int("rounds", len(session.Rounds)),
	)
	return nil
}

// Load returns the session for id, or (nil, nil) when absent.
func (s *Store) Load(ctx context.Context, sessionID string) (*models.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM sessions WHERE id = ?", sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// AppendRound adds one round to the session's history.
func (s *Store) AppendRound(ctx context.Context, sessionID string, round models.Round) error {
	session, err := s.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("session %s not found", sessionID)
	}

	session.Rounds = append(session.Rounds, round)
	return s.Save(ctx, session)
}

// Finalize sets the terminal state and final report.
func (s *Store) Finalize(ctx context.Context, sessionID string, state models.SessionState, finalReport *models.Report) error {
	session, err := s.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("session %s not found", sessionID)
	}

	session.State = state
	session.FinalReport = finalReport
	if err := s.Save(ctx, session); err != nil {
		return err
	}

	logger.Info("Session finalized",
		zap.String("session_id", sessionID),
		zap.String("state", string(state)),
		zap.Int("rounds", len(session.Rounds)),
	)
	return nil
}
