package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/crmchat/internal/core"
)

type SessionsRepo struct {
	db *sql.DB
}

func NewSessionsRepo(db *sql.DB) *SessionsRepo {
	return &SessionsRepo{db: db}
}

func (r *SessionsRepo) CreateSession(ctx context.Context, contactID, title, modelTier string) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, contact_id, title, model_tier) VALUES (?, ?, ?, ?)`,
		id, contactID, title, modelTier)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

func (r *SessionsRepo) GetSession(ctx context.Context, sessionID string) (core.ChatSession, error) {
	var s core.ChatSession
	var title, tier, createdAt, updatedAt sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, contact_id, title, model_tier, created_at, updated_at
		 FROM chat_sessions WHERE id = ?`, sessionID).
		Scan(&s.ID, &s.ContactID, &title, &tier, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ChatSession{}, core.ErrNotFound
	}
	if err != nil {
		return core.ChatSession{}, fmt.Errorf("failed to get session: %w", err)
	}
	s.Title = title.String
	s.ModelTier = tier.String
	s.CreatedAt = parseTimeOr(createdAt, time.Time{})
	s.UpdatedAt = parseTimeOr(updatedAt, time.Time{})
	return s, nil
}

func (r *SessionsRepo) ListSessions(ctx context.Context, contactID string, limit int) ([]core.ChatSession, error) {
	query := `SELECT id, contact_id, title, model_tier, created_at, updated_at
		FROM chat_sessions`
	args := []any{}
	if contactID != "" {
		query += ` WHERE contact_id = ?`
		args = append(args, contactID)
	}
	query += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []core.ChatSession
	for rows.Next() {
		var s core.ChatSession
		var title, tier, createdAt, updatedAt sql.NullString
		if err := rows.Scan(&s.ID, &s.ContactID, &title, &tier, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.Title = title.String
		s.ModelTier = tier.String
		s.CreatedAt = parseTimeOr(createdAt, time.Time{})
		s.UpdatedAt = parseTimeOr(updatedAt, time.Time{})
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionsRepo) RenameSession(ctx context.Context, sessionID, title string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chat_sessions SET title = ?, updated_at = datetime('now') WHERE id = ?`,
		title, sessionID)
	if err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteSession removes the session and, via the cascade, its turns.
func (r *SessionsRepo) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SessionsRepo) AppendTurn(ctx context.Context, turn core.ChatTurn) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_turns (session_id, role, content, model) VALUES (?, ?, ?, ?)`,
		turn.SessionID, turn.Role, turn.Content, turn.Model); err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = datetime('now') WHERE id = ?`,
		turn.SessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return tx.Commit()
}

// Turns replays the full session log in insertion order.
func (r *SessionsRepo) Turns(ctx context.Context, sessionID string) ([]core.ChatTurn, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, role, content, model, created_at
		 FROM chat_turns WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()
	return collectTurns(rows, false)
}

// RecentTurns fetches the last limit turns by ordering DESC, then
// reverses them back to chronological order for prompt replay.
func (r *SessionsRepo) RecentTurns(ctx context.Context, sessionID string, limit int) ([]core.ChatTurn, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, role, content, model, created_at
		 FROM chat_turns WHERE session_id = ? ORDER BY id DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()
	return collectTurns(rows, true)
}

func collectTurns(rows *sql.Rows, reverse bool) ([]core.ChatTurn, error) {
	var turns []core.ChatTurn
	for rows.Next() {
		var t core.ChatTurn
		var model, createdAt sql.NullString
		if err := rows.Scan(&t.SessionID, &t.Role, &t.Content, &model, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.Model = model.String
		t.CreatedAt = parseTimeOr(createdAt, time.Time{})
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if reverse {
		for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
			turns[i], turns[j] = turns[j], turns[i]
		}
	}
	return turns, nil
}
