package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/crmchat/internal/core"
)

type ConversationsRepo struct {
	db *sql.DB
}

func NewConversationsRepo(db *sql.DB) *ConversationsRepo {
	return &ConversationsRepo{db: db}
}

const convColumns = `external_message_id, conversation_id, channel, direction, sender,
	message_type, status, body, occurred_at, created_at`

// UpsertMessage keys on the external message id, so replayed webhook
// deliveries converge instead of duplicating rows.
func (r *ConversationsRepo) UpsertMessage(ctx context.Context, contactID string, m core.ConvMessage) error {
	if m.ExternalID == "" {
		return errors.New("missing external message id")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (contact_id, external_message_id, conversation_id, channel,
			direction, sender, message_type, status, body, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_message_id) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			channel         = excluded.channel,
			direction       = excluded.direction,
			sender          = excluded.sender,
			message_type    = excluded.message_type,
			status          = excluded.status,
			body            = excluded.body,
			occurred_at     = excluded.occurred_at`,
		contactID, m.ExternalID, m.ConversationID, m.Channel,
		m.Direction, m.Sender, m.MessageType, m.Status, m.Body,
		formatTime(m.OccurredAt))
	if err != nil {
		return fmt.Errorf("failed to upsert conversation message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit messages, newest first. The sort
// is occurred_at desc with created_at desc as tie-break, so repeated
// calls against unchanged data return identical results.
func (r *ConversationsRepo) RecentMessages(ctx context.Context, contactID string, limit int) ([]core.ConvMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+convColumns+` FROM conversations
		WHERE contact_id = ?
		ORDER BY occurred_at DESC, created_at DESC
		LIMIT ?`, contactID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (r *ConversationsRepo) RecentMessagesSince(ctx context.Context, contactID string, cutoff time.Time, limit int) ([]core.ConvMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+convColumns+` FROM conversations
		WHERE contact_id = ? AND occurred_at >= ?
		ORDER BY occurred_at DESC, created_at DESC
		LIMIT ?`, contactID, cutoff.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func collectMessages(rows *sql.Rows) ([]core.ConvMessage, error) {
	var messages []core.ConvMessage
	for rows.Next() {
		var m core.ConvMessage
		var convID, channel, direction, sender, msgType, status, body sql.NullString
		var occurredAt, createdAt sql.NullString

		if err := rows.Scan(&m.ExternalID, &convID, &channel, &direction, &sender,
			&msgType, &status, &body, &occurredAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		m.ConversationID = convID.String
		m.Channel = channel.String
		m.Direction = direction.String
		m.Sender = sender.String
		m.MessageType = msgType.String
		m.Status = status.String
		m.Body = body.String
		m.OccurredAt = parseTime(occurredAt)
		m.CreatedAt = parseTimeOr(createdAt, time.Time{})

		messages = append(messages, m)
	}
	return messages, rows.Err()
}
