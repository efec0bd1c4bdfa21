package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/crmchat/internal/core"
)

type SummariesRepo struct {
	db *sql.DB
}

func NewSummariesRepo(db *sql.DB) *SummariesRepo {
	return &SummariesRepo{db: db}
}

func (r *SummariesRepo) UpsertSummary(ctx context.Context, s core.ContactSummary) error {
	topics, err := json.Marshal(s.KeyTopics)
	if err != nil {
		return fmt.Errorf("failed to marshal key topics: %w", err)
	}
	items, err := json.Marshal(s.ActionItems)
	if err != nil {
		return fmt.Errorf("failed to marshal action items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO contact_summaries (contact_id, summary_date, summary_type,
			conversation_summary, order_summary, key_topics, action_items,
			message_count, order_count, total_order_value, model_used, input_tokens_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(contact_id, summary_date, summary_type) DO UPDATE SET
			conversation_summary = excluded.conversation_summary,
			order_summary        = excluded.order_summary,
			key_topics           = excluded.key_topics,
			action_items         = excluded.action_items,
			message_count        = excluded.message_count,
			order_count          = excluded.order_count,
			total_order_value    = excluded.total_order_value,
			model_used           = excluded.model_used,
			input_tokens_used    = excluded.input_tokens_used`,
		s.ContactID, s.SummaryDate, s.SummaryType,
		s.ConversationSummary, s.OrderSummary, string(topics), string(items),
		s.MessageCount, s.OrderCount, s.TotalOrderValue, s.ModelUsed, s.InputTokensUsed)
	if err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}
	return nil
}

func (r *SummariesRepo) GetSummary(ctx context.Context, contactID, date, summaryType string) (core.ContactSummary, error) {
	var s core.ContactSummary
	var convSummary, orderSummary, topics, items, model, createdAt sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT contact_id, summary_date, summary_type, conversation_summary, order_summary,
			key_topics, action_items, message_count, order_count, total_order_value,
			model_used, input_tokens_used, created_at
		FROM contact_summaries
		WHERE contact_id = ? AND summary_date = ? AND summary_type = ?`,
		contactID, date, summaryType).
		Scan(&s.ContactID, &s.SummaryDate, &s.SummaryType, &convSummary, &orderSummary,
			&topics, &items, &s.MessageCount, &s.OrderCount, &s.TotalOrderValue,
			&model, &s.InputTokensUsed, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ContactSummary{}, core.ErrNotFound
	}
	if err != nil {
		return core.ContactSummary{}, fmt.Errorf("failed to get summary: %w", err)
	}

	s.ConversationSummary = convSummary.String
	s.OrderSummary = orderSummary.String
	s.ModelUsed = model.String
	s.CreatedAt = parseTimeOr(createdAt, time.Time{})
	if topics.Valid && topics.String != "" {
		_ = json.Unmarshal([]byte(topics.String), &s.KeyTopics)
	}
	if items.Valid && items.String != "" {
		_ = json.Unmarshal([]byte(items.String), &s.ActionItems)
	}
	return s, nil
}
