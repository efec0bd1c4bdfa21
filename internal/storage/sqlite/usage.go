package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sandevgo/crmchat/internal/core"
)

type UsageRepo struct {
	db *sql.DB
}

func NewUsageRepo(db *sql.DB) *UsageRepo {
	return &UsageRepo{db: db}
}

func (r *UsageRepo) RecordUsage(ctx context.Context, rec core.UsageRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_tracking (endpoint, contact_id, session_id, model, tier,
			input_tokens, output_tokens, response_time_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Endpoint, nullable(rec.ContactID), nullable(rec.SessionID), rec.Model, rec.Tier,
		rec.InputTokens, rec.OutputTokens, rec.ResponseTimeMS, rec.Error)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
