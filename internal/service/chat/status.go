package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/crmchat/internal/core"
	"github.com/sandevgo/crmchat/pkg/log"
)

// Conversation states surfaced by AnalyzeStatus.
const (
	StatusPaid    = "PAID"
	StatusActive  = "ACTIVE"
	StatusDormant = "DORMANT"
	StatusUnsure  = "UNSURE"
)

// dormancyThreshold separates ACTIVE from DORMANT when the model is
// unavailable and the deterministic fallback decides instead.
const dormancyThreshold = 30 * 24 * time.Hour

// AnalyzeStatus classifies the state of a contact's conversation as
// PAID, ACTIVE, DORMANT or UNSURE. The classification itself comes
// from the model; any API failure degrades to an elapsed-time rule
// (last activity within 30 days → ACTIVE, older → DORMANT, no
// messages at all → UNSURE) so the endpoint never errors out on a
// provider outage.
func (s *Service) AnalyzeStatus(ctx context.Context, contactID, sessionID string) (string, error) {
	transcript, lastAt, err := s.statusTranscript(ctx, contactID, sessionID)
	if err != nil {
		return "", err
	}

	now := s.now()
	daysSince := -1
	if !lastAt.IsZero() {
		daysSince = int(now.Sub(lastAt).Hours() / 24)
	}

	prompt := buildStatusPrompt(transcript, daysSince, now)

	provider := s.picker.ForTier(core.TierLight)
	started := s.now()
	result, err := provider.Chat(ctx, core.ChatRequest{
		Messages:    []core.Message{{Role: core.RoleUser, Content: prompt}},
		Temperature: 0.1,
		MaxTokens:   s.budget.MaxTokensStatus,
	})
	elapsed := time.Since(started)

	rec := core.UsageRecord{
		Endpoint:       "analyze-status",
		ContactID:      contactID,
		SessionID:      sessionID,
		Model:          provider.Model(),
		Tier:           core.TierLight,
		ResponseTimeMS: elapsed.Milliseconds(),
	}
	if err != nil {
		rec.Error = err.Error()
		s.recordUsage(ctx, rec)
		log.FromCtx(ctx).Warn().Err(err).Msg("status model unavailable, using elapsed-time fallback")
		return fallbackStatus(lastAt, now), nil
	}
	rec.InputTokens = result.PromptTokens
	rec.OutputTokens = result.CompletionTokens
	s.recordUsage(ctx, rec)

	word := strings.ToUpper(strings.TrimSpace(result.Content))
	switch word {
	case StatusPaid, StatusActive, StatusDormant, StatusUnsure:
		return word, nil
	}
	return StatusUnsure, nil
}

// statusTranscript prefers the session's chat log when a session id is
// given; otherwise the contact's recent conversation messages.
func (s *Service) statusTranscript(ctx context.Context, contactID, sessionID string) (string, time.Time, error) {
	var (
		lines  []string
		lastAt time.Time
	)
	if sessionID != "" {
		turns, err := s.sessions.Turns(ctx, sessionID)
		if err != nil {
			return "", time.Time{}, err
		}
		for _, t := range turns {
			lines = append(lines, fmt.Sprintf("%s: %s", t.Role, t.Content))
			if t.CreatedAt.After(lastAt) {
				lastAt = t.CreatedAt
			}
		}
	} else {
		msgs, err := s.conversations.RecentMessages(ctx, contactID, s.budget.MaxContextMessages)
		if err != nil {
			return "", time.Time{}, err
		}
		for i := len(msgs) - 1; i >= 0; i-- {
			m := msgs[i]
			who := m.Sender
			if who == "" {
				who = m.Direction
			}
			lines = append(lines, fmt.Sprintf("%s: %s", who, m.Body))
			ts := m.CreatedAt
			if m.OccurredAt != nil {
				ts = *m.OccurredAt
			}
			if ts.After(lastAt) {
				lastAt = ts
			}
		}
	}
	return strings.Join(lines, "\n"), lastAt, nil
}

func buildStatusPrompt(transcript string, daysSince int, now time.Time) string {
	days := "unknown"
	if daysSince >= 0 {
		days = fmt.Sprintf("%d", daysSince)
	}
	if transcript == "" {
		transcript = "No messages yet"
	}
	return fmt.Sprintf(`Analyze this conversation and return ONLY one status word:
- PAID: if you find words like "payment received", "order placed", "paid", "purchased", "payment confirmed", "transaction complete"
- ACTIVE: if last message was less than 30 days ago (%s days ago) and no payment mentioned
- DORMANT: if last message was more than 30 days ago (%s days ago) and no payment mentioned
- UNSURE: if cannot determine

Today is %s.
Days since last message: %s

Conversation:
%s

Return only the status word (PAID, ACTIVE, DORMANT, or UNSURE).`,
		days, days, now.Format("1/2/2006"), days, transcript)
}

func fallbackStatus(lastAt, now time.Time) string {
	if lastAt.IsZero() {
		return StatusUnsure
	}
	if now.Sub(lastAt) <= dormancyThreshold {
		return StatusActive
	}
	return StatusDormant
}
