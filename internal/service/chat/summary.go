package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/crmchat/internal/core"
	"github.com/sandevgo/crmchat/pkg/log"
	"github.com/sandevgo/crmchat/pkg/retry"
)

const (
	summaryTypeDaily   = "daily"
	summaryCutoffHours = 24
)

const systemSummary = `You are a CRM assistant that creates concise daily summaries of customer interactions.
Focus on: key topics discussed, action items, order details, and important context.
Keep summaries brief but comprehensive. Extract specific action items and topics.
Format your response as JSON with these exact keys:
{
  "conversation_summary": "Brief paragraph summarizing conversations",
  "order_summary": "Brief paragraph about orders if any",
  "key_topics": ["topic1", "topic2"],
  "action_items": ["item1", "item2"]
}`

// summaryPayload is the model's JSON response shape. Parsed leniently:
// missing keys get defaults, surrounding fences are stripped.
type summaryPayload struct {
	ConversationSummary string   `json:"conversation_summary"`
	OrderSummary        string   `json:"order_summary"`
	KeyTopics           []string `json:"key_topics"`
	ActionItems         []string `json:"action_items"`
}

// GenerateDailySummary builds (or returns the cached) daily summary
// for a contact. One summary per (contact, date); pass force to
// regenerate. The model call runs under the retrier since this is a
// background path with no caller waiting on first-try latency.
func (s *Service) GenerateDailySummary(ctx context.Context, contactID string, force bool) (core.ContactSummary, bool, error) {
	now := s.now()
	today := now.Format("2006-01-02")

	if !force {
		existing, err := s.summaries.GetSummary(ctx, contactID, today, summaryTypeDaily)
		if err == nil {
			return existing, true, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return core.ContactSummary{}, false, err
		}
	}

	cutoff := now.Add(-summaryCutoffHours * time.Hour)
	msgs, err := s.conversations.RecentMessagesSince(ctx, contactID, cutoff, 100)
	if err != nil {
		return core.ContactSummary{}, false, err
	}
	orders, err := s.orders.RecentOrdersSince(ctx, contactID, cutoff, 20)
	if err != nil {
		return core.ContactSummary{}, false, err
	}

	summary := core.ContactSummary{
		ContactID:   contactID,
		SummaryDate: today,
		SummaryType: summaryTypeDaily,
		KeyTopics:   []string{},
		ActionItems: []string{},
	}

	if len(msgs) == 0 && len(orders) == 0 {
		summary.ConversationSummary = "No recent conversations in the last 24 hours."
		summary.OrderSummary = "No recent orders in the last 24 hours."
		summary.ModelUsed = "none"
		if err := s.summaries.UpsertSummary(ctx, summary); err != nil {
			return core.ContactSummary{}, false, err
		}
		return summary, false, nil
	}

	prompt := buildSummaryPrompt(msgs, orders)
	provider := s.picker.ForTier(core.TierLight)

	var result core.ChatResult
	err = retry.NewDefaultRetrier().Do(ctx, func() error {
		var callErr error
		result, callErr = provider.Chat(ctx, core.ChatRequest{
			Messages: []core.Message{
				{Role: core.RoleSystem, Content: systemSummary},
				{Role: core.RoleUser, Content: prompt},
			},
			Temperature: 0.3,
			MaxTokens:   s.budget.MaxTokensSummary,
		})
		return callErr
	})
	if err != nil {
		return core.ContactSummary{}, false, &ModelError{Err: err}
	}

	payload := parseSummaryPayload(ctx, result.Content)

	summary.ConversationSummary = payload.ConversationSummary
	if summary.ConversationSummary == "" {
		summary.ConversationSummary = "No significant conversations."
	}
	summary.OrderSummary = payload.OrderSummary
	if summary.OrderSummary == "" {
		summary.OrderSummary = "No orders to summarize."
	}
	if payload.KeyTopics != nil {
		summary.KeyTopics = payload.KeyTopics
	}
	if payload.ActionItems != nil {
		summary.ActionItems = payload.ActionItems
	}
	summary.MessageCount = len(msgs)
	summary.OrderCount = len(orders)
	for _, o := range orders {
		summary.TotalOrderValue += o.OrderTotal
	}
	summary.ModelUsed = result.Model
	if summary.ModelUsed == "" {
		summary.ModelUsed = provider.Model()
	}
	summary.InputTokensUsed = result.PromptTokens

	if err := s.summaries.UpsertSummary(ctx, summary); err != nil {
		return core.ContactSummary{}, false, err
	}
	return summary, false, nil
}

// DailySummary returns the stored summary for a date (today when date
// is empty), or core.ErrNotFound.
func (s *Service) DailySummary(ctx context.Context, contactID, date string) (core.ContactSummary, error) {
	if date == "" {
		date = s.now().Format("2006-01-02")
	}
	return s.summaries.GetSummary(ctx, contactID, date, summaryTypeDaily)
}

func buildSummaryPrompt(msgs []core.ConvMessage, orders []core.Order) string {
	var b strings.Builder
	b.WriteString("Create a daily summary for this customer based on the following activity:\n\n")

	if len(msgs) > 0 {
		b.WriteString("RECENT CONVERSATIONS:\n")
		// storage returns newest first; replay oldest first
		for i := len(msgs) - 1; i >= 0; i-- {
			m := msgs[i]
			who := "Agent"
			if m.Direction == core.DirectionInbound {
				who = "Customer"
			}
			ts := m.CreatedAt
			if m.OccurredAt != nil {
				ts = *m.OccurredAt
			}
			fmt.Fprintf(&b, "[%s] %s: %s\n", ts.Format(time.RFC3339), who, truncateBody(m.Body, 500))
		}
		b.WriteString("\n")
	}

	if len(orders) > 0 {
		b.WriteString("RECENT ORDERS:\n")
		for _, o := range orders {
			fmt.Fprintf(&b, "Order #%s - %s - $%.2f - %s\n", o.OrderID, o.Status, o.OrderTotal, o.OrderDate)
			if o.ShippingAddressRaw != "" {
				fmt.Fprintf(&b, "Shipping: %s\n", truncateBody(o.ShippingAddressRaw, 100))
			}
		}
	}

	return b.String()
}

// parseSummaryPayload tolerates markdown-fenced or otherwise wrapped
// JSON; anything unparseable degrades to an empty payload rather than
// failing the run.
func parseSummaryPayload(ctx context.Context, content string) summaryPayload {
	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if start := strings.Index(text, "{"); start > 0 {
		text = text[start:]
	}
	if end := strings.LastIndex(text, "}"); end >= 0 && end < len(text)-1 {
		text = text[:end+1]
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("summary payload not valid JSON, storing defaults")
	}
	return payload
}
