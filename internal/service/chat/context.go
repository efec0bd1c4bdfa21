package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandevgo/crmchat/internal/core"
)

const (
	noRecentMessages = "(no recent messages)"
	noRecentOrders   = "(no recent orders)"
	truncationMarker = "…"
)

// ContextWindow is the bounded textual snapshot handed to the model
// for context-backed intents.
type ContextWindow struct {
	ProfileText  string
	OrdersText   string
	MessagesLog  string
	MessageCount int
}

// buildContext assembles the window for one contact. The two storage
// reads are independent, so they run concurrently; formatting happens
// after both complete. Per-field budgets here are the primary defense
// against unbounded growth — downstream only the prompt-level trim
// applies.
func (s *Service) buildContext(ctx context.Context, contact core.Contact) (ContextWindow, error) {
	cutoff := s.now().AddDate(0, 0, -s.budget.LookbackDays)

	var (
		msgs   []core.ConvMessage
		orders []core.Order
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		msgs, err = s.conversations.RecentMessagesSince(gctx, contact.ID, cutoff, s.budget.MaxContextMessages)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = s.orders.RecentOrders(gctx, contact.ID, s.budget.MaxContextOrders)
		return err
	})
	if err := g.Wait(); err != nil {
		return ContextWindow{}, fmt.Errorf("failed to build context: %w", err)
	}

	return ContextWindow{
		ProfileText:  formatProfile(contact),
		OrdersText:   s.formatOrders(orders),
		MessagesLog:  s.formatMessagesLog(msgs),
		MessageCount: len(msgs),
	}, nil
}

func formatProfile(c core.Contact) string {
	field := func(v string) string {
		if v == "" {
			return "Unknown"
		}
		return v
	}
	lastActivity := "Unknown"
	if c.LastActivityAt != nil {
		lastActivity = c.LastActivityAt.Format(time.RFC3339)
	}
	return strings.Join([]string{
		"- Name: " + field(c.Name),
		"- Email: " + field(c.Email),
		"- Company: " + field(c.Company),
		"- Last Activity: " + lastActivity,
	}, "\n")
}

func (s *Service) formatOrders(orders []core.Order) string {
	if len(orders) == 0 {
		return noRecentOrders
	}
	lines := make([]string, 0, len(orders))
	for _, o := range orders {
		lines = append(lines, formatOrderLine(o))
	}
	return strings.Join(lines, "\n")
}

// formatMessagesLog renders messages oldest→newest for readability.
// Storage hands them back newest-first, so the slice is reversed before
// joining.
func (s *Service) formatMessagesLog(msgs []core.ConvMessage) string {
	if len(msgs) == 0 {
		return noRecentMessages
	}
	lines := make([]string, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		lines = append(lines, s.formatMessageLine(msgs[i]))
	}
	return strings.Join(lines, "\n")
}

func (s *Service) formatMessageLine(m core.ConvMessage) string {
	stamp := "unknown time"
	if m.OccurredAt != nil {
		stamp = m.OccurredAt.UTC().Format(time.RFC3339)
	}

	who := m.Sender
	if who == "" {
		if m.Direction == core.DirectionInbound {
			who = "Customer"
		} else {
			who = "Agent"
		}
	}

	channel := m.Channel
	if channel == "" {
		channel = "msg"
	}

	body := m.Body
	if body == "" {
		body = "(no content)"
	}
	body = truncateBody(body, s.budget.MessageCharBudget)

	return fmt.Sprintf("[%s] %s (%s): %s", stamp, who, channel, body)
}

// truncateBody cuts at the rune boundary nearest the character budget
// and appends a single ellipsis marker.
func truncateBody(body string, budget int) string {
	if budget <= 0 {
		return body
	}
	runes := []rune(body)
	if len(runes) <= budget {
		return body
	}
	return string(runes[:budget]) + truncationMarker
}

// trimToBudget enforces the per-tier prompt token ceiling over an
// assembled window. Profile gets at most 10% of the budget, orders 30%;
// messages take the remainder minus a reserve for the response. The
// message trim is tail-preferring: lines are kept newest-first.
func (s *Service) trimToBudget(win ContextWindow, tier string) ContextWindow {
	limit := s.budget.TokenLimitForTier(tier)
	used := 0

	profileBudget := limit / 10
	win.ProfileText = trimHead(win.ProfileText, profileBudget)
	used += countTokens(win.ProfileText)

	ordersBudget := limit * 3 / 10
	if countTokens(win.OrdersText) > ordersBudget {
		win.OrdersText = trimHead(win.OrdersText, ordersBudget)
	}
	used += countTokens(win.OrdersText)

	const responseReserve = 500
	msgBudget := limit - used - responseReserve
	if msgBudget < 0 {
		msgBudget = 0
	}
	win.MessagesLog = trimTail(win.MessagesLog, msgBudget)
	return win
}

// trimHead keeps leading lines while they fit: the cheapest profile
// fields come first, so head-preferring keeps them.
func trimHead(text string, budget int) string {
	if countTokens(text) <= budget {
		return text
	}
	var kept []string
	used := 0
	for _, line := range strings.Split(text, "\n") {
		cost := countTokens(line)
		if used+cost > budget {
			break
		}
		kept = append(kept, line)
		used += cost
	}
	return strings.Join(kept, "\n")
}

// trimTail keeps trailing lines while they fit: the log is ordered
// oldest→newest, so the most recent messages survive.
func trimTail(text string, budget int) string {
	if countTokens(text) <= budget {
		return text
	}
	lines := strings.Split(text, "\n")
	var kept []string
	used := 0
	for i := len(lines) - 1; i >= 0; i-- {
		cost := countTokens(lines[i])
		if used+cost > budget {
			break
		}
		kept = append([]string{lines[i]}, kept...)
		used += cost
	}
	return strings.Join(kept, "\n")
}
