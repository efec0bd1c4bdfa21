package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/crmchat/internal/core"
)

// Fact resolvers answer deterministic intents straight from storage.
// They never call the model; every answer is labeled core.OriginDB.

const (
	noOrdersSentinel        = "No orders found for this contact."
	noConversationsSentinel = "No conversations found for this contact."
)

func dbAnswer(text string) Answer {
	return Answer{Text: text, Model: core.OriginDB}
}

func (s *Service) resolveShippingAddress(ctx context.Context, contactID string) (Answer, error) {
	o, err := s.orders.LatestOrder(ctx, contactID)
	if errors.Is(err, core.ErrNotFound) {
		return dbAnswer(noOrdersSentinel), nil
	}
	if err != nil {
		return Answer{}, err
	}
	addr := o.OfficialShippingAddress()
	if addr == "" {
		return dbAnswer("No shipping address found on the latest order."), nil
	}
	return dbAnswer(fmt.Sprintf("Official shipping address (latest order %s on %s):\n%s",
		o.OrderID, o.OrderDate, addr)), nil
}

func (s *Service) resolveLastOrderTotal(ctx context.Context, contactID string) (Answer, error) {
	o, err := s.orders.LatestOrder(ctx, contactID)
	if errors.Is(err, core.ErrNotFound) {
		return dbAnswer(noOrdersSentinel), nil
	}
	if err != nil {
		return Answer{}, err
	}
	parts := []string{
		fmt.Sprintf("Latest order %s on %s", o.OrderID, o.OrderDate),
		fmt.Sprintf("Total: $%.2f", o.OrderTotal),
	}
	if o.InvoiceLink != "" {
		parts = append(parts, "Invoice: "+o.InvoiceLink)
	}
	return dbAnswer(strings.Join(parts, " • ")), nil
}

func (s *Service) resolveTracking(ctx context.Context, contactID string) (Answer, error) {
	o, err := s.orders.LatestOrder(ctx, contactID)
	if errors.Is(err, core.ErrNotFound) {
		return dbAnswer(noOrdersSentinel), nil
	}
	if err != nil {
		return Answer{}, err
	}
	// Says so explicitly rather than answering with empty fields.
	if o.TrackingNumber == "" && o.TrackingLink == "" {
		return dbAnswer(fmt.Sprintf("Latest order %s has no tracking recorded.", o.OrderID)), nil
	}
	lines := []string{fmt.Sprintf("Latest order %s:", o.OrderID)}
	if o.TrackingNumber != "" {
		lines = append(lines, "Tracking #: "+o.TrackingNumber)
	}
	if o.TrackingLink != "" {
		lines = append(lines, "Link: "+o.TrackingLink)
	}
	return dbAnswer(strings.Join(lines, "\n")), nil
}

func (s *Service) resolveLastNOrders(ctx context.Context, contactID string, n int) (Answer, error) {
	orders, err := s.orders.RecentOrders(ctx, contactID, n)
	if err != nil {
		return Answer{}, err
	}
	if len(orders) == 0 {
		return dbAnswer(noOrdersSentinel), nil
	}
	lines := make([]string, 0, len(orders))
	for _, o := range orders {
		lines = append(lines, formatOrderLine(o))
	}
	return dbAnswer(fmt.Sprintf("Last %d orders:\n%s", len(orders), strings.Join(lines, "\n"))), nil
}

func formatOrderLine(o core.Order) string {
	status := o.Status
	if status == "" {
		status = "—"
	}
	return fmt.Sprintf("%s • %s • %s • $%.2f", o.OrderID, o.OrderDate, status, o.OrderTotal)
}

func (s *Service) resolveLastMessage(ctx context.Context, contactID string) (Answer, error) {
	msgs, err := s.conversations.RecentMessages(ctx, contactID, 1)
	if err != nil {
		return Answer{}, err
	}
	if len(msgs) == 0 {
		return dbAnswer(noConversationsSentinel), nil
	}
	m := msgs[0]

	header := make([]string, 0, 4)
	if m.OccurredAt != nil {
		header = append(header, m.OccurredAt.Format("2006-01-02 15:04"))
	}
	if m.Channel != "" {
		header = append(header, m.Channel)
	}
	if m.Direction != "" {
		header = append(header, m.Direction)
	}
	if m.Sender != "" {
		header = append(header, m.Sender)
	}
	body := m.Body
	if body == "" {
		body = "(no body)"
	}
	return dbAnswer(strings.Join(header, " • ") + "\n" + body), nil
}

func (s *Service) resolveLastContactDate(ctx context.Context, contactID string) (Answer, error) {
	msgs, err := s.conversations.RecentMessages(ctx, contactID, 1)
	if err != nil {
		return Answer{}, err
	}
	if len(msgs) == 0 {
		return dbAnswer(noConversationsSentinel), nil
	}
	// Human-readable, not ISO: this answer is shown to the agent as-is.
	when := "(no timestamp)"
	if msgs[0].OccurredAt != nil {
		when = msgs[0].OccurredAt.Format("Jan 2, 2006 3:04 PM")
	}
	return dbAnswer("Last contact: " + when), nil
}

func (s *Service) resolveListRecent(ctx context.Context, contactID string, n int) (Answer, error) {
	msgs, err := s.conversations.RecentMessages(ctx, contactID, n)
	if err != nil {
		return Answer{}, err
	}
	if len(msgs) == 0 {
		return dbAnswer(noConversationsSentinel), nil
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, s.formatMessageLine(m))
	}
	return dbAnswer(fmt.Sprintf("Last %d messages:\n%s", len(msgs), strings.Join(lines, "\n"))), nil
}
