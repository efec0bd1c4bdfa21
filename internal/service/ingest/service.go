// Package ingest receives CRM webhook events and writes them into
// storage: orders keyed by order id, conversation messages keyed by
// external message id, contacts created or merged on the fly by their
// external CRM id. Replays are idempotent.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/inbucket/html2text"

	"github.com/sandevgo/crmchat/internal/core"
	"github.com/sandevgo/crmchat/pkg/log"
)

var (
	ErrMissingContactID = errors.New("external_contact_id required")
	ErrMissingOrderID   = errors.New("order.order_id required")
	ErrMissingMessageID = errors.New("message.external_message_id required")
	// ErrUnknownContact is returned when a message event carries no
	// profile data and no contact exists for its external id.
	ErrUnknownContact = errors.New("contact not found, import contacts first")
)

// ContactPayload is the optional profile block of an ingestion event.
type ContactPayload struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

func (p ContactPayload) empty() bool {
	return p.Name == "" && p.Email == "" && p.Phone == "" && p.Company == ""
}

func (p ContactPayload) profile() core.ContactProfile {
	return core.ContactProfile{
		Name:    p.Name,
		Email:   p.Email,
		Phone:   p.Phone,
		Company: p.Company,
	}
}

// OrderEvent is one order webhook.
type OrderEvent struct {
	ExternalContactID string         `json:"external_contact_id"`
	Contact           ContactPayload `json:"contact"`
	Order             core.Order     `json:"order"`
}

// MessageEvent is one conversation webhook.
type MessageEvent struct {
	ExternalContactID string           `json:"external_contact_id"`
	Contact           ContactPayload   `json:"contact"`
	Message           core.ConvMessage `json:"message"`
}

type Service struct {
	contacts      core.ContactsRepository
	orders        core.OrdersRepository
	conversations core.ConversationsRepository
}

func NewService(
	contacts core.ContactsRepository,
	orders core.OrdersRepository,
	conversations core.ConversationsRepository,
) *Service {
	return &Service{
		contacts:      contacts,
		orders:        orders,
		conversations: conversations,
	}
}

// IngestOrder upserts the event's order, creating or merging the
// contact first. Re-delivery of the same order id overwrites in place.
func (s *Service) IngestOrder(ctx context.Context, ev OrderEvent) error {
	if ev.ExternalContactID == "" {
		return ErrMissingContactID
	}
	if ev.Order.OrderID == "" {
		return ErrMissingOrderID
	}

	contactID, err := s.contacts.UpsertByExternalID(ctx, ev.ExternalContactID, ev.Contact.profile())
	if err != nil {
		return fmt.Errorf("failed to resolve contact: %w", err)
	}

	order := ev.Order
	order.ContactID = contactID
	if err := s.orders.UpsertOrder(ctx, order); err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}

	log.FromCtx(ctx).Debug().
		Str("order_id", order.OrderID).
		Str("contact_id", contactID).
		Msg("order ingested")
	return nil
}

// IngestMessage upserts the event's conversation message. When the
// event carries profile data the contact is created or merged; without
// it the contact must already exist. Email-channel HTML bodies are
// flattened to plain text before storage.
func (s *Service) IngestMessage(ctx context.Context, ev MessageEvent) error {
	if ev.ExternalContactID == "" {
		return ErrMissingContactID
	}
	if ev.Message.ExternalID == "" {
		return ErrMissingMessageID
	}

	var contactID string
	if !ev.Contact.empty() {
		id, err := s.contacts.UpsertByExternalID(ctx, ev.ExternalContactID, ev.Contact.profile())
		if err != nil {
			return fmt.Errorf("failed to resolve contact: %w", err)
		}
		contactID = id
	} else {
		contact, err := s.contacts.FindByExternalID(ctx, ev.ExternalContactID)
		if errors.Is(err, core.ErrNotFound) {
			return ErrUnknownContact
		}
		if err != nil {
			return fmt.Errorf("failed to look up contact: %w", err)
		}
		contactID = contact.ID
	}

	msg := ev.Message
	msg.Body = normalizeBody(ctx, msg.Channel, msg.Body)

	if err := s.conversations.UpsertMessage(ctx, contactID, msg); err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}

	log.FromCtx(ctx).Debug().
		Str("external_message_id", msg.ExternalID).
		Str("contact_id", contactID).
		Str("channel", msg.Channel).
		Msg("message ingested")
	return nil
}

// normalizeBody flattens email HTML to plain text. Other channels pass
// through untouched; a conversion failure keeps the original body.
func normalizeBody(ctx context.Context, channel, body string) string {
	if !strings.EqualFold(channel, "email") || !strings.Contains(body, "<") {
		return body
	}
	text, err := html2text.FromString(body, html2text.Options{OmitLinks: true})
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("failed to flatten email html, storing raw body")
		return body
	}
	return text
}
