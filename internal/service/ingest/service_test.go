package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sandevgo/crmchat/internal/core"
)

type fakeContacts struct {
	byExternal map[string]core.Contact
	upserts    []core.ContactProfile
}

func (f *fakeContacts) GetContact(context.Context, string) (core.Contact, error) {
	return core.Contact{}, core.ErrNotFound
}

func (f *fakeContacts) FindByExternalID(_ context.Context, externalID string) (core.Contact, error) {
	c, ok := f.byExternal[externalID]
	if !ok {
		return core.Contact{}, core.ErrNotFound
	}
	return c, nil
}

func (f *fakeContacts) UpsertByExternalID(_ context.Context, externalID string, profile core.ContactProfile) (string, error) {
	f.upserts = append(f.upserts, profile)
	if c, ok := f.byExternal[externalID]; ok {
		return c.ID, nil
	}
	id := "c-" + externalID
	if f.byExternal == nil {
		f.byExternal = make(map[string]core.Contact)
	}
	f.byExternal[externalID] = core.Contact{ID: id, ExternalID: externalID}
	return id, nil
}

func (f *fakeContacts) Search(context.Context, string, int) ([]core.Contact, error) {
	return nil, nil
}

type fakeOrders struct {
	saved []core.Order
}

func (f *fakeOrders) UpsertOrder(_ context.Context, o core.Order) error {
	f.saved = append(f.saved, o)
	return nil
}

func (f *fakeOrders) LatestOrder(context.Context, string) (core.Order, error) {
	return core.Order{}, core.ErrNotFound
}

func (f *fakeOrders) RecentOrders(context.Context, string, int) ([]core.Order, error) {
	return nil, nil
}

func (f *fakeOrders) RecentOrdersSince(context.Context, string, time.Time, int) ([]core.Order, error) {
	return nil, nil
}

type fakeConversations struct {
	saved     []core.ConvMessage
	contactID string
}

func (f *fakeConversations) UpsertMessage(_ context.Context, contactID string, m core.ConvMessage) error {
	f.contactID = contactID
	f.saved = append(f.saved, m)
	return nil
}

func (f *fakeConversations) RecentMessages(context.Context, string, int) ([]core.ConvMessage, error) {
	return nil, nil
}

func (f *fakeConversations) RecentMessagesSince(context.Context, string, time.Time, int) ([]core.ConvMessage, error) {
	return nil, nil
}

func TestIngestOrder_Validation(t *testing.T) {
	t.Parallel()
	svc := NewService(&fakeContacts{}, &fakeOrders{}, &fakeConversations{})

	err := svc.IngestOrder(context.Background(), OrderEvent{Order: core.Order{OrderID: "o-1"}})
	if !errors.Is(err, ErrMissingContactID) {
		t.Errorf("expected ErrMissingContactID, got %v", err)
	}
	err = svc.IngestOrder(context.Background(), OrderEvent{ExternalContactID: "ghl-1"})
	if !errors.Is(err, ErrMissingOrderID) {
		t.Errorf("expected ErrMissingOrderID, got %v", err)
	}
}

func TestIngestOrder_AttachesContact(t *testing.T) {
	t.Parallel()
	orders := &fakeOrders{}
	svc := NewService(&fakeContacts{}, orders, &fakeConversations{})

	err := svc.IngestOrder(context.Background(), OrderEvent{
		ExternalContactID: "ghl-1",
		Contact:           ContactPayload{Name: "Jane Doe"},
		Order:             core.Order{OrderID: "o-1", OrderTotal: 149.99},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders.saved) != 1 {
		t.Fatalf("orders saved = %d, want 1", len(orders.saved))
	}
	if orders.saved[0].ContactID != "c-ghl-1" {
		t.Errorf("order contact id = %q, want the resolved internal id", orders.saved[0].ContactID)
	}
}

func TestIngestMessage_Validation(t *testing.T) {
	t.Parallel()
	svc := NewService(&fakeContacts{}, &fakeOrders{}, &fakeConversations{})

	err := svc.IngestMessage(context.Background(), MessageEvent{Message: core.ConvMessage{ExternalID: "m-1"}})
	if !errors.Is(err, ErrMissingContactID) {
		t.Errorf("expected ErrMissingContactID, got %v", err)
	}
	err = svc.IngestMessage(context.Background(), MessageEvent{ExternalContactID: "ghl-1"})
	if !errors.Is(err, ErrMissingMessageID) {
		t.Errorf("expected ErrMissingMessageID, got %v", err)
	}
}

func TestIngestMessage_UnknownContactWithoutProfile(t *testing.T) {
	t.Parallel()
	svc := NewService(&fakeContacts{}, &fakeOrders{}, &fakeConversations{})

	err := svc.IngestMessage(context.Background(), MessageEvent{
		ExternalContactID: "ghl-unknown",
		Message:           core.ConvMessage{ExternalID: "m-1", Body: "hello"},
	})
	if !errors.Is(err, ErrUnknownContact) {
		t.Errorf("expected ErrUnknownContact, got %v", err)
	}
}

func TestIngestMessage_CreatesContactWithProfile(t *testing.T) {
	t.Parallel()
	contacts := &fakeContacts{}
	convs := &fakeConversations{}
	svc := NewService(contacts, &fakeOrders{}, convs)

	err := svc.IngestMessage(context.Background(), MessageEvent{
		ExternalContactID: "ghl-2",
		Contact:           ContactPayload{Name: "Bob", Email: "bob@acme.test"},
		Message:           core.ConvMessage{ExternalID: "m-9", Channel: "sms", Body: "hi"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contacts.upserts) != 1 || contacts.upserts[0].Name != "Bob" {
		t.Errorf("profile was not merged: %+v", contacts.upserts)
	}
	if convs.contactID != "c-ghl-2" {
		t.Errorf("message stored under %q, want resolved id", convs.contactID)
	}
}

func TestIngestMessage_FlattensEmailHTML(t *testing.T) {
	t.Parallel()
	convs := &fakeConversations{}
	svc := NewService(&fakeContacts{byExternal: map[string]core.Contact{
		"ghl-1": {ID: "c-1", ExternalID: "ghl-1"},
	}}, &fakeOrders{}, convs)

	err := svc.IngestMessage(context.Background(), MessageEvent{
		ExternalContactID: "ghl-1",
		Message: core.ConvMessage{
			ExternalID: "m-1",
			Channel:    "email",
			Body:       "<html><body><p>Please resend the <b>invoice</b>.</p></body></html>",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := convs.saved[0].Body
	if strings.Contains(body, "<") {
		t.Errorf("email body still contains markup: %q", body)
	}
	if !strings.Contains(body, "invoice") {
		t.Errorf("text content lost: %q", body)
	}
}

func TestIngestMessage_NonEmailBodyUntouched(t *testing.T) {
	t.Parallel()
	convs := &fakeConversations{}
	svc := NewService(&fakeContacts{byExternal: map[string]core.Contact{
		"ghl-1": {ID: "c-1", ExternalID: "ghl-1"},
	}}, &fakeOrders{}, convs)

	raw := "price < 100 for <urgent> order"
	err := svc.IngestMessage(context.Background(), MessageEvent{
		ExternalContactID: "ghl-1",
		Message:           core.ConvMessage{ExternalID: "m-1", Channel: "sms", Body: raw},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if convs.saved[0].Body != raw {
		t.Errorf("sms body modified: %q", convs.saved[0].Body)
	}
}
