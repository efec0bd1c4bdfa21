package core

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("not found")

type ContactsRepository interface {
	GetContact(ctx context.Context, id string) (Contact, error)
	FindByExternalID(ctx context.Context, externalID string) (Contact, error)
	// UpsertByExternalID creates the contact if missing, otherwise merges
	// the non-empty profile fields into the existing row. Returns the
	// internal id either way.
	UpsertByExternalID(ctx context.Context, externalID string, profile ContactProfile) (string, error)
	Search(ctx context.Context, query string, limit int) ([]Contact, error)
}

// ContactProfile carries the optional fields an ingestion event may
// supply for a contact. Empty fields never overwrite stored values.
type ContactProfile struct {
	Name           string
	Email          string
	Phone          string
	Company        string
	LastActivityAt *time.Time
}

type OrdersRepository interface {
	UpsertOrder(ctx context.Context, order Order) error
	// LatestOrder returns ErrNotFound when the contact has no orders.
	LatestOrder(ctx context.Context, contactID string) (Order, error)
	RecentOrders(ctx context.Context, contactID string, limit int) ([]Order, error)
	// RecentOrdersSince bounds the scan to orders dated on or after cutoff.
	RecentOrdersSince(ctx context.Context, contactID string, cutoff time.Time, limit int) ([]Order, error)
}

type ConversationsRepository interface {
	UpsertMessage(ctx context.Context, contactID string, msg ConvMessage) error
	// RecentMessages returns up to limit messages, newest first
	// (occurred_at desc, created_at desc tie-break).
	RecentMessages(ctx context.Context, contactID string, limit int) ([]ConvMessage, error)
	RecentMessagesSince(ctx context.Context, contactID string, cutoff time.Time, limit int) ([]ConvMessage, error)
}

type SessionsRepository interface {
	CreateSession(ctx context.Context, contactID, title, modelTier string) (string, error)
	GetSession(ctx context.Context, sessionID string) (ChatSession, error)
	ListSessions(ctx context.Context, contactID string, limit int) ([]ChatSession, error)
	RenameSession(ctx context.Context, sessionID, title string) error
	// DeleteSession removes the session and all of its turns.
	DeleteSession(ctx context.Context, sessionID string) error

	AppendTurn(ctx context.Context, turn ChatTurn) error
	// Turns replays the session log in ascending chronological order.
	Turns(ctx context.Context, sessionID string) ([]ChatTurn, error)
	// RecentTurns returns the last limit turns, ascending.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]ChatTurn, error)
}

type SummariesRepository interface {
	UpsertSummary(ctx context.Context, s ContactSummary) error
	GetSummary(ctx context.Context, contactID, date, summaryType string) (ContactSummary, error)
}

type UsageRepository interface {
	RecordUsage(ctx context.Context, rec UsageRecord) error
}
