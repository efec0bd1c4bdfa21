package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sandevgo/crmchat/internal/core"
)

type ContactsRepo struct {
	db *sql.DB
}

func NewContactsRepo(db *sql.DB) *ContactsRepo {
	return &ContactsRepo{db: db}
}

const contactColumns = `id, external_id, name, email, phone, company, last_activity_at`

func (r *ContactsRepo) GetContact(ctx context.Context, id string) (core.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	return scanContact(row)
}

func (r *ContactsRepo) FindByExternalID(ctx context.Context, externalID string) (core.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE external_id = ?`, externalID)
	return scanContact(row)
}

// UpsertByExternalID creates the contact if missing; otherwise merges
// the non-empty profile fields into the existing row. Concurrent
// ingestion of the same external id converges on one row.
func (r *ContactsRepo) UpsertByExternalID(ctx context.Context, externalID string, profile core.ContactProfile) (string, error) {
	if externalID == "" {
		return "", errors.New("missing external contact id")
	}

	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (id, external_id, name, email, phone, company, last_activity_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			name             = COALESCE(NULLIF(excluded.name, ''), contacts.name),
			email            = COALESCE(NULLIF(excluded.email, ''), contacts.email),
			phone            = COALESCE(NULLIF(excluded.phone, ''), contacts.phone),
			company          = COALESCE(NULLIF(excluded.company, ''), contacts.company),
			last_activity_at = COALESCE(excluded.last_activity_at, contacts.last_activity_at),
			updated_at       = datetime('now')`,
		id, externalID, profile.Name, profile.Email, profile.Phone, profile.Company,
		formatTime(profile.LastActivityAt))
	if err != nil {
		return "", fmt.Errorf("failed to upsert contact: %w", err)
	}

	// The insert may have hit the conflict branch; read back the id.
	var actualID string
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM contacts WHERE external_id = ?`, externalID).Scan(&actualID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve contact id: %w", err)
	}
	return actualID, nil
}

// Search matches name or email against the query, newest activity
// first. LIKE wildcards in the input are stripped.
func (r *ContactsRepo) Search(ctx context.Context, query string, limit int) ([]core.Contact, error) {
	safe := strings.NewReplacer("%", "", "_", "").Replace(strings.TrimSpace(query))
	if safe == "" {
		return nil, nil
	}
	pattern := "%" + safe + "%"

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE name LIKE ? COLLATE NOCASE OR email LIKE ? COLLATE NOCASE
		ORDER BY last_activity_at DESC
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search contacts: %w", err)
	}
	defer rows.Close()

	var contacts []core.Contact
	for rows.Next() {
		c, err := scanContactRows(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row *sql.Row) (core.Contact, error) {
	c, err := scanContactFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Contact{}, core.ErrNotFound
	}
	return c, err
}

func scanContactRows(rows *sql.Rows) (core.Contact, error) {
	return scanContactFrom(rows)
}

func scanContactFrom(s rowScanner) (core.Contact, error) {
	var c core.Contact
	var name, email, phone, company, lastActivity sql.NullString
	if err := s.Scan(&c.ID, &c.ExternalID, &name, &email, &phone, &company, &lastActivity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Contact{}, err
		}
		return core.Contact{}, fmt.Errorf("failed to scan contact: %w", err)
	}
	c.Name = name.String
	c.Email = email.String
	c.Phone = phone.String
	c.Company = company.String
	c.LastActivityAt = parseTime(lastActivity)
	return c, nil
}
