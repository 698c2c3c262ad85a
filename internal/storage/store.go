package storage

import (
	"context"

	"mailguard/internal/validation"
	"mailguard/pkg/platform/sentinel"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = sentinel.ErrNotFound

// Contact is a CRM contact as persisted locally.
type Contact struct {
	ID        string
	Firstname string
	Lastname  string
	Email     string
}

// Store persists contacts and their validation results.
type Store interface {
	// UpsertContact inserts or updates a contact keyed by its CRM id.
	// Contacts missing an id or email are skipped without error.
	UpsertContact(ctx context.Context, c Contact) error

	// UpsertContacts batch-upserts contacts atomically, returning the number
	// actually stored (entries with missing id/email are skipped).
	UpsertContacts(ctx context.Context, cs []Contact) (int, error)

	// PersistResult inserts or updates the validation result for a contact.
	PersistResult(ctx context.Context, contactID string, res validation.Result) error

	// Result returns the stored validation result for a contact.
	Result(ctx context.Context, contactID string) (*validation.Result, error)

	// ContactsNeedingValidation lists contacts with no stored result or a
	// result recorded for a different email than the contact's current one.
	ContactsNeedingValidation(ctx context.Context) ([]Contact, error)
}
