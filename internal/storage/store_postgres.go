package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"mailguard/internal/validation"
	"mailguard/pkg/platform/tx"
)

// PostgresStore persists contacts and validation results in PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore constructs a PostgreSQL-backed store.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction carried on the context when one is present,
// otherwise the pooled connection.
func (s *PostgresStore) conn(ctx context.Context) querier {
	if txn, ok := tx.From(ctx); ok {
		return txn
	}
	return s.db
}

// EnsureSchema creates the contacts and validation_results tables if they do
// not exist. Safe to run on every startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS contacts (
    contact_id VARCHAR(100) PRIMARY KEY,
    firstname  TEXT,
    lastname   TEXT,
    email      TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS validation_results (
    contact_id       VARCHAR(100) PRIMARY KEY,
    email            TEXT NOT NULL,
    domain           TEXT NOT NULL DEFAULT '',
    mx_valid         BOOLEAN NOT NULL DEFAULT false,
    is_disposable    BOOLEAN NOT NULL DEFAULT false,
    is_blacklisted   BOOLEAN NOT NULL DEFAULT false,
    is_free_provider BOOLEAN NOT NULL DEFAULT false,
    status           TEXT NOT NULL,
    message          TEXT NOT NULL DEFAULT '',
    checked_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertContact(ctx context.Context, c Contact) error {
	if c.ID == "" || c.Email == "" {
		s.logger.WarnContext(ctx, "skipping contact upsert with missing id or email",
			"contact_id", c.ID,
		)
		return nil
	}
	const q = `
INSERT INTO contacts (contact_id, firstname, lastname, email)
VALUES ($1, $2, $3, $4)
ON CONFLICT (contact_id) DO UPDATE SET
    firstname  = EXCLUDED.firstname,
    lastname   = EXCLUDED.lastname,
    email      = EXCLUDED.email,
    updated_at = now()`
	if _, err := s.conn(ctx).ExecContext(ctx, q, c.ID, c.Firstname, c.Lastname, c.Email); err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertContacts(ctx context.Context, cs []Contact) (int, error) {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin batch upsert: %w", err)
	}
	defer txn.Rollback() //nolint:errcheck // no-op after commit

	txCtx := tx.WithTx(ctx, txn)
	stored := 0
	for _, c := range cs {
		if c.ID == "" || c.Email == "" {
			s.logger.WarnContext(ctx, "skipping contact in batch with missing id or email",
				"contact_id", c.ID,
			)
			continue
		}
		if err := s.UpsertContact(txCtx, c); err != nil {
			return 0, fmt.Errorf("batch upsert contact %s: %w", c.ID, err)
		}
		stored++
	}

	if err := txn.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch upsert: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) PersistResult(ctx context.Context, contactID string, res validation.Result) error {
	const q = `
INSERT INTO validation_results
    (contact_id, email, domain, mx_valid, is_disposable, is_blacklisted, is_free_provider, status, message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (contact_id) DO UPDATE SET
    email            = EXCLUDED.email,
    domain           = EXCLUDED.domain,
    mx_valid         = EXCLUDED.mx_valid,
    is_disposable    = EXCLUDED.is_disposable,
    is_blacklisted   = EXCLUDED.is_blacklisted,
    is_free_provider = EXCLUDED.is_free_provider,
    status           = EXCLUDED.status,
    message          = EXCLUDED.message,
    checked_at       = now()`
	_, err := s.conn(ctx).ExecContext(ctx, q,
		contactID, res.Email, res.Domain,
		res.MXValid, res.IsDisposable, res.IsBlacklisted, res.IsFreeProvider,
		string(res.Status), res.Message,
	)
	if err != nil {
		return fmt.Errorf("persist validation result: %w", err)
	}
	return nil
}

func (s *PostgresStore) Result(ctx context.Context, contactID string) (*validation.Result, error) {
	const q = `
SELECT email, domain, mx_valid, is_disposable, is_blacklisted, is_free_provider, status, message
FROM validation_results
WHERE contact_id = $1`
	var (
		res    validation.Result
		status string
	)
	err := s.conn(ctx).QueryRowContext(ctx, q, contactID).Scan(
		&res.Email, &res.Domain,
		&res.MXValid, &res.IsDisposable, &res.IsBlacklisted, &res.IsFreeProvider,
		&status, &res.Message,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load validation result: %w", err)
	}
	res.Status = validation.Status(status)
	return &res, nil
}

func (s *PostgresStore) ContactsNeedingValidation(ctx context.Context) ([]Contact, error) {
	const q = `
SELECT c.contact_id, c.firstname, c.lastname, c.email
FROM contacts c
LEFT JOIN validation_results vr ON vr.contact_id = c.contact_id
WHERE vr.contact_id IS NULL OR vr.email <> c.email
ORDER BY c.contact_id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list contacts needing validation: %w", err)
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Firstname, &c.Lastname, &c.Email); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}

// Health checks database reachability for readiness probes.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
