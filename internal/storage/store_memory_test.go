package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailguard/internal/validation"
)

func newMemory() *MemoryStore {
	return NewMemoryStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestUpsertContactSkipsIncomplete(t *testing.T) {
	s := newMemory()
	ctx := context.Background()

	require.NoError(t, s.UpsertContact(ctx, Contact{ID: "", Email: "a@b.com"}))
	require.NoError(t, s.UpsertContact(ctx, Contact{ID: "1", Email: ""}))
	assert.Zero(t, s.Len())

	require.NoError(t, s.UpsertContact(ctx, Contact{ID: "1", Email: "a@b.com"}))
	assert.Equal(t, 1, s.Len())
}

func TestUpsertContactIsIdempotent(t *testing.T) {
	s := newMemory()
	ctx := context.Background()

	require.NoError(t, s.UpsertContact(ctx, Contact{ID: "1", Firstname: "Ada", Email: "ada@corp.org"}))
	require.NoError(t, s.UpsertContact(ctx, Contact{ID: "1", Firstname: "Ada", Email: "ada@new.org"}))

	c, ok := s.Contact("1")
	require.True(t, ok)
	assert.Equal(t, "ada@new.org", c.Email)
	assert.Equal(t, 1, s.Len())
}

func TestUpsertContactsBatch(t *testing.T) {
	s := newMemory()

	n, err := s.UpsertContacts(context.Background(), []Contact{
		{ID: "1", Email: "a@corp.org"},
		{ID: "", Email: "skip@corp.org"},
		{ID: "2", Email: "b@corp.org"},
		{ID: "3", Email: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, s.Len())
}

func TestPersistResultUpserts(t *testing.T) {
	s := newMemory()
	ctx := context.Background()

	require.NoError(t, s.PersistResult(ctx, "1", validation.Result{
		Email: "a@corp.org", Status: validation.StatusError, Message: "Domain has no valid MX records.",
	}))
	require.NoError(t, s.PersistResult(ctx, "1", validation.Result{
		Email: "a@corp.org", Status: validation.StatusValid, Message: "Email appears valid.",
	}))

	res, err := s.Result(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, validation.StatusValid, res.Status)

	_, err = s.Result(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContactsNeedingValidation(t *testing.T) {
	s := newMemory()
	ctx := context.Background()

	require.NoError(t, s.UpsertContact(ctx, Contact{ID: "1", Email: "fresh@corp.org"}))
	require.NoError(t, s.UpsertContact(ctx, Contact{ID: "2", Email: "validated@corp.org"}))
	require.NoError(t, s.UpsertContact(ctx, Contact{ID: "3", Email: "changed@corp.org"}))

	require.NoError(t, s.PersistResult(ctx, "2", validation.Result{Email: "validated@corp.org", Status: validation.StatusValid}))
	require.NoError(t, s.PersistResult(ctx, "3", validation.Result{Email: "old@corp.org", Status: validation.StatusValid}))

	pending, err := s.ContactsNeedingValidation(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "1", pending[0].ID, "no result yet")
	assert.Equal(t, "3", pending[1].ID, "stale result for previous email")
}
