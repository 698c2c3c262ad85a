package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailguard/internal/audit"
	"mailguard/internal/crm"
	"mailguard/internal/storage"
	"mailguard/internal/validation"
)

type stubValidator struct {
	result validation.Result
	checkFn func(ctx context.Context, email string) validation.Result
	calls  int
}

func (s *stubValidator) Check(ctx context.Context, email string) validation.Result {
	s.calls++
	if s.checkFn != nil {
		return s.checkFn(ctx, email)
	}
	res := s.result
	res.Email = email
	return res
}

type stubStore struct {
	upsertErr  error
	persistErr error
	upsertFn   func(c storage.Contact) error

	calls     []string
	contacts  []storage.Contact
	results   map[string]validation.Result
	pending   []storage.Contact
	batchSize int
}

func newStubStore() *stubStore {
	return &stubStore{results: map[string]validation.Result{}}
}

func (s *stubStore) UpsertContact(_ context.Context, c storage.Contact) error {
	s.calls = append(s.calls, "contact_upsert")
	if s.upsertFn != nil {
		return s.upsertFn(c)
	}
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.contacts = append(s.contacts, c)
	return nil
}

func (s *stubStore) UpsertContacts(_ context.Context, cs []storage.Contact) (int, error) {
	s.calls = append(s.calls, "batch_upsert")
	stored := 0
	for _, c := range cs {
		if c.ID == "" || c.Email == "" {
			continue
		}
		s.contacts = append(s.contacts, c)
		stored++
	}
	s.batchSize = stored
	return stored, nil
}

func (s *stubStore) PersistResult(_ context.Context, contactID string, res validation.Result) error {
	s.calls = append(s.calls, "result_persist")
	if s.persistErr != nil {
		return s.persistErr
	}
	s.results[contactID] = res
	return nil
}

func (s *stubStore) ContactsNeedingValidation(context.Context) ([]storage.Contact, error) {
	return s.pending, nil
}

type stubCRM struct {
	updateErr error
	skip      bool
	panicWith any
	listed    []crm.Contact
	listErr   error

	calls   *[]string
	updates []map[string]string
}

func (s *stubCRM) UpdateContactProperties(_ context.Context, contactID string, props map[string]string) (*crm.Contact, error) {
	if s.calls != nil {
		*s.calls = append(*s.calls, "crm_update")
	}
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	if s.skip {
		return nil, nil
	}
	s.updates = append(s.updates, props)
	return &crm.Contact{ID: contactID, Properties: props}, nil
}

func (s *stubCRM) ListContacts(context.Context, int) ([]crm.Contact, error) {
	return s.listed, s.listErr
}

func validResult() validation.Result {
	return validation.Result{
		Domain:  "corp.org",
		MXValid: true,
		Status:  validation.StatusValid,
		Message: "Email appears valid.",
	}
}

func newTestOrchestrator(v *stubValidator, s *stubStore, c *stubCRM, sink *audit.MemorySink) *Orchestrator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var pub *audit.Publisher
	if sink != nil {
		pub = audit.NewPublisher(sink)
	}
	c.calls = &s.calls
	return New(v, s, c, pub, logger, nil)
}

func TestValidateAndSyncMissingIDOrEmail(t *testing.T) {
	validator := &stubValidator{result: validResult()}
	store := newStubStore()
	sink := audit.NewMemorySink()
	o := newTestOrchestrator(validator, store, &stubCRM{}, sink)

	for _, req := range []validation.SyncRequest{
		{ID: "", Email: "user@corp.org"},
		{ID: "42", Email: ""},
	} {
		res := o.ValidateAndSync(context.Background(), req)
		assert.Equal(t, validation.StatusError, res.Status)
		assert.Equal(t, "Missing contact ID or email for sync process.", res.Message)
		assert.Equal(t, req.Email, res.Email)
	}

	assert.Zero(t, validator.calls, "no validation on malformed request")
	assert.Empty(t, store.calls, "no sync attempts on malformed request")
	assert.Empty(t, sink.Events(), "no audit event on malformed request")
}

func TestValidateAndSyncHappyPath(t *testing.T) {
	store := newStubStore()
	crmStub := &stubCRM{}
	sink := audit.NewMemorySink()
	o := newTestOrchestrator(&stubValidator{result: validResult()}, store, crmStub, sink)

	res := o.ValidateAndSync(context.Background(), validation.SyncRequest{
		ID: "42", Email: "user@corp.org", Firstname: "Ada", Lastname: "Lovelace",
	})

	assert.Equal(t, validation.StatusValid, res.Status)
	assert.Empty(t, res.SyncError)
	assert.Equal(t, []string{"contact_upsert", "result_persist", "crm_update"}, store.calls)

	require.Len(t, store.contacts, 1)
	assert.Equal(t, "Ada", store.contacts[0].Firstname)
	assert.Equal(t, "user@corp.org", store.contacts[0].Email)

	stored, ok := store.results["42"]
	require.True(t, ok)
	assert.Equal(t, validation.StatusValid, stored.Status)

	require.Len(t, crmStub.updates, 1)
	assert.Equal(t, map[string]string{
		crm.PropertyMXValid:        "true",
		crm.PropertyIsDisposable:   "false",
		crm.PropertyIsBlacklisted:  "false",
		crm.PropertyIsFreeProvider: "false",
		crm.PropertyStatus:         "valid",
		crm.PropertyMessage:        "Email appears valid.",
	}, crmStub.updates[0])

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "42", events[0].ContactID)
	assert.Equal(t, "valid", events[0].Status)
	assert.Empty(t, events[0].SyncError)
}

func TestValidateAndSyncCRMFailureIsIsolated(t *testing.T) {
	store := newStubStore()
	crmStub := &stubCRM{updateErr: crm.NewError(crm.CategoryServer, "status 500", nil)}
	o := newTestOrchestrator(&stubValidator{result: validResult()}, store, crmStub, nil)

	res := o.ValidateAndSync(context.Background(), validation.SyncRequest{ID: "42", Email: "user@corp.org"})

	assert.Equal(t, validation.StatusValid, res.Status, "classification survives sync failure")
	assert.Contains(t, res.SyncError, "CRM update failed (server)")
	assert.NotContains(t, res.SyncError, "Contact upsert")
	assert.NotContains(t, res.SyncError, ";")
	assert.Len(t, store.contacts, 1, "earlier targets still ran")
	assert.Contains(t, store.results, "42")
}

func TestValidateAndSyncAllTargetsFailInOrder(t *testing.T) {
	store := newStubStore()
	store.upsertErr = errors.New("db down")
	store.persistErr = errors.New("db still down")
	crmStub := &stubCRM{updateErr: crm.NewError(crm.CategoryAuth, "status 401", nil)}
	o := newTestOrchestrator(&stubValidator{result: validResult()}, store, crmStub, nil)

	res := o.ValidateAndSync(context.Background(), validation.SyncRequest{ID: "42", Email: "user@corp.org"})

	require.NotEmpty(t, res.SyncError)
	first := "Contact upsert failed"
	second := "Validation result persist failed"
	third := "CRM update failed (auth)"
	assert.Contains(t, res.SyncError, first)
	assert.Contains(t, res.SyncError, second)
	assert.Contains(t, res.SyncError, third)
	assert.Less(t, strings.Index(res.SyncError, first), strings.Index(res.SyncError, second))
	assert.Less(t, strings.Index(res.SyncError, second), strings.Index(res.SyncError, third))
	assert.Equal(t, []string{"contact_upsert", "result_persist", "crm_update"}, store.calls,
		"every target is attempted despite earlier failures")
}

func TestValidateAndSyncCRMSkipIsNotAnError(t *testing.T) {
	store := newStubStore()
	o := newTestOrchestrator(&stubValidator{result: validResult()}, store, &stubCRM{skip: true}, nil)

	res := o.ValidateAndSync(context.Background(), validation.SyncRequest{ID: "42", Email: "user@corp.org"})
	assert.Empty(t, res.SyncError)
}

func TestValidateAndSyncRecoversValidatorPanic(t *testing.T) {
	validator := &stubValidator{checkFn: func(context.Context, string) validation.Result {
		panic("checker exploded")
	}}
	sink := audit.NewMemorySink()
	o := newTestOrchestrator(validator, newStubStore(), &stubCRM{}, sink)

	res := o.ValidateAndSync(context.Background(), validation.SyncRequest{ID: "42", Email: "user@corp.org"})

	assert.Equal(t, validation.StatusError, res.Status)
	assert.Equal(t, "Orchestration failed: checker exploded", res.Message)
	assert.Equal(t, "user@corp.org", res.Email)
	assert.Empty(t, res.SyncError)

	events := sink.Events()
	require.Len(t, events, 1, "panic runs still emit an event")
	assert.Equal(t, "error", events[0].Status)
}

func TestValidateAndSyncPanicPreservesAccumulatedSyncErrors(t *testing.T) {
	store := newStubStore()
	store.upsertErr = errors.New("db down")
	crmStub := &stubCRM{panicWith: "nil map write"}
	o := newTestOrchestrator(&stubValidator{result: validResult()}, store, crmStub, nil)

	res := o.ValidateAndSync(context.Background(), validation.SyncRequest{ID: "42", Email: "user@corp.org"})

	assert.Equal(t, "Orchestration failed: nil map write", res.Message)
	assert.Contains(t, res.SyncError, "Contact upsert failed")
}

func TestRevalidateStale(t *testing.T) {
	store := newStubStore()
	store.pending = []storage.Contact{
		{ID: "1", Email: "a@corp.org"},
		{ID: "2", Email: "b@corp.org"},
	}
	o := newTestOrchestrator(&stubValidator{result: validResult()}, store, &stubCRM{}, nil)

	results, err := o.RevalidateStale(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a@corp.org", results[0].Email)
	assert.Contains(t, store.results, "1")
	assert.Contains(t, store.results, "2")
}

func TestImportContacts(t *testing.T) {
	store := newStubStore()
	crmStub := &stubCRM{listed: []crm.Contact{
		{ID: "1", Properties: map[string]string{"email": "a@corp.org", "firstname": "Ada"}},
		{ID: "2", Properties: map[string]string{}}, // no email, skipped by the store
		{ID: "3", Properties: map[string]string{"email": "c@corp.org"}},
	}}
	o := newTestOrchestrator(&stubValidator{result: validResult()}, store, crmStub, nil)

	n, err := o.ImportContacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, store.contacts, 2)
	assert.Equal(t, "Ada", store.contacts[0].Firstname)

	// Nameless CRM records get a placeholder name derived from the email.
	assert.Equal(t, "C", store.contacts[1].Firstname)
	assert.Equal(t, "User", store.contacts[1].Lastname)
}

func TestImportContactsListFailure(t *testing.T) {
	crmStub := &stubCRM{listErr: crm.NewError(crm.CategoryRateLimit, "status 429", nil)}
	o := newTestOrchestrator(&stubValidator{result: validResult()}, newStubStore(), crmStub, nil)

	_, err := o.ImportContacts(context.Background())
	require.Error(t, err)
	assert.Equal(t, crm.CategoryRateLimit, crm.CategoryOf(err))
}
