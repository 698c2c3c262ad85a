// Package orchestrator runs the validate-and-sync pipeline: classify an
// email, then push the outcome to storage and the CRM. Sync targets fail
// independently; their failures are collected, never propagated.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mailguard/internal/audit"
	"mailguard/internal/crm"
	"mailguard/internal/storage"
	"mailguard/internal/validation"
	"mailguard/internal/validation/metrics"
	"mailguard/pkg/email"
)

const msgMissingIDOrEmail = "Missing contact ID or email for sync process."

// Validator classifies an email.
type Validator interface {
	Check(ctx context.Context, email string) validation.Result
}

// Store is the storage surface the orchestrator needs.
type Store interface {
	UpsertContact(ctx context.Context, c storage.Contact) error
	UpsertContacts(ctx context.Context, cs []storage.Contact) (int, error)
	PersistResult(ctx context.Context, contactID string, res validation.Result) error
	ContactsNeedingValidation(ctx context.Context) ([]storage.Contact, error)
}

// CRM is the contacts API surface the orchestrator needs.
type CRM interface {
	UpdateContactProperties(ctx context.Context, contactID string, props map[string]string) (*crm.Contact, error)
	ListContacts(ctx context.Context, pageLimit int) ([]crm.Contact, error)
}

// Orchestrator coordinates validation and the three sync targets.
type Orchestrator struct {
	validator Validator
	store     Store
	crm       CRM
	audit     *audit.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// New constructs an orchestrator. The audit publisher may be nil when no
// event stream is configured.
func New(
	validator Validator,
	store Store,
	crmClient CRM,
	publisher *audit.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Orchestrator {
	return &Orchestrator{
		validator: validator,
		store:     store,
		crm:       crmClient,
		audit:     publisher,
		logger:    logger,
		metrics:   m,
		tracer:    otel.Tracer("mailguard/orchestrator"),
	}
}

// ValidateAndSync validates the contact's email and pushes the outcome to
// the contact store, the result store, and the CRM, in that order. Each
// target is attempted exactly once; failures accumulate into SyncError.
// The returned Result always describes the validation outcome, never a Go
// error, and a panic anywhere inside is folded into it.
func (o *Orchestrator) ValidateAndSync(ctx context.Context, req validation.SyncRequest) (res validation.Result) {
	if req.ID == "" || req.Email == "" {
		o.logger.ErrorContext(ctx, "sync request missing contact id or email",
			"contact_id", req.ID,
		)
		return validation.Result{
			Email:   req.Email,
			Status:  validation.StatusError,
			Message: msgMissingIDOrEmail,
		}
	}

	ctx, span := o.tracer.Start(ctx, "ValidateAndSync",
		trace.WithAttributes(attribute.String("contact.id", req.ID)),
	)
	start := time.Now()
	var syncErrs []string

	defer func() {
		if r := recover(); r != nil {
			o.logger.ErrorContext(ctx, "orchestration panicked",
				"contact_id", req.ID,
				"email", req.Email,
				"panic", r,
			)
			res = validation.Result{
				Email:   req.Email,
				Status:  validation.StatusError,
				Message: fmt.Sprintf("Orchestration failed: %v", r),
			}
			if len(syncErrs) > 0 {
				res.SyncError = strings.Join(syncErrs, "; ")
			}
		}
		o.metrics.ObserveOrchestration(time.Since(start))
		span.SetAttributes(attribute.String("validation.status", string(res.Status)))
		span.End()
		o.emit(ctx, req, res)
	}()

	o.logger.InfoContext(ctx, "starting validation and sync",
		"contact_id", req.ID,
		"email", req.Email,
	)

	res = o.validator.Check(ctx, req.Email)

	// 1. Contact upsert
	if err := o.store.UpsertContact(ctx, storage.Contact{
		ID:        req.ID,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
	}); err != nil {
		o.logger.ErrorContext(ctx, "contact upsert failed",
			"contact_id", req.ID,
			"error", err,
		)
		o.metrics.IncSyncAttempt("contact_upsert", "error")
		syncErrs = append(syncErrs, fmt.Sprintf("Contact upsert failed: %v", err))
	} else {
		o.metrics.IncSyncAttempt("contact_upsert", "ok")
	}

	// 2. Validation result persist
	if err := o.store.PersistResult(ctx, req.ID, res); err != nil {
		o.logger.ErrorContext(ctx, "validation result persist failed",
			"contact_id", req.ID,
			"error", err,
		)
		o.metrics.IncSyncAttempt("result_persist", "error")
		syncErrs = append(syncErrs, fmt.Sprintf("Validation result persist failed: %v", err))
	} else {
		o.metrics.IncSyncAttempt("result_persist", "ok")
	}

	// 3. CRM property update
	updated, err := o.crm.UpdateContactProperties(ctx, req.ID, validationProperties(res))
	switch {
	case err != nil:
		o.logger.ErrorContext(ctx, "crm update failed",
			"contact_id", req.ID,
			"category", crm.CategoryOf(err),
			"error", err,
		)
		o.metrics.IncSyncAttempt("crm_update", "error")
		syncErrs = append(syncErrs, fmt.Sprintf("CRM update failed (%s): %v", crm.CategoryOf(err), err))
	case updated == nil:
		o.logger.WarnContext(ctx, "crm update skipped, no valid properties",
			"contact_id", req.ID,
		)
		o.metrics.IncSyncAttempt("crm_update", "skipped")
	default:
		o.metrics.IncSyncAttempt("crm_update", "ok")
	}

	if len(syncErrs) > 0 {
		res.SyncError = strings.Join(syncErrs, "; ")
		o.logger.WarnContext(ctx, "validation and sync completed with errors",
			"contact_id", req.ID,
			"email", req.Email,
			"sync_error", res.SyncError,
		)
		return res
	}

	o.logger.InfoContext(ctx, "validation and sync completed",
		"contact_id", req.ID,
		"email", req.Email,
		"status", res.Status,
	)
	return res
}

// RevalidateStale re-runs the pipeline for every contact with no stored
// result or a result recorded for a previous email.
func (o *Orchestrator) RevalidateStale(ctx context.Context) ([]validation.Result, error) {
	contacts, err := o.store.ContactsNeedingValidation(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contacts needing validation: %w", err)
	}

	results := make([]validation.Result, 0, len(contacts))
	for _, c := range contacts {
		results = append(results, o.ValidateAndSync(ctx, validation.SyncRequest{
			ID:        c.ID,
			Email:     c.Email,
			Firstname: c.Firstname,
			Lastname:  c.Lastname,
		}))
	}

	o.logger.InfoContext(ctx, "revalidation pass completed", "contacts", len(contacts))
	return results, nil
}

// ImportContacts pulls every contact from the CRM and batch-upserts them
// into storage, returning the number stored.
func (o *Orchestrator) ImportContacts(ctx context.Context) (int, error) {
	contacts, err := o.crm.ListContacts(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("fetch crm contacts: %w", err)
	}

	batch := make([]storage.Contact, 0, len(contacts))
	for _, c := range contacts {
		contact := storage.Contact{
			ID:        c.ID,
			Firstname: c.Properties["firstname"],
			Lastname:  c.Properties["lastname"],
			Email:     c.Properties["email"],
		}
		// CRM records created from bare email captures carry no name fields.
		if contact.Firstname == "" && contact.Lastname == "" && contact.Email != "" {
			contact.Firstname, contact.Lastname = email.DeriveNameFromEmail(contact.Email)
		}
		batch = append(batch, contact)
	}

	stored, err := o.store.UpsertContacts(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("store imported contacts: %w", err)
	}

	o.logger.InfoContext(ctx, "contacts imported from crm",
		"fetched", len(contacts),
		"stored", stored,
	)
	return stored, nil
}

// validationProperties maps a result onto CRM property values. Booleans cross
// the boundary as lower-case string literals.
func validationProperties(res validation.Result) map[string]string {
	return map[string]string{
		crm.PropertyMXValid:        strconv.FormatBool(res.MXValid),
		crm.PropertyIsDisposable:   strconv.FormatBool(res.IsDisposable),
		crm.PropertyIsBlacklisted:  strconv.FormatBool(res.IsBlacklisted),
		crm.PropertyIsFreeProvider: strconv.FormatBool(res.IsFreeProvider),
		crm.PropertyStatus:         string(res.Status),
		crm.PropertyMessage:        res.Message,
	}
}

// emit publishes the audit event for a completed run. Best effort: emission
// failures are logged and swallowed, and request cancellation is ignored so
// the event still goes out.
func (o *Orchestrator) emit(ctx context.Context, req validation.SyncRequest, res validation.Result) {
	if o.audit == nil {
		return
	}
	err := o.audit.Emit(context.WithoutCancel(ctx), audit.Event{
		ContactID: req.ID,
		Email:     res.Email,
		Status:    string(res.Status),
		Message:   res.Message,
		SyncError: res.SyncError,
	})
	if err != nil {
		o.logger.WarnContext(ctx, "audit emit failed",
			"contact_id", req.ID,
			"error", err,
		)
	}
}
