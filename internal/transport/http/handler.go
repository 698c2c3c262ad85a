package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mailguard/internal/validation"
	dErrors "mailguard/pkg/domain-errors"
	"mailguard/pkg/platform/httputil"
	"mailguard/pkg/requestcontext"
)

// Validator classifies a single email without syncing anything.
type Validator interface {
	Check(ctx context.Context, email string) validation.Result
}

// Syncer runs the full validate-and-sync pipeline.
type Syncer interface {
	ValidateAndSync(ctx context.Context, req validation.SyncRequest) validation.Result
	RevalidateStale(ctx context.Context) ([]validation.Result, error)
	ImportContacts(ctx context.Context) (int, error)
}

// Handler wires validation endpoints to the domain services.
type Handler struct {
	validator Validator
	syncer    Syncer
	logger    *slog.Logger
}

// New constructs the HTTP handler with its dependencies.
func New(validator Validator, syncer Syncer, logger *slog.Logger) *Handler {
	return &Handler{
		validator: validator,
		syncer:    syncer,
		logger:    logger,
	}
}

// Register mounts the validation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleRoot)
	r.Get("/validate-email", h.HandleValidateEmail)
	r.Post("/contacts/sync", h.HandleSyncContact)
	r.Post("/contacts/import", h.HandleImportContacts)
	r.Post("/contacts/revalidate", h.HandleRevalidate)
}

// HandleRoot handles GET / requests.
func (h *Handler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Email Validation API is running",
	})
}

// HandleValidateEmail handles GET /validate-email?email= requests.
// It classifies the email without touching storage or the CRM.
func (h *Handler) HandleValidateEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	email := r.URL.Query().Get("email")
	if email == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "email query parameter is required"))
		return
	}

	result := h.validator.Check(ctx, email)

	h.logger.InfoContext(ctx, "email validation requested",
		"request_id", requestID,
		"email", email,
		"status", result.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleSyncContact handles POST /contacts/sync requests.
// The pipeline reports all failures inside the Result, so the response is
// 200 even when sync targets fail; only an undecodable body is a 400.
func (h *Handler) HandleSyncContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeJSON[validation.SyncRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result := h.syncer.ValidateAndSync(ctx, *req)

	h.logger.InfoContext(ctx, "contact sync requested",
		"request_id", requestID,
		"contact_id", req.ID,
		"status", result.Status,
		"sync_error", result.SyncError,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, result)
}

// ImportResponse is the response for the contact import endpoint.
type ImportResponse struct {
	Imported int `json:"imported"`
}

// HandleImportContacts handles POST /contacts/import requests.
func (h *Handler) HandleImportContacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	imported, err := h.syncer.ImportContacts(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "contact import failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "contact import failed"))
		return
	}

	h.logger.InfoContext(ctx, "contacts imported",
		"request_id", requestID,
		"imported", imported,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, ImportResponse{Imported: imported})
}

// RevalidateResponse is the response for the batch revalidation endpoint.
type RevalidateResponse struct {
	Revalidated int                 `json:"revalidated"`
	Results     []validation.Result `json:"results"`
}

// HandleRevalidate handles POST /contacts/revalidate requests.
func (h *Handler) HandleRevalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	results, err := h.syncer.RevalidateStale(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "revalidation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "revalidation failed"))
		return
	}

	h.logger.InfoContext(ctx, "revalidation completed",
		"request_id", requestID,
		"revalidated", len(results),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, RevalidateResponse{
		Revalidated: len(results),
		Results:     results,
	})
}
