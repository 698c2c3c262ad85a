// Package audit emits a structured event for every completed validate-and-sync
// run. Delivery is best effort: a full buffer or a failing sink never blocks
// or fails the orchestration that produced the event.
package audit

import (
	"context"
	"time"
)

// Event records the outcome of one validation run.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ContactID string    `json:"contact_id,omitempty"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	SyncError string    `json:"sync_error,omitempty"`
}

// Sink delivers events to their destination.
type Sink interface {
	Write(ctx context.Context, event Event) error
}
