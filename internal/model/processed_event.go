package model

import "time"

// ProcessedEvent records one externally-delivered settlement event.
// The existence of a row for an external event id is the sole
// idempotency signal for the settlement pipeline: the row is written
// whether or not processing succeeded, with Error carrying the failure
// detail when it did not.
//
// Fields:
//  ID              – primary key identifier.
//  ExternalEventID – unique id assigned by the payment gateway.
//  Kind            – event kind as delivered (e.g. checkout.session.completed).
//  Context         – extracted correlation detail for operators.
//  Error           – processing failure detail, nil on success.
//  ProcessedAt     – when the event was claimed by the processor.
type ProcessedEvent struct {
	ID              uint64    // processed_events.id
	ExternalEventID string    // processed_events.external_event_id
	Kind            string    // processed_events.kind
	Context         string    // processed_events.context
	Error           *string   // processed_events.error (nullable)
	ProcessedAt     time.Time // processed_events.processed_at
}
