// Package events defines the externally observable event log of the
// sequencer: one event per successful state-changing operation.
package events

import (
	"context"

	"github.com/google/uuid"
)

// SubmissionEvent is emitted when a submission is accepted.
type SubmissionEvent struct {
	EventID    string `json:"event_id"`
	Sender     string `json:"sender"`
	ID         string `json:"id"`
	PaidAmount uint64 `json:"paid_amount"`
	Timestamp  int64  `json:"timestamp"`
}

// ConfirmationEvent is emitted when a receipt is confirmed.
type ConfirmationEvent struct {
	EventID   string `json:"event_id"`
	ID        string `json:"id"`
	L1TxHash  string `json:"l1_tx_hash"`
	L2TxHash  string `json:"l2_tx_hash"`
	Timestamp int64  `json:"timestamp"`
}

// FailureEvent is emitted when a receipt is failed.
type FailureEvent struct {
	EventID   string `json:"event_id"`
	ID        string `json:"id"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

// SlashingEvent is a reserved extension point. The core never emits it;
// it exists so future slashing logic has a declared shape and topic.
type SlashingEvent struct {
	EventID   string `json:"event_id"`
	Sequencer string `json:"sequencer"`
	Amount    uint64 `json:"amount"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

// Emitter publishes sequencer events. Implementations handle their own
// delivery failures; emission never blocks or fails a ledger operation.
type Emitter interface {
	SubmissionAccepted(ctx context.Context, ev SubmissionEvent)
	ReceiptConfirmed(ctx context.Context, ev ConfirmationEvent)
	ReceiptFailed(ctx context.Context, ev FailureEvent)
}

// NewSubmissionEvent builds a submission event with a fresh event id. The
// timestamp is supplied by the caller so the event always matches the ledger
// record it describes.
func NewSubmissionEvent(sender, id string, paidAmount uint64, timestamp int64) SubmissionEvent {
	return SubmissionEvent{
		EventID:    uuid.New().String(),
		Sender:     sender,
		ID:         id,
		PaidAmount: paidAmount,
		Timestamp:  timestamp,
	}
}

// NewConfirmationEvent builds a confirmation event with a fresh event id.
func NewConfirmationEvent(id, l1TxHash, l2TxHash string, timestamp int64) ConfirmationEvent {
	return ConfirmationEvent{
		EventID:   uuid.New().String(),
		ID:        id,
		L1TxHash:  l1TxHash,
		L2TxHash:  l2TxHash,
		Timestamp: timestamp,
	}
}

// NewFailureEvent builds a failure event with a fresh event id.
func NewFailureEvent(id, reason string, timestamp int64) FailureEvent {
	return FailureEvent{
		EventID:   uuid.New().String(),
		ID:        id,
		Reason:    reason,
		Timestamp: timestamp,
	}
}
