// Package receipt defines the confirmation receipt record that tracks the
// lifecycle of an accepted submission from pending to a terminal state.
package receipt

import (
	"encoding/json"
	"fmt"
)

// Status defines the lifecycle state of a receipt.
type Status string

const (
	// Pending receipts are accepted but not yet settled downstream.
	Pending Status = "PENDING"
	// Confirmed receipts have been settled and carry an L1 reference.
	Confirmed Status = "CONFIRMED"
	// Failed receipts were rejected downstream and carry a reason.
	Failed Status = "FAILED"
)

// Terminal reports whether the status is Confirmed or Failed. Transitions
// out of a terminal state are forbidden unless re-finalization is enabled.
func (s Status) Terminal() bool {
	return s == Confirmed || s == Failed
}

// ConfirmationReceipt records the lifecycle of one accepted submission.
// Receipts are created only by successful admission, mutated only by the
// administrator's confirm and fail operations, and never deleted.
type ConfirmationReceipt struct {
	// Timestamp is the creation time in unix seconds, set once.
	Timestamp int64 `json:"timestamp"`
	// L1TxHash is the downstream settlement reference, zero until confirmed.
	L1TxHash string `json:"l1_tx_hash"`
	// L2TxHash equals the submission identifier and never changes.
	L2TxHash string `json:"l2_tx_hash"`
	// Status is the lifecycle state.
	Status Status `json:"status"`
	// ErrorReason is empty unless Status is Failed.
	ErrorReason string `json:"error_reason,omitempty"`
}

// New creates a pending receipt for the given identifier.
func New(id string, timestamp int64) *ConfirmationReceipt {
	return &ConfirmationReceipt{
		Timestamp: timestamp,
		L2TxHash:  id,
		Status:    Pending,
	}
}

// ToJSON serializes the receipt to JSON.
func (r *ConfirmationReceipt) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON deserializes a receipt from JSON.
func FromJSON(data []byte) (*ConfirmationReceipt, error) {
	var r ConfirmationReceipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to deserialize receipt: %w", err)
	}
	return &r, nil
}
