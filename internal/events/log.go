package events

import (
	"context"

	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/logging"
)

// LogEmitter writes events to the structured log. Used in development and
// when no broker is configured.
type LogEmitter struct {
	logger *logging.Logger
}

// NewLogEmitter creates a log-backed emitter.
func NewLogEmitter(logger *logging.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// SubmissionAccepted logs a submission event.
func (e *LogEmitter) SubmissionAccepted(ctx context.Context, ev SubmissionEvent) {
	e.logger.Info("Submission accepted",
		"event_id", ev.EventID,
		"sender", ev.Sender,
		"id", ev.ID,
		"paid_amount", ev.PaidAmount,
	)
}

// ReceiptConfirmed logs a confirmation event.
func (e *LogEmitter) ReceiptConfirmed(ctx context.Context, ev ConfirmationEvent) {
	e.logger.Info("Receipt confirmed",
		"event_id", ev.EventID,
		"id", ev.ID,
		"l1_tx_hash", ev.L1TxHash,
		"l2_tx_hash", ev.L2TxHash,
	)
}

// ReceiptFailed logs a failure event.
func (e *LogEmitter) ReceiptFailed(ctx context.Context, ev FailureEvent) {
	e.logger.Info("Receipt failed",
		"event_id", ev.EventID,
		"id", ev.ID,
		"reason", ev.Reason,
	)
}
