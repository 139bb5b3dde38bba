package events

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/logging"
)

func TestNewSubmissionEvent(t *testing.T) {
	ev := NewSubmissionEvent("alice", "abc123", 5000, 1700000000)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, "alice", ev.Sender)
	assert.Equal(t, "abc123", ev.ID)
	assert.Equal(t, uint64(5000), ev.PaidAmount)
	assert.Equal(t, int64(1700000000), ev.Timestamp)
}

func TestNewConfirmationEvent(t *testing.T) {
	ev := NewConfirmationEvent("abc123", "0xl1", "abc123", 1700000000)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, "abc123", ev.ID)
	assert.Equal(t, "0xl1", ev.L1TxHash)
	assert.Equal(t, "abc123", ev.L2TxHash)
	assert.Equal(t, int64(1700000000), ev.Timestamp)
}

func TestNewFailureEvent(t *testing.T) {
	ev := NewFailureEvent("abc123", "nonce too low", 1700000000)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, "abc123", ev.ID)
	assert.Equal(t, "nonce too low", ev.Reason)
	assert.Equal(t, int64(1700000000), ev.Timestamp)
}

func TestEventIDsAreUnique(t *testing.T) {
	first := NewSubmissionEvent("alice", "abc", 1, 1700000000)
	second := NewSubmissionEvent("alice", "abc", 1, 1700000000)

	require.NotEqual(t, first.EventID, second.EventID)
}

func TestLogEmitterImplementsEmitter(t *testing.T) {
	logger := logging.New(logging.Config{
		Level:       logging.ErrorLevel,
		Output:      os.Stderr,
		ServiceName: "test",
	})

	var emitter Emitter = NewLogEmitter(logger)
	ctx := context.Background()

	emitter.SubmissionAccepted(ctx, NewSubmissionEvent("alice", "abc", 5000, 1700000000))
	emitter.ReceiptConfirmed(ctx, NewConfirmationEvent("abc", "0xl1", "abc", 1700000000))
	emitter.ReceiptFailed(ctx, NewFailureEvent("abc", "reason", 1700000000))
}
