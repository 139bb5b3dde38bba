package sequencer

import (
	"context"

	"github.com/michaelwinczuk/erc-shared-sequencer/internal/receipt"
)

// ReceiptStore persists confirmation receipts keyed by identifier.
// The store is append-mostly: receipts are inserted once, updated only by
// privileged transitions, and never deleted.
type ReceiptStore interface {
	// Insert stores a new receipt. Returns ErrDuplicateReceipt if a receipt
	// with the same identifier already exists.
	Insert(ctx context.Context, rec *receipt.ConfirmationReceipt) error

	// Get returns the receipt for the identifier and whether it exists.
	// Absence is reported through the boolean, never through a sentinel
	// value inside the receipt.
	Get(ctx context.Context, id string) (*receipt.ConfirmationReceipt, bool, error)

	// Update overwrites an existing receipt. Returns ErrNotFound if no
	// receipt exists for the identifier.
	Update(ctx context.Context, rec *receipt.ConfirmationReceipt) error
}

// FeeVault holds the accumulated submission fees.
type FeeVault interface {
	// Deposit credits the vault.
	Deposit(ctx context.Context, amount uint64) error

	// Debit removes amount from the balance, reversing a deposit whose
	// enclosing operation did not complete. The balance never goes
	// negative: a debit larger than the balance drains it to zero.
	Debit(ctx context.Context, amount uint64) error

	// Balance returns the current vault balance.
	Balance(ctx context.Context) (uint64, error)

	// WithdrawAll atomically drains the entire balance to destination and
	// returns the amount moved. On error the balance is left intact.
	WithdrawAll(ctx context.Context, destination string) (uint64, error)
}
