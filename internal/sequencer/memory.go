package sequencer

import (
	"context"
	"sync"

	"github.com/michaelwinczuk/erc-shared-sequencer/internal/receipt"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/errors"
)

// MemoryStore is an in-process ReceiptStore. It is the default for tests
// and single-node development; production deployments use the Redis store.
type MemoryStore struct {
	mu       sync.RWMutex
	receipts map[string]receipt.ConfirmationReceipt
}

// NewMemoryStore creates an empty in-process receipt store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		receipts: make(map[string]receipt.ConfirmationReceipt),
	}
}

// Insert stores a new receipt.
func (s *MemoryStore) Insert(ctx context.Context, rec *receipt.ConfirmationReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.receipts[rec.L2TxHash]; exists {
		return errors.ErrDuplicateReceipt
	}
	s.receipts[rec.L2TxHash] = *rec
	return nil
}

// Get returns a copy of the receipt for the identifier.
func (s *MemoryStore) Get(ctx context.Context, id string) (*receipt.ConfirmationReceipt, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.receipts[id]
	if !exists {
		return nil, false, nil
	}
	return &rec, true, nil
}

// Update overwrites an existing receipt.
func (s *MemoryStore) Update(ctx context.Context, rec *receipt.ConfirmationReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.receipts[rec.L2TxHash]; !exists {
		return errors.ErrNotFound
	}
	s.receipts[rec.L2TxHash] = *rec
	return nil
}

// Len returns the number of stored receipts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.receipts)
}

// MemoryVault is an in-process FeeVault. Withdrawn amounts are tracked per
// destination so tests can verify exact credits.
type MemoryVault struct {
	mu      sync.Mutex
	balance uint64
	credits map[string]uint64
}

// NewMemoryVault creates an empty in-process fee vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		credits: make(map[string]uint64),
	}
}

// Deposit credits the vault.
func (v *MemoryVault) Deposit(ctx context.Context, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balance += amount
	return nil
}

// Debit removes amount from the balance, draining it to zero at most.
func (v *MemoryVault) Debit(ctx context.Context, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if amount > v.balance {
		v.balance = 0
		return nil
	}
	v.balance -= amount
	return nil
}

// Balance returns the current vault balance.
func (v *MemoryVault) Balance(ctx context.Context) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance, nil
}

// WithdrawAll drains the entire balance to destination.
func (v *MemoryVault) WithdrawAll(ctx context.Context, destination string) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	amount := v.balance
	v.balance = 0
	v.credits[destination] += amount
	return amount, nil
}

// Credited returns the total amount withdrawn to destination.
func (v *MemoryVault) Credited(destination string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.credits[destination]
}
