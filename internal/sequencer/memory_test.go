package sequencer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelwinczuk/erc-shared-sequencer/internal/receipt"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/errors"
)

func TestMemoryStoreInsertAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := receipt.New("abc", 1700000000)
	require.NoError(t, store.Insert(ctx, rec))
	assert.Equal(t, 1, store.Len())

	got, found, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, *rec, *got)

	_, found, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreRejectsDuplicateInsert(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, receipt.New("abc", 1700000000)))
	err := store.Insert(ctx, receipt.New("abc", 1700000001))
	assert.ErrorIs(t, err, errors.ErrDuplicateReceipt)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreUpdateRequiresExisting(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Update(ctx, receipt.New("abc", 1700000000))
	assert.ErrorIs(t, err, errors.ErrNotFound)

	rec := receipt.New("abc", 1700000000)
	require.NoError(t, store.Insert(ctx, rec))

	rec.Status = receipt.Confirmed
	rec.L1TxHash = "0xabc"
	require.NoError(t, store.Update(ctx, rec))

	got, found, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, receipt.Confirmed, got.Status)
	assert.Equal(t, "0xabc", got.L1TxHash)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, receipt.New("abc", 1700000000)))

	got, _, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	got.Status = receipt.Failed

	again, _, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, receipt.Pending, again.Status)
}

func TestMemoryVault(t *testing.T) {
	vault := NewMemoryVault()
	ctx := context.Background()

	balance, err := vault.Balance(ctx)
	require.NoError(t, err)
	assert.Zero(t, balance)

	require.NoError(t, vault.Deposit(ctx, 5000))
	require.NoError(t, vault.Deposit(ctx, 3000))

	balance, err = vault.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(8000), balance)

	require.NoError(t, vault.Debit(ctx, 2000))
	balance, err = vault.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(6000), balance)

	require.NoError(t, vault.Deposit(ctx, 2000))

	amount, err := vault.WithdrawAll(ctx, "dest")
	require.NoError(t, err)
	assert.Equal(t, uint64(8000), amount)
	assert.Equal(t, uint64(8000), vault.Credited("dest"))

	balance, err = vault.Balance(ctx)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestMemoryVaultDebitClampsAtZero(t *testing.T) {
	vault := NewMemoryVault()
	ctx := context.Background()

	require.NoError(t, vault.Deposit(ctx, 100))
	require.NoError(t, vault.Debit(ctx, 500))

	balance, err := vault.Balance(ctx)
	require.NoError(t, err)
	assert.Zero(t, balance)
}
