// Package storage provides the Redis-backed receipt store and fee vault
// used by production deployments.
package storage

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/michaelwinczuk/erc-shared-sequencer/internal/receipt"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/errors"
)

const (
	// Receipt key prefix, one key per identifier.
	receiptKeyPrefix = "receipt:"

	// Key for the accumulated fee balance.
	vaultBalanceKey = "vault:balance"

	// Prefix for per-destination withdrawal credits.
	vaultCreditPrefix = "vault:credit:"
)

// Lua script: overwrite a receipt only if it already exists.
var updateScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[1]) == 0 then
		return 0
	end
	redis.call("SET", KEYS[1], ARGV[1])
	return 1
`)

// Lua script: remove up to the requested amount from the balance without
// letting it go negative.
var debitScript = redis.NewScript(`
	local balance = tonumber(redis.call("GET", KEYS[1]) or "0")
	local amount = tonumber(ARGV[1])
	if amount > balance then
		amount = balance
	end
	if amount > 0 then
		redis.call("DECRBY", KEYS[1], amount)
	end
	return amount
`)

// Lua script: atomically move the whole vault balance to a destination
// credit key. Returns the amount moved.
var withdrawScript = redis.NewScript(`
	local balance = tonumber(redis.call("GET", KEYS[1]) or "0")
	if balance > 0 then
		redis.call("SET", KEYS[1], 0)
		redis.call("INCRBY", KEYS[2], balance)
	end
	return balance
`)

// RedisStore implements both the ReceiptStore and FeeVault interfaces on a
// single Redis connection.
type RedisStore struct {
	Client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{Client: client}, nil
}

// Close closes the Redis connection.
func (rs *RedisStore) Close() error {
	return rs.Client.Close()
}

// Ping checks the connection for health checks.
func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.Client.Ping(ctx).Err()
}

// Insert stores a new receipt, failing if the identifier is taken.
func (rs *RedisStore) Insert(ctx context.Context, rec *receipt.ConfirmationReceipt) error {
	data, err := rec.ToJSON()
	if err != nil {
		return err
	}

	ok, err := rs.Client.SetNX(ctx, receiptKeyPrefix+rec.L2TxHash, data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to insert receipt: %w", err)
	}
	if !ok {
		return errors.ErrDuplicateReceipt
	}
	return nil
}

// Get returns the receipt for the identifier and whether it exists.
func (rs *RedisStore) Get(ctx context.Context, id string) (*receipt.ConfirmationReceipt, bool, error) {
	data, err := rs.Client.Get(ctx, receiptKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read receipt: %w", err)
	}

	rec, err := receipt.FromJSON([]byte(data))
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Update overwrites an existing receipt.
func (rs *RedisStore) Update(ctx context.Context, rec *receipt.ConfirmationReceipt) error {
	data, err := rec.ToJSON()
	if err != nil {
		return err
	}

	res, err := updateScript.Run(ctx, rs.Client,
		[]string{receiptKeyPrefix + rec.L2TxHash}, string(data)).Result()
	if err != nil {
		return fmt.Errorf("failed to update receipt: %w", err)
	}
	if res.(int64) == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// Deposit credits the vault balance.
func (rs *RedisStore) Deposit(ctx context.Context, amount uint64) error {
	return rs.Client.IncrBy(ctx, vaultBalanceKey, int64(amount)).Err()
}

// Debit removes amount from the balance, draining it to zero at most.
func (rs *RedisStore) Debit(ctx context.Context, amount uint64) error {
	if err := debitScript.Run(ctx, rs.Client,
		[]string{vaultBalanceKey}, amount).Err(); err != nil {
		return fmt.Errorf("failed to debit vault: %w", err)
	}
	return nil
}

// Balance returns the current vault balance.
func (rs *RedisStore) Balance(ctx context.Context) (uint64, error) {
	val, err := rs.Client.Get(ctx, vaultBalanceKey).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// WithdrawAll atomically drains the vault balance to destination.
func (rs *RedisStore) WithdrawAll(ctx context.Context, destination string) (uint64, error) {
	res, err := withdrawScript.Run(ctx, rs.Client,
		[]string{vaultBalanceKey, vaultCreditPrefix + destination}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to withdraw: %w", err)
	}
	return uint64(res.(int64)), nil
}
