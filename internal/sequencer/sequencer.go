// Package sequencer implements the receipt ledger and admission-control
// logic of the shared sequencer: fee validation, identifier derivation,
// receipt lifecycle transitions, and owner-gated administrative controls.
//
// All operations on a Sequencer are linearizable: a single mutex serializes
// submissions, privileged transitions, and reads, so no caller ever observes
// a receipt mid-transition.
package sequencer

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/michaelwinczuk/erc-shared-sequencer/internal/events"
	"github.com/michaelwinczuk/erc-shared-sequencer/internal/receipt"
	"github.com/michaelwinczuk/erc-shared-sequencer/internal/wallet"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/errors"
)

// Metadata describes the sequencer deployment. It is fixed at construction
// and read-only to callers; no setter exists.
type Metadata struct {
	Version                string        `json:"version"`
	SupportedNetworks      []string      `json:"supported_networks"`
	MinConfirmationLatency time.Duration `json:"min_confirmation_latency"`
	MaxPayloadSize         int           `json:"max_payload_size"`
}

func (m Metadata) clone() Metadata {
	out := m
	out.SupportedNetworks = append([]string(nil), m.SupportedNetworks...)
	return out
}

// Config holds the admission-control parameters.
type Config struct {
	// MinFee is the minimum accepted submission fee.
	MinFee uint64
	// AllowRefinalize permits confirm/fail on receipts that already reached
	// a terminal state, reproducing the permissive reference behavior.
	// When false (the default), such transitions fail with
	// ErrAlreadyFinalized.
	AllowRefinalize bool
	// Metadata is the fixed deployment metadata.
	Metadata Metadata
}

// Clock supplies receipt timestamps. Injected so tests can pin time.
type Clock interface {
	Now() int64
}

type systemClock struct{}

func (systemClock) Now() int64 { return time.Now().Unix() }

// SystemClock returns a clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }

// Capability is the single-holder administrator credential. It is minted
// once at construction and compared in constant time; there is no transfer
// or rotation operation. The zero value never authorizes anything.
type Capability struct {
	token [32]byte
}

// Sequencer is the admission controller and receipt ledger.
type Sequencer struct {
	mu      sync.Mutex
	cfg     Config
	store   ReceiptStore
	vault   FeeVault
	emitter events.Emitter
	clock   Clock

	admin  [32]byte
	seq    uint64
	paused bool
}

// New creates a sequencer and mints its administrator capability. The
// capability is returned exactly once; whoever holds it is the
// administrator for the process lifetime.
func New(cfg Config, store ReceiptStore, vault FeeVault, emitter events.Emitter, clock Clock) (*Sequencer, Capability, error) {
	if store == nil {
		return nil, Capability{}, errors.New("receipt store cannot be nil")
	}
	if vault == nil {
		return nil, Capability{}, errors.New("fee vault cannot be nil")
	}
	if emitter == nil {
		return nil, Capability{}, errors.New("event emitter cannot be nil")
	}
	if cfg.Metadata.MaxPayloadSize <= 0 {
		return nil, Capability{}, errors.New("max payload size must be positive")
	}
	if clock == nil {
		clock = systemClock{}
	}

	s := &Sequencer{
		cfg:     cfg,
		store:   store,
		vault:   vault,
		emitter: emitter,
		clock:   clock,
	}

	if _, err := rand.Read(s.admin[:]); err != nil {
		return nil, Capability{}, fmt.Errorf("failed to mint administrator capability: %w", err)
	}

	return s, Capability{token: s.admin}, nil
}

// Submit validates a submission, mints its identifier, and creates the
// pending receipt. This is the sole creation path for ledger entries.
func (s *Sequencer) Submit(ctx context.Context, sender string, payload []byte, paidAmount uint64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return "", errors.ErrServiceUnavailable
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("%w: empty payload", errors.ErrMalformedInput)
	}
	if len(payload) > s.cfg.Metadata.MaxPayloadSize {
		return "", fmt.Errorf("%w: payload exceeds %d bytes", errors.ErrMalformedInput, s.cfg.Metadata.MaxPayloadSize)
	}
	if paidAmount < s.cfg.MinFee {
		return "", &errors.InsufficientFeeError{Required: s.cfg.MinFee, Provided: paidAmount}
	}

	now := s.clock.Now()

	// The strictly monotonic sequence number guarantees distinct
	// identifiers even for identical sender+payload in the same second.
	s.seq++
	id := deriveID(sender, payload, now, s.seq)

	// The receipt is the externally observable artifact, so it is written
	// last: the fee is captured first, and a failed insert reverses the
	// capture so neither side effect survives alone.
	if err := s.vault.Deposit(ctx, paidAmount); err != nil {
		return "", errors.WrapWithOperation(err, "sequencer", "Submit")
	}

	rec := receipt.New(id, now)
	if err := s.store.Insert(ctx, rec); err != nil {
		if derr := s.vault.Debit(ctx, paidAmount); derr != nil {
			return "", errors.WrapWithOperation(derr, "sequencer", "Submit")
		}
		return "", errors.WrapWithOperation(err, "sequencer", "Submit")
	}

	s.emitter.SubmissionAccepted(ctx, events.NewSubmissionEvent(sender, id, paidAmount, now))

	return id, nil
}

// Get returns a copy of the receipt for the identifier. Read-only, callable
// by any party.
func (s *Sequencer) Get(ctx context.Context, id string) (*receipt.ConfirmationReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getLocked(ctx, id)
}

func (s *Sequencer) getLocked(ctx context.Context, id string) (*receipt.ConfirmationReceipt, error) {
	rec, found, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, errors.WrapWithOperation(err, "sequencer", "Get")
	}
	if !found {
		return nil, errors.ErrNotFound
	}
	return rec, nil
}

// Confirm transitions a receipt to Confirmed and records the L1 reference.
// Privileged: requires the administrator capability.
func (s *Sequencer) Confirm(ctx context.Context, auth Capability, id, l1TxHash string) error {
	if !s.authorized(auth) {
		return errors.ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.getLocked(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status.Terminal() && !s.cfg.AllowRefinalize {
		return errors.ErrAlreadyFinalized
	}

	rec.Status = receipt.Confirmed
	rec.L1TxHash = l1TxHash
	rec.ErrorReason = ""

	if err := s.store.Update(ctx, rec); err != nil {
		return errors.WrapWithOperation(err, "sequencer", "Confirm")
	}

	s.emitter.ReceiptConfirmed(ctx, events.NewConfirmationEvent(id, l1TxHash, rec.L2TxHash, s.clock.Now()))

	return nil
}

// Fail transitions a receipt to Failed and records the reason.
// Privileged: requires the administrator capability.
func (s *Sequencer) Fail(ctx context.Context, auth Capability, id, reason string) error {
	if !s.authorized(auth) {
		return errors.ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.getLocked(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status.Terminal() && !s.cfg.AllowRefinalize {
		return errors.ErrAlreadyFinalized
	}

	rec.Status = receipt.Failed
	rec.ErrorReason = reason

	if err := s.store.Update(ctx, rec); err != nil {
		return errors.WrapWithOperation(err, "sequencer", "Fail")
	}

	s.emitter.ReceiptFailed(ctx, events.NewFailureEvent(id, reason, s.clock.Now()))

	return nil
}

// SetPaused toggles the admission gate. Reads and privileged transitions
// are unaffected. Privileged: requires the administrator capability.
func (s *Sequencer) SetPaused(auth Capability, paused bool) error {
	if !s.authorized(auth) {
		return errors.ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
	return nil
}

// Paused reports whether admission is currently paused.
func (s *Sequencer) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Withdraw drains the entire accumulated fee balance to destination and
// returns the amount moved. The operation is all-or-nothing: any vault
// failure leaves the balance intact. Privileged: requires the administrator
// capability.
func (s *Sequencer) Withdraw(ctx context.Context, auth Capability, destination string) (uint64, error) {
	if !s.authorized(auth) {
		return 0, errors.ErrUnauthorized
	}
	if !wallet.ValidAddress(destination) {
		return 0, fmt.Errorf("%w: invalid destination address", errors.ErrMalformedInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	amount, err := s.vault.WithdrawAll(ctx, destination)
	if err != nil {
		return 0, errors.WrapWithOperation(err, "sequencer", "Withdraw")
	}
	return amount, nil
}

// Balance returns the accumulated fee balance.
func (s *Sequencer) Balance(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vault.Balance(ctx)
}

// Metadata returns a copy of the deployment metadata.
func (s *Sequencer) Metadata() Metadata {
	return s.cfg.Metadata.clone()
}

func (s *Sequencer) authorized(auth Capability) bool {
	return subtle.ConstantTimeCompare(auth.token[:], s.admin[:]) == 1
}

// deriveID computes the submission identifier: a SHA-256 over the caller
// identity, payload, timestamp, and the per-process sequence number.
func deriveID(sender string, payload []byte, timestamp int64, seq uint64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|", sender, timestamp, seq)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
