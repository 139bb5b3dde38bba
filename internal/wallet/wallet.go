// Package wallet provides caller identities: secp256k1 key pairs with
// Bitcoin-style base58 addresses, plus signing helpers for clients that wrap
// their payloads in signed envelopes. The sequencer itself never verifies
// submission signatures; it only validates address shape.
package wallet

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcutil/base58"
)

// addressBytes is the number of pubkey-hash bytes encoded into an address.
const addressBytes = 20

// Wallet holds a caller's key pair and derived address.
type Wallet struct {
	PrivateKey *btcec.PrivateKey
	PublicKey  []byte
	Address    string
}

// New generates a wallet with a fresh key pair.
func New() (*Wallet, error) {
	privateKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return fromPrivateKey(privateKey), nil
}

// Import reconstructs a wallet from a hex-encoded private key.
func Import(privateKeyHex string) (*Wallet, error) {
	raw, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key format: %w", err)
	}

	privateKey, _ := btcec.PrivKeyFromBytes(raw)
	if privateKey == nil {
		return nil, errors.New("invalid private key")
	}
	return fromPrivateKey(privateKey), nil
}

func fromPrivateKey(privateKey *btcec.PrivateKey) *Wallet {
	pubKey := privateKey.PubKey().SerializeCompressed()
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  pubKey,
		Address:    addressFromPubKey(pubKey),
	}
}

// addressFromPubKey derives the base58 address from a compressed pubkey.
func addressFromPubKey(pubKey []byte) string {
	hash := sha256.Sum256(pubKey)
	return base58.Encode(hash[:addressBytes])
}

// ValidAddress reports whether s has the shape of a wallet address.
func ValidAddress(s string) bool {
	if s == "" {
		return false
	}
	return len(base58.Decode(s)) == addressBytes
}

// ExportPrivateKey returns the private key as a hex string.
func (w *Wallet) ExportPrivateKey() string {
	return hex.EncodeToString(w.PrivateKey.Serialize())
}

// Sign signs a message with the wallet's private key.
func (w *Wallet) Sign(message []byte) ([]byte, error) {
	signature := ecdsa.Sign(w.PrivateKey, message)
	return signature.Serialize(), nil
}

// VerifySignature verifies a signature against a compressed public key.
func VerifySignature(pubKey, message, signature []byte) (bool, error) {
	parsedPubKey, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false, fmt.Errorf("failed to parse public key: %w", err)
	}

	parsedSig, err := ecdsa.ParseSignature(signature)
	if err != nil {
		return false, fmt.Errorf("failed to parse signature: %w", err)
	}

	return parsedSig.Verify(message, parsedPubKey), nil
}

// GenerateNonce generates a secure random nonce.
func GenerateNonce() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return hex.EncodeToString(nonce), nil
}
