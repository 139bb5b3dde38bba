package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	assert.NotNil(t, w.PrivateKey)
	assert.Len(t, w.PublicKey, 33)
	assert.True(t, ValidAddress(w.Address))
}

func TestImportRoundTrip(t *testing.T) {
	original, err := New()
	require.NoError(t, err)

	imported, err := Import(original.ExportPrivateKey())
	require.NoError(t, err)

	assert.Equal(t, original.Address, imported.Address)
	assert.Equal(t, original.PublicKey, imported.PublicKey)
}

func TestImportRejectsGarbage(t *testing.T) {
	_, err := Import("not hex")
	assert.Error(t, err)
}

func TestValidAddress(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	assert.True(t, ValidAddress(w.Address))
	assert.False(t, ValidAddress(""))
	assert.False(t, ValidAddress("too-short"))
	assert.False(t, ValidAddress("0x0123456789abcdef"))
}

func TestSignAndVerify(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	message := []byte("submission digest")
	signature, err := w.Sign(message)
	require.NoError(t, err)

	ok, err := VerifySignature(w.PublicKey, message, signature)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifySignature(w.PublicKey, []byte("tampered"), signature)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerateNonce(t *testing.T) {
	first, err := GenerateNonce()
	require.NoError(t, err)
	second, err := GenerateNonce()
	require.NoError(t, err)

	assert.Len(t, first, 32)
	assert.NotEqual(t, first, second)
}
