package crypto

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyEvent(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	payload := map[string]interface{}{"kind": "spawn", "depth": float64(1)}

	sig, err := SignEvent(secret, payload)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)

	ok, err := VerifyEventSig(secret, payload, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyEventSig_RejectsTamperedPayload(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	payload := map[string]interface{}{"kind": "spawn"}

	sig, err := SignEvent(secret, payload)
	require.NoError(t, err)

	tampered := map[string]interface{}{"kind": "return"}
	ok, err := VerifyEventSig(secret, tampered, sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyEventSig_RejectsMalformedSig(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	ok, err := VerifyEventSig(secret, map[string]interface{}{"a": 1}, "not-hex")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashHex_Deterministic(t *testing.T) {
	h1, err := HashHex(map[string]interface{}{"a": 1, "b": 2})
	require.NoError(t, err)
	h2, err := HashHex(map[string]interface{}{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestLoadSupervisorSecret_FromEnv(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	encoded := "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
	require.NoError(t, os.Setenv("SUPERVISOR_SECRET", encoded))
	defer func() { _ = os.Unsetenv("SUPERVISOR_SECRET") }()

	loaded, err := LoadSupervisorSecret(nil)
	require.NoError(t, err)
	assert.Equal(t, secret, loaded)
}

func TestLoadSupervisorSecret_EphemeralWhenAbsent(t *testing.T) {
	require.NoError(t, os.Unsetenv("SUPERVISOR_SECRET"))

	secret, err := LoadSupervisorSecret(nil)
	require.NoError(t, err)
	assert.Len(t, secret, 32)
}

func TestLoadSupervisorSecret_EphemeralWhenTooShort(t *testing.T) {
	require.NoError(t, os.Setenv("SUPERVISOR_SECRET", "c2hvcnQ="))
	defer func() { _ = os.Unsetenv("SUPERVISOR_SECRET") }()

	secret, err := LoadSupervisorSecret(nil)
	require.NoError(t, err)
	assert.Len(t, secret, 32)
}
