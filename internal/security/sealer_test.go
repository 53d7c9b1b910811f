package security_test

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"finance-tracker-client/internal/security"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestSealer_RoundTrip(t *testing.T) {
	sealer, err := security.NewSealer(newKey(t))
	require.NoError(t, err)

	plain := []byte(`{"accessToken":"A1","refreshToken":"R1"}`)
	sealed, err := sealer.Seal(plain)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed, []byte("R1")))

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, opened)
}

func TestSealer_Rejects(t *testing.T) {
	sealer, err := security.NewSealer(newKey(t))
	require.NoError(t, err)
	other, err := security.NewSealer(newKey(t))
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, security.ErrSealedDataCorrupted)

	sealed[len(sealed)-1] ^= 0xFF
	_, err = sealer.Open(sealed)
	assert.ErrorIs(t, err, security.ErrSealedDataCorrupted)

	_, err = sealer.Open([]byte("short"))
	assert.ErrorIs(t, err, security.ErrSealedDataCorrupted)
}

func TestNewSealer_BadKey(t *testing.T) {
	_, err := security.NewSealer("%%%")
	assert.Error(t, err)

	_, err = security.NewSealer(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.Error(t, err)
}
