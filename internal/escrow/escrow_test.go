package escrow

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	v := New("server-secret")
	require.False(t, v.Disabled())

	sealed, err := v.Seal("Xk93-pass")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "Xk93-pass")

	plain, err := v.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "Xk93-pass", plain)
}

func TestSealUsesFreshSalt(t *testing.T) {
	v := New("server-secret")
	a, err := v.Seal("same")
	require.NoError(t, err)
	b, err := v.Seal("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenWithWrongSecretFails(t *testing.T) {
	sealed, err := New("one").Seal("value")
	require.NoError(t, err)

	_, err = New("two").Open(sealed)
	assert.ErrorContains(t, err, "decrypt")
}

func TestOpenRejectsGarbage(t *testing.T) {
	v := New("server-secret")

	_, err := v.Open("not base64!")
	assert.Error(t, err)

	_, err = v.Open(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorContains(t, err, "too small")
}

func TestDisabledVault(t *testing.T) {
	v := New("")
	assert.True(t, v.Disabled())

	sealed, err := v.Seal("pw")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	_, err = v.Open("anything")
	assert.ErrorIs(t, err, ErrDisabled)

	var nilVault *Vault
	assert.True(t, nilVault.Disabled())
}
