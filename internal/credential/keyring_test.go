package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVault_SetGetDelete(t *testing.T) {
	v := NewVault(keyring.NewArrayKeyring(nil))

	_, err := v.Get(TokenKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, v.Set(TokenKey, "tok-1"))
	got, err := v.Get(TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got)

	require.NoError(t, v.Set(TokenKey, "tok-2"))
	got, err = v.Get(TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", got)

	require.NoError(t, v.Delete(TokenKey))
	_, err = v.Get(TokenKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVault_DeleteMissingKeyIsNoop(t *testing.T) {
	v := NewVault(keyring.NewArrayKeyring(nil))
	assert.NoError(t, v.Delete("never-set"))
}
