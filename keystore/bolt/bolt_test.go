package bolt_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nomanstine/AutoDocs/keystore"
	"github.com/nomanstine/AutoDocs/keystore/bolt"
)

func openKeystore(t *testing.T) *bolt.Keystore {
	t.Helper()
	keys, err := bolt.Open(filepath.Join(t.TempDir(), "autodocs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = keys.Close() })
	return keys
}

func TestSetGetDelete(t *testing.T) {
	keys := openKeystore(t)

	_, err := keys.Get(keystore.KeyAccessToken)
	require.ErrorIs(t, err, keystore.ErrNotFound)

	require.NoError(t, keys.Set(keystore.KeyAccessToken, "T1"))
	value, err := keys.Get(keystore.KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "T1", value)

	require.NoError(t, keys.Set(keystore.KeyAccessToken, "T2"))
	value, err = keys.Get(keystore.KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "T2", value)

	require.NoError(t, keys.Delete(keystore.KeyAccessToken))
	_, err = keys.Get(keystore.KeyAccessToken)
	require.ErrorIs(t, err, keystore.ErrNotFound)
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autodocs.db")

	keys, err := bolt.Open(path)
	require.NoError(t, err)
	require.NoError(t, keys.Set(keystore.KeyRefreshToken, "R1"))
	require.NoError(t, keys.Close())

	reopened, err := bolt.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get(keystore.KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "R1", value)
}

func TestClearAuthRemovesAllThreeKeys(t *testing.T) {
	keys := openKeystore(t)
	require.NoError(t, keys.Set(keystore.KeyAccessToken, "T1"))
	require.NoError(t, keys.Set(keystore.KeyUser, `{"name":"Alice"}`))
	require.NoError(t, keys.Set(keystore.KeyRefreshToken, "R1"))
	require.NoError(t, keys.Set("unrelated", "kept"))

	require.NoError(t, keys.ClearAuth())

	for _, key := range []string{keystore.KeyAccessToken, keystore.KeyUser, keystore.KeyRefreshToken} {
		_, err := keys.Get(key)
		require.ErrorIs(t, err, keystore.ErrNotFound)
	}
	value, err := keys.Get("unrelated")
	require.NoError(t, err)
	require.Equal(t, "kept", value)

	// Idempotent: clearing an already clean store is fine.
	require.NoError(t, keys.ClearAuth())
}
