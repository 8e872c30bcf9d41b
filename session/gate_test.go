package session_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nomanstine/AutoDocs/keystore"
	"github.com/nomanstine/AutoDocs/keystore/keystorefakes"
	"github.com/nomanstine/AutoDocs/session"
)

func TestGuardWhileLoading(t *testing.T) {
	store := newStore(t, keystorefakes.NewFakeKeystore())
	gate := session.NewGate(store)

	evaluated := false
	err := gate.Guard(func() error {
		evaluated = true
		return nil
	})

	require.ErrorIs(t, err, session.ErrSessionLoading)
	require.False(t, evaluated, "protected content must not be evaluated before the session resolves")
}

func TestGuardUnauthenticated(t *testing.T) {
	store := newStore(t, keystorefakes.NewFakeKeystore())
	require.NoError(t, store.Initialize())
	gate := session.NewGate(store)

	evaluated := false
	err := gate.Guard(func() error {
		evaluated = true
		return nil
	})

	require.ErrorIs(t, err, session.ErrLoginRequired)
	require.False(t, evaluated)
}

func TestGuardAuthenticated(t *testing.T) {
	keys := keystorefakes.NewFakeKeystore()
	require.NoError(t, keys.Set(keystore.KeyAccessToken, "T1"))
	require.NoError(t, keys.Set(keystore.KeyUser, `{"name":"Alice"}`))

	store := newStore(t, keys)
	require.NoError(t, store.Initialize())
	gate := session.NewGate(store)

	evaluated := false
	require.NoError(t, gate.Guard(func() error {
		evaluated = true
		return nil
	}))
	require.True(t, evaluated)
}
