package mockapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nomanstine/AutoDocs/api"
	"github.com/nomanstine/AutoDocs/auth"
	"github.com/nomanstine/AutoDocs/certificates"
	"github.com/nomanstine/AutoDocs/internal/mockapi"
	"github.com/nomanstine/AutoDocs/keystore"
	"github.com/nomanstine/AutoDocs/keystore/keystorefakes"
	"github.com/nomanstine/AutoDocs/session"
	"github.com/nomanstine/AutoDocs/users"
)

// clock is a movable time source shared with the backend, so tests can
// expire access tokens without sleeping.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestFullPortalFlow walks the whole client journey: register, log in,
// fetch the profile, silently survive an access token expiry mid-session,
// order and verify a certificate, and finally lose the session when the
// refresh token is revoked.
func TestFullPortalFlow(t *testing.T) {
	clk := newClock()
	backend := mockapi.New(mockapi.WithNowTime(clk.Now))
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	keys := keystorefakes.NewFakeKeystore()
	store, err := session.NewStore(keys)
	require.NoError(t, err)
	require.NoError(t, store.Initialize())

	apiClient, err := api.New(server.URL, keys, api.WithTerminatedFunc(store.Terminated))
	require.NoError(t, err)

	authService, err := auth.NewService(apiClient, store, keys)
	require.NoError(t, err)
	userClient := users.New(apiClient)
	certClient := certificates.New(apiClient)

	ctx := context.Background()

	// Register and log in.
	require.NoError(t, authService.Register(ctx, "Nahid Hasan", "nahid@autodocs.test", "secret123"))
	profile, err := authService.Login(ctx, "nahid@autodocs.test", "secret123")
	require.NoError(t, err)
	require.Equal(t, "Nahid Hasan", profile["name"])

	tokenBefore, err := keys.Get(keystore.KeyAccessToken)
	require.NoError(t, err)
	refreshBefore, err := keys.Get(keystore.KeyRefreshToken)
	require.NoError(t, err)

	// The access token expires; the next call must refresh and replay
	// without the caller noticing anything.
	clk.Advance(20 * time.Minute)

	updated, err := userClient.UpdateMe(ctx, session.Profile{"name": "Nahid H. Chowdhury"})
	require.NoError(t, err, "caller must not observe the expiry")
	require.Equal(t, "Nahid H. Chowdhury", updated["name"])
	require.NoError(t, store.UpdateProfile(updated))

	tokenAfter, err := keys.Get(keystore.KeyAccessToken)
	require.NoError(t, err)
	require.NotEqual(t, tokenBefore, tokenAfter, "a new access token was minted")

	// Refresh tokens rotate on use: the pre-refresh token is dead.
	t.Run("old refresh token is rejected after rotation", func(t *testing.T) {
		payload, err := json.Marshal(map[string]string{"refresh_token": refreshBefore})
		require.NoError(t, err)
		resp, err := http.Post(server.URL+"/auth/refresh", "application/json", bytes.NewReader(payload))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	// Order a certificate end to end.
	receipt, err := certClient.Pay(ctx, certificates.PaymentRequest{
		ServiceID:  4,
		CardNumber: "4242424242424242",
		CardName:   "Nahid Hasan",
		ExpiryDate: "01/28",
		CVV:        "321",
		Email:      "nahid@autodocs.test",
		Phone:      "+8801800000000",
	})
	require.NoError(t, err)

	doc, err := certClient.Generate(ctx, 4, receipt.TransactionID)
	require.NoError(t, err)
	require.Equal(t, "Character Certificate", doc.Title)

	result, err := certClient.Verify(ctx, doc.ReferenceNo)
	require.NoError(t, err)
	require.True(t, result.Valid)

	// Changing the password revokes the refresh token; once the access
	// token also expires the session cannot be recovered.
	require.NoError(t, userClient.ChangePassword(ctx, "secret123", "evenmoresecret"))
	clk.Advance(20 * time.Minute)

	_, err = userClient.Me(ctx)
	var authErr *api.AuthExpiredError
	require.ErrorAs(t, err, &authErr)

	require.Equal(t, session.StateUnauthenticated, store.State())
	require.Zero(t, keys.Len(), "stored credentials cleared as a unit")
}
