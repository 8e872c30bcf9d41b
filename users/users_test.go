package users_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nomanstine/AutoDocs/api"
	"github.com/nomanstine/AutoDocs/auth"
	"github.com/nomanstine/AutoDocs/internal/mockapi"
	"github.com/nomanstine/AutoDocs/internal/utils"
	"github.com/nomanstine/AutoDocs/keystore/keystorefakes"
	"github.com/nomanstine/AutoDocs/session"
	"github.com/nomanstine/AutoDocs/users"
)

type testFixture struct {
	backend *mockapi.Server
	client  *users.Client
	login   func(t *testing.T, email, password string)
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := mockapi.New()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	keys := keystorefakes.NewFakeKeystore()
	store, err := session.NewStore(keys)
	require.NoError(t, err)
	require.NoError(t, store.Initialize())

	apiClient, err := api.New(server.URL, keys)
	require.NoError(t, err)
	authService, err := auth.NewService(apiClient, store, keys)
	require.NoError(t, err)

	_, err = backend.SeedAccount("Alice Rahman", "alice@autodocs.test", "password123", "student")
	require.NoError(t, err)
	_, err = backend.SeedAccount("Portal Admin", "admin@autodocs.test", "admin123", "admin")
	require.NoError(t, err)

	return &testFixture{
		backend: backend,
		client:  users.New(apiClient),
		login: func(t *testing.T, email, password string) {
			t.Helper()
			_, err := authService.Login(context.Background(), email, password)
			require.NoError(t, err)
		},
	}
}

func TestMe(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "alice@autodocs.test", "password123")

	profile, err := f.client.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Alice Rahman", profile["name"])
	require.Equal(t, "student", profile["role"])
}

func TestUpdateMe(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "alice@autodocs.test", "password123")

	updated, err := f.client.UpdateMe(context.Background(), session.Profile{
		"name":       "Alice R. Chowdhury",
		"student_id": "190104",
	})
	require.NoError(t, err)
	require.Equal(t, "Alice R. Chowdhury", updated["name"])
	require.Equal(t, "190104", updated["student_id"])

	profile, err := f.client.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Alice R. Chowdhury", profile["name"])
}

func TestUpdateMeDuplicateEmail(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "alice@autodocs.test", "password123")

	_, err := f.client.UpdateMe(context.Background(), session.Profile{"email": "admin@autodocs.test"})
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "Email already registered", apiErr.Message)
}

func TestChangePassword(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "alice@autodocs.test", "password123")

	t.Run("wrong current password", func(t *testing.T) {
		err := f.client.ChangePassword(context.Background(), "nope", "newpass123")
		var apiErr *api.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, "Current password is incorrect", apiErr.Message)
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, f.client.ChangePassword(context.Background(), "password123", "newpass123"))
	})
}

func TestAdminEndpointsRequireAdminRole(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "alice@autodocs.test", "password123")

	_, err := f.client.List(context.Background(), 0, 100)
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestAdminAccountManagement(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "admin@autodocs.test", "admin123")
	ctx := context.Background()

	accounts, err := f.client.List(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	alice := accounts[0]
	require.Equal(t, "Alice Rahman", alice.Name)

	t.Run("get by id", func(t *testing.T) {
		account, err := f.client.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		require.Equal(t, alice.Email, account.Email)
	})

	t.Run("update", func(t *testing.T) {
		account, err := f.client.UpdateByID(ctx, alice.ID, users.Update{
			Name: utils.Ptr("Alice Renamed"),
		})
		require.NoError(t, err)
		require.Equal(t, "Alice Renamed", account.Name)
		require.Equal(t, alice.Email, account.Email, "unset fields stay unchanged")
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, f.client.DeleteByID(ctx, alice.ID))

		_, err := f.client.GetByID(ctx, alice.ID)
		var apiErr *api.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusNotFound, apiErr.Status)
	})
}
