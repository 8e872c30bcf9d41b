package certificates_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nomanstine/AutoDocs/api"
	"github.com/nomanstine/AutoDocs/auth"
	"github.com/nomanstine/AutoDocs/certificates"
	"github.com/nomanstine/AutoDocs/internal/mockapi"
	"github.com/nomanstine/AutoDocs/keystore/keystorefakes"
	"github.com/nomanstine/AutoDocs/session"
)

func setupClient(t *testing.T) *certificates.Client {
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
	_, err = authService.Login(context.Background(), "alice@autodocs.test", "password123")
	require.NoError(t, err)

	return certificates.New(apiClient)
}

// loginClient builds a full client stack against an already-running backend
// and logs it in, so tests can hold sessions for more than one account.
func loginClient(t *testing.T, serverURL, email, password string) *certificates.Client {
	t.Helper()

	keys := keystorefakes.NewFakeKeystore()
	store, err := session.NewStore(keys)
	require.NoError(t, err)
	require.NoError(t, store.Initialize())

	apiClient, err := api.New(serverURL, keys)
	require.NoError(t, err)
	authService, err := auth.NewService(apiClient, store, keys)
	require.NoError(t, err)

	_, err = authService.Login(context.Background(), email, password)
	require.NoError(t, err)
	return certificates.New(apiClient)
}

func validPayment(serviceID int) certificates.PaymentRequest {
	return certificates.PaymentRequest{
		ServiceID:  serviceID,
		CardNumber: "4242424242424242",
		CardName:   "Alice Rahman",
		ExpiryDate: "12/27",
		CVV:        "123",
		Email:      "alice@autodocs.test",
		Phone:      "+8801700000000",
	}
}

func TestServicesCatalogue(t *testing.T) {
	client := setupClient(t)

	services, err := client.Services(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, services)

	byID := make(map[int]certificates.ServiceInfo)
	for _, service := range services {
		byID[service.ID] = service
	}
	require.Equal(t, "Semester Transcript", byID[1].Title)
	require.Equal(t, float64(200), byID[1].Amount)
}

func TestPaymentAndGeneration(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	receipt, err := client.Pay(ctx, validPayment(2))
	require.NoError(t, err)
	require.NotEmpty(t, receipt.TransactionID)
	require.Equal(t, "completed", receipt.Status)
	require.Equal(t, float64(500), receipt.Amount)

	doc, err := client.Generate(ctx, 2, receipt.TransactionID)
	require.NoError(t, err)
	require.Equal(t, "Provisional Certificate", doc.Title)
	require.NotEmpty(t, doc.ReferenceNo)
	require.Contains(t, doc.QRCode, doc.ReferenceNo)

	t.Run("transaction cannot be reused", func(t *testing.T) {
		_, err := client.Generate(ctx, 2, receipt.TransactionID)
		var apiErr *api.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, "Transaction already used", apiErr.Message)
	})

	t.Run("issued document is listed", func(t *testing.T) {
		docs, err := client.MyDocuments(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Equal(t, doc.ReferenceNo, docs[0].ReferenceNo)
	})

	t.Run("fetch by id", func(t *testing.T) {
		fetched, err := client.Document(ctx, doc.ID)
		require.NoError(t, err)
		require.Equal(t, doc.ReferenceNo, fetched.ReferenceNo)
	})

	t.Run("verify is public", func(t *testing.T) {
		result, err := client.Verify(ctx, doc.ReferenceNo)
		require.NoError(t, err)
		require.True(t, result.Valid)
		require.NotNil(t, result.Certificate)
		require.Equal(t, doc.Title, result.Certificate.Title)
	})

	t.Run("revoke", func(t *testing.T) {
		require.NoError(t, client.Revoke(ctx, doc.ID))

		result, err := client.Verify(ctx, doc.ReferenceNo)
		require.NoError(t, err)
		require.False(t, result.Valid)
	})
}

func TestPaymentValidation(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	t.Run("unknown service", func(t *testing.T) {
		_, err := client.Pay(ctx, validPayment(999))
		var apiErr *api.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusNotFound, apiErr.Status)
	})

	t.Run("bad card number", func(t *testing.T) {
		payment := validPayment(1)
		payment.CardNumber = "1234"
		_, err := client.Pay(ctx, payment)
		var apiErr *api.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, "Invalid card number", apiErr.Message)
	})
}

func TestGenerateRequiresMatchingTransaction(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	t.Run("unknown transaction", func(t *testing.T) {
		_, err := client.Generate(ctx, 1, "TXN-bogus")
		var apiErr *api.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusNotFound, apiErr.Status)
	})

	t.Run("service mismatch", func(t *testing.T) {
		receipt, err := client.Pay(ctx, validPayment(1))
		require.NoError(t, err)

		_, err = client.Generate(ctx, 3, receipt.TransactionID)
		var apiErr *api.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, "Service does not match transaction", apiErr.Message)
	})
}

func TestAdminTransactionLedger(t *testing.T) {
	backend := mockapi.New()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	_, err := backend.SeedAccount("Alice Rahman", "alice@autodocs.test", "password123", "student")
	require.NoError(t, err)
	_, err = backend.SeedAccount("Registrar", "admin@autodocs.test", "admin123", "admin")
	require.NoError(t, err)

	ctx := context.Background()
	student := loginClient(t, server.URL, "alice@autodocs.test", "password123")
	admin := loginClient(t, server.URL, "admin@autodocs.test", "admin123")

	receipt, err := student.Pay(ctx, validPayment(1))
	require.NoError(t, err)
	_, err = admin.Pay(ctx, validPayment(3))
	require.NoError(t, err)

	t.Run("students are rejected", func(t *testing.T) {
		_, err := student.Transactions(ctx)
		var apiErr *api.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusForbidden, apiErr.Status)
		require.Equal(t, "Admin access required", apiErr.Message)
	})

	txs, err := admin.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	first := txs[0]
	require.Equal(t, receipt.TransactionID, first.TransactionID)
	require.Equal(t, "Alice Rahman", first.StudentName)
	require.Equal(t, "alice@autodocs.test", first.StudentEmail)
	require.Equal(t, 1, first.ServiceID)
	require.Equal(t, float64(200), first.Amount)
	require.Equal(t, "completed", first.Status)
	require.False(t, first.CreatedAt.IsZero())
}

func TestVerifyUnknownReference(t *testing.T) {
	client := setupClient(t)

	result, err := client.Verify(context.Background(), "not-a-real-ref")
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, "Certificate not found or invalid reference number.", result.Message)
}
