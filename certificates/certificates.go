// Package certificates is the typed client for the document-services
// endpoints: service catalogue, payment, generation, verification and the
// user's issued documents.
package certificates

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/nomanstine/AutoDocs/api"
)

// ServiceInfo describes one orderable certificate or transcript service.
type ServiceInfo struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Amount       float64 `json:"amount"`
	DeliveryTime string  `json:"delivery_time"`
}

// PaymentRequest is the card payment form for a service.
type PaymentRequest struct {
	ServiceID  int    `json:"service_id"`
	CardNumber string `json:"card_number"`
	CardName   string `json:"card_name"`
	ExpiryDate string `json:"expiry_date"`
	CVV        string `json:"cvv"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// PaymentResponse is the outcome of a submitted payment.
type PaymentResponse struct {
	Message       string  `json:"message"`
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
}

type generateRequest struct {
	ServiceID     int    `json:"service_id"`
	TransactionID string `json:"transaction_id"`
}

// Document is an issued certificate or transcript.
type Document struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	ReferenceNo string    `json:"reference_no"`
	QRCode      string    `json:"qr_code"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// VerifyResult is the outcome of verifying a reference number. Certificate
// is set only when Valid is true; Message explains an invalid reference.
type VerifyResult struct {
	Valid       bool      `json:"valid"`
	Certificate *Document `json:"certificate,omitempty"`
	Message     string    `json:"message,omitempty"`
}

// Transaction is one payment in the admin ledger.
type Transaction struct {
	TransactionID string    `json:"transaction_id"`
	UserID        int       `json:"user_id"`
	StudentName   string    `json:"student_name"`
	StudentEmail  string    `json:"student_email"`
	ServiceID     int       `json:"service_id"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Client calls the certificate endpoints through the API gateway.
type Client struct {
	api *api.Client
}

// New creates a certificates client.
func New(apiClient *api.Client) *Client {
	return &Client{api: apiClient}
}

// Services returns the orderable service catalogue.
func (c *Client) Services(ctx context.Context) ([]ServiceInfo, error) {
	var services []ServiceInfo
	if err := c.api.Get(ctx, "/certificates/services", &services); err != nil {
		return nil, errors.Wrap(err, "[Client.Services] GET /certificates/services")
	}
	return services, nil
}

// Pay submits a payment for a service and returns the transaction.
func (c *Client) Pay(ctx context.Context, payment PaymentRequest) (PaymentResponse, error) {
	var resp PaymentResponse
	if err := c.api.Post(ctx, "/certificates/payment", payment, &resp); err != nil {
		return PaymentResponse{}, errors.Wrap(err, "[Client.Pay] POST /certificates/payment")
	}
	return resp, nil
}

// Generate issues the document for a paid transaction.
func (c *Client) Generate(ctx context.Context, serviceID int, transactionID string) (Document, error) {
	var doc Document
	req := generateRequest{ServiceID: serviceID, TransactionID: transactionID}
	if err := c.api.Post(ctx, "/certificates/generate", req, &doc); err != nil {
		return Document{}, errors.Wrap(err, "[Client.Generate] POST /certificates/generate")
	}
	return doc, nil
}

// Verify checks a certificate by its public reference number. Verification
// is a public endpoint; no session is required.
func (c *Client) Verify(ctx context.Context, referenceNo string) (VerifyResult, error) {
	var result VerifyResult
	if err := c.api.Get(ctx, "/certificates/verify/"+referenceNo, &result); err != nil {
		return VerifyResult{}, errors.Wrapf(err, "[Client.Verify] GET /certificates/verify/%s", referenceNo)
	}
	return result, nil
}

// MyDocuments lists the current user's issued documents.
func (c *Client) MyDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document
	if err := c.api.Get(ctx, "/certificates/my-documents", &docs); err != nil {
		return nil, errors.Wrap(err, "[Client.MyDocuments] GET /certificates/my-documents")
	}
	return docs, nil
}

// Transactions lists every account's payments. Admin only.
func (c *Client) Transactions(ctx context.Context) ([]Transaction, error) {
	var txs []Transaction
	if err := c.api.Get(ctx, "/certificates/transactions", &txs); err != nil {
		return nil, errors.Wrap(err, "[Client.Transactions] GET /certificates/transactions")
	}
	return txs, nil
}

// Document fetches one issued document by id.
func (c *Client) Document(ctx context.Context, id int) (Document, error) {
	var doc Document
	if err := c.api.Get(ctx, fmt.Sprintf("/certificates/document/%d", id), &doc); err != nil {
		return Document{}, errors.Wrapf(err, "[Client.Document] GET /certificates/document/%d", id)
	}
	return doc, nil
}

// Revoke removes an issued document.
func (c *Client) Revoke(ctx context.Context, id int) error {
	err := c.api.Delete(ctx, fmt.Sprintf("/certificates/document/%d", id), nil)
	return errors.Wrapf(err, "[Client.Revoke] DELETE /certificates/document/%d", id)
}
