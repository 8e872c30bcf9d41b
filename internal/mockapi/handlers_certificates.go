package mockapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type paymentRequest struct {
	ServiceID  int    `json:"service_id"`
	CardNumber string `json:"card_number"`
	CardName   string `json:"card_name"`
	ExpiryDate string `json:"expiry_date"`
	CVV        string `json:"cvv"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

type generateRequest struct {
	ServiceID     int    `json:"service_id"`
	TransactionID string `json:"transaction_id"`
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog)
}

func (s *Server) handlePayment(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r)

	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	service, ok := s.serviceByID(req.ServiceID)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown service")
		return
	}
	if len(strings.ReplaceAll(req.CardNumber, " ", "")) < 12 {
		writeError(w, http.StatusBadRequest, "Invalid card number")
		return
	}

	now := s.nowTime()
	tx := &Transaction{
		TransactionID: fmt.Sprintf("TXN%s%d", now.Format("20060102150405"), account.ID),
		AccountID:     account.ID,
		ServiceID:     service.ID,
		Amount:        service.Amount,
		Status:        "completed",
		CreatedAt:     now,
	}
	s.txs.Put(tx)

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":        "Payment processed successfully",
		"transaction_id": tx.TransactionID,
		"status":         tx.Status,
		"amount":         tx.Amount,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r)

	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := s.txs.Get(req.TransactionID)
	if err != nil || tx.AccountID != account.ID {
		writeError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if tx.Status != "completed" {
		writeError(w, http.StatusBadRequest, "Payment not verified. Please complete payment first.")
		return
	}
	if tx.Consumed {
		writeError(w, http.StatusBadRequest, "Transaction already used")
		return
	}
	service, ok := s.serviceByID(req.ServiceID)
	if !ok || service.ID != tx.ServiceID {
		writeError(w, http.StatusBadRequest, "Service does not match transaction")
		return
	}

	referenceNo := uuid.New().String()
	doc := s.docs.Create(&IssuedDocument{
		AccountID:   account.ID,
		Title:       service.Title,
		ReferenceNo: referenceNo,
		QRCode:      "https://autodocs.example/verify?ref=" + referenceNo,
		Status:      "issued",
		CreatedAt:   s.nowTime(),
	})
	tx.Consumed = true

	writeJSON(w, http.StatusCreated, documentPayload(doc))
}

// handleVerify is public: anyone holding a reference number may check it.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	referenceNo := chi.URLParam(r, "ref")
	doc, err := s.docs.GetByRef(referenceNo)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"valid":   false,
			"message": "Certificate not found or invalid reference number.",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":       true,
		"certificate": documentPayload(doc),
	})
}

// handleListTransactions is the admin payment ledger across all accounts.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}
	txs := make([]map[string]any, 0)
	for _, tx := range s.txs.List() {
		entry := map[string]any{
			"transaction_id": tx.TransactionID,
			"user_id":        tx.AccountID,
			"service_id":     tx.ServiceID,
			"amount":         tx.Amount,
			"status":         tx.Status,
			"created_at":     tx.CreatedAt,
		}
		if account, err := s.accounts.Get(tx.AccountID); err == nil {
			entry["student_name"] = account.Name
			entry["student_email"] = account.Email
		}
		txs = append(txs, entry)
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleMyDocuments(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r)
	docs := make([]map[string]any, 0)
	for _, doc := range s.docs.ListByAccount(account.ID) {
		docs = append(docs, documentPayload(doc))
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r)
	doc, err := s.docs.Get(pathID(r))
	if err != nil || (doc.AccountID != account.ID && account.Role != "admin") {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	writeJSON(w, http.StatusOK, documentPayload(doc))
}

func (s *Server) handleRevokeDocument(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r)
	doc, err := s.docs.Get(pathID(r))
	if err != nil || (doc.AccountID != account.ID && account.Role != "admin") {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	if err := s.docs.Delete(doc.ID); err != nil {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Document revoked"})
}

func (s *Server) serviceByID(id int) (CatalogService, bool) {
	for _, service := range s.catalog {
		if service.ID == id {
			return service, true
		}
	}
	return CatalogService{}, false
}

func documentPayload(doc *IssuedDocument) map[string]any {
	return map[string]any{
		"id":           doc.ID,
		"title":        doc.Title,
		"reference_no": doc.ReferenceNo,
		"qr_code":      doc.QRCode,
		"status":       doc.Status,
		"created_at":   doc.CreatedAt,
	}
}
