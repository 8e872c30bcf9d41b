// Package mockapi is an in-memory implementation of the portal's wire
// contract. It backs the package tests and the local mockd server; it is a
// test double, not the production API.
package mockapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

type contextKey string

const accountContextKey contextKey = "account"

// Server holds the mock backend's state and routes.
type Server struct {
	router   chi.Router
	log      zerolog.Logger
	issuer   *tokenIssuer
	refresh  *refreshManager
	accounts *accountRepo
	txs      *transactionRepo
	docs     *documentRepo
	catalog  []CatalogService
	nowTime  func() time.Time
}

// CatalogService is one entry of the orderable service catalogue.
type CatalogService struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Amount       float64 `json:"amount"`
	DeliveryTime string  `json:"delivery_time"`
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithNowTime sets the clock (primarily for testing token expiry).
func WithNowTime(nowFunc func() time.Time) ServerOption {
	return func(s *Server) { s.nowTime = nowFunc }
}

// WithAccessTokenTTL overrides the access token lifetime.
func WithAccessTokenTTL(ttl time.Duration) ServerOption {
	return func(s *Server) { s.issuer.accessTTL = ttl }
}

// WithLogger sets the server logger.
func WithLogger(log zerolog.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// New creates a mock backend with an empty account base and the standard
// service catalogue.
func New(options ...ServerOption) *Server {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)

	s := &Server{
		log:      zerolog.Nop(),
		accounts: newAccountRepo(),
		txs:      newTransactionRepo(),
		docs:     newDocumentRepo(),
		catalog:  defaultCatalog(),
		nowTime:  time.Now,
	}
	s.issuer = &tokenIssuer{secret: secret, accessTTL: defaultAccessTTL, nowTime: func() time.Time { return s.nowTime() }}
	for _, opt := range options {
		opt(s)
	}
	s.refresh = newRefreshManager(func() time.Time { return s.nowTime() }, defaultRefreshTTL)

	s.initRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) initRoutes() {
	r := chi.NewRouter()
	r.Use(s.loggingMiddleware)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/refresh", s.handleRefresh)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/me", s.handleMe)
		r.Put("/me", s.handleUpdateMe)
		r.Put("/me/password", s.handleChangePassword)
		r.Get("/", s.handleListAccounts)
		r.Get("/{id}", s.handleGetAccount)
		r.Put("/{id}", s.handleUpdateAccount)
		r.Delete("/{id}", s.handleDeleteAccount)
	})

	r.Route("/certificates", func(r chi.Router) {
		r.Get("/services", s.handleServices)
		r.Get("/verify/{ref}", s.handleVerify)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/payment", s.handlePayment)
			r.Post("/generate", s.handleGenerate)
			r.Get("/my-documents", s.handleMyDocuments)
			r.Get("/transactions", s.handleListTransactions)
			r.Get("/document/{id}", s.handleGetDocument)
			r.Delete("/document/{id}", s.handleRevokeDocument)
		})
	})

	s.router = r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		next.ServeHTTP(w, r)
	})
}

// requireAuth validates the bearer token and stores the account in the
// request context. Anything invalid or expired is a 401.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		accountID, err := s.issuer.parseAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		account, err := s.accounts.Get(accountID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		ctx := context.WithValue(r.Context(), accountContextKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountFrom(r *http.Request) *Account {
	account, _ := r.Context().Value(accountContextKey).(*Account)
	return account
}

// SeedAccount registers an account directly, bypassing the HTTP surface.
// Used by tests and by mockd to provision known logins.
func (s *Server) SeedAccount(name, email, password, role string) (*Account, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	account := &Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Department:   "Computer Science and Engineering",
		Session:      "2021-22",
	}
	return s.accounts.Create(account), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decodeJSON(r *http.Request, into any) error {
	return json.NewDecoder(r.Body).Decode(into)
}

func defaultCatalog() []CatalogService {
	return []CatalogService{
		{ID: 1, Title: "Semester Transcript", Description: "Official transcript with grades for a specific semester", Amount: 200, DeliveryTime: "2-3"},
		{ID: 2, Title: "Provisional Certificate", Description: "Temporary certificate before receiving the original", Amount: 500, DeliveryTime: "3-5"},
		{ID: 3, Title: "Complete Transcript", Description: "Full academic record with all semester results", Amount: 1000, DeliveryTime: "5-7"},
		{ID: 4, Title: "Character Certificate", Description: "Official document certifying student conduct", Amount: 300, DeliveryTime: "0"},
		{ID: 5, Title: "Migration Certificate", Description: "Required for pursuing education in other institutions", Amount: 800, DeliveryTime: "7-10"},
		{ID: 6, Title: "Marksheet Copy", Description: "Certified duplicate of original marksheet", Amount: 250, DeliveryTime: "1-2"},
		{ID: 67, Title: "Testimonial", Description: "Official Testimonial of the Undergraduation course", Amount: 200, DeliveryTime: "2-3"},
	}
}
