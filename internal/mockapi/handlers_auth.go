package mockapi

import "net/http"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := s.accounts.GetByEmail(req.Email)
	if err != nil || !checkPassword(req.Password, account.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	s.issueTokenPair(w, account)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		writeError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	if _, err := s.accounts.GetByEmail(req.Email); err == nil {
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	}

	account, err := s.SeedAccount(req.FullName, req.Email, req.Password, "student")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":    account.ID,
		"name":  account.Name,
		"email": account.Email,
	})
}

// handleRefresh exchanges a refresh token for a fresh pair. Tokens rotate on
// every use.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	accountID, err := s.refresh.Redeem(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	account, err := s.accounts.Get(accountID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	s.issueTokenPair(w, account)
}

func (s *Server) issueTokenPair(w http.ResponseWriter, account *Account) {
	accessToken, err := s.issuer.mintAccessToken(account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	refreshToken, err := s.refresh.Create(account.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	})
}
