package mockapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func profileOf(account *Account) map[string]any {
	profile := map[string]any{
		"id":    account.ID,
		"name":  account.Name,
		"email": account.Email,
		"role":  account.Role,
	}
	if account.StudentID != "" {
		profile["student_id"] = account.StudentID
	}
	if account.RegNo != "" {
		profile["reg_no"] = account.RegNo
	}
	if account.Session != "" {
		profile["session"] = account.Session
	}
	if account.Department != "" {
		profile["department"] = account.Department
	}
	if account.CGPA != 0 {
		profile["cgpa"] = account.CGPA
	}
	if len(account.Courses) > 0 {
		profile["courses"] = account.Courses
	}
	return profile
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, profileOf(accountFrom(r)))
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r)

	var fields map[string]any
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if name, ok := fields["name"].(string); ok && name != "" {
		account.Name = name
	}
	if email, ok := fields["email"].(string); ok && email != "" {
		if existing, err := s.accounts.GetByEmail(email); err == nil && existing.ID != account.ID {
			writeError(w, http.StatusBadRequest, "Email already registered")
			return
		}
		account.Email = email
	}
	if studentID, ok := fields["student_id"].(string); ok {
		account.StudentID = studentID
	}
	if regNo, ok := fields["reg_no"].(string); ok {
		account.RegNo = regNo
	}
	if department, ok := fields["department"].(string); ok {
		account.Department = department
	}

	writeJSON(w, http.StatusOK, profileOf(account))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r)

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !checkPassword(req.CurrentPassword, account.PasswordHash) {
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}
	account.PasswordHash = hash
	// Changing the password invalidates the outstanding refresh token.
	s.refresh.Revoke(account.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) *Account {
	account := accountFrom(r)
	if account.Role != "admin" {
		writeError(w, http.StatusForbidden, "Admin access required")
		return nil
	}
	return account
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 100
	}

	summaries := make([]map[string]any, 0)
	for _, account := range s.accounts.List(skip, limit) {
		summaries = append(summaries, map[string]any{
			"id":    account.ID,
			"name":  account.Name,
			"email": account.Email,
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}
	account, err := s.accounts.Get(pathID(r))
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    account.ID,
		"name":  account.Name,
		"email": account.Email,
	})
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}
	account, err := s.accounts.Get(pathID(r))
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name != nil {
		account.Name = *req.Name
	}
	if req.Email != nil {
		account.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update password")
			return
		}
		account.PasswordHash = hash
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    account.ID,
		"name":  account.Name,
		"email": account.Email,
	})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}
	id := pathID(r)
	if err := s.accounts.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	s.refresh.Revoke(id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

func pathID(r *http.Request) int {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	return id
}
