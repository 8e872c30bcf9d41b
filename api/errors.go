package api

import (
	"encoding/json"
	"fmt"
)

const (
	genericErrMessage = "Something went wrong"
	networkErrMessage = "Network error. Please check your connection."
)

// APIError is any non-2xx response that is not an authorization failure.
// Message prefers the server supplied message; Data carries the raw payload
// so callers can surface validation details verbatim.
type APIError struct {
	Message string
	Status  int
	Data    json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// NetworkError means no response reached the client: DNS failure, refused
// connection, or a request timeout. Never triggers a token refresh.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return networkErrMessage }
func (e *NetworkError) Unwrap() error { return e.Err }

// AuthExpiredError means the session was destroyed: a 401 arrived and there
// was no refresh token, or the refresh call itself failed.
type AuthExpiredError struct {
	Err error
}

func (e *AuthExpiredError) Error() string { return "session expired: " + e.Err.Error() }
func (e *AuthExpiredError) Unwrap() error { return e.Err }

// RefreshedRetryError means the token was refreshed successfully but the
// replayed request failed anyway. The replay is never refreshed again.
type RefreshedRetryError struct {
	Err error
}

func (e *RefreshedRetryError) Error() string { return "request failed after token refresh: " + e.Err.Error() }
func (e *RefreshedRetryError) Unwrap() error { return e.Err }

// newAPIError normalises an error response body into an APIError. FastAPI
// style backends use "detail", the portal's own handlers use "message";
// anything else falls back to a generic message.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		Message: genericErrMessage,
		Status:  status,
	}
	if len(body) == 0 {
		return apiErr
	}
	apiErr.Data = json.RawMessage(body)

	var payload struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}
	if payload.Message != "" {
		apiErr.Message = payload.Message
	} else if payload.Detail != "" {
		apiErr.Message = payload.Detail
	}
	return apiErr
}
