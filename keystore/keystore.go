// Package keystore defines the durable key/value store that holds the
// client's credentials and cached profile between runs.
package keystore

import "errors"

// Storage keys shared with the portal's web client. The names are part of
// the contract: a keystore written by one client must be readable by another.
const (
	KeyAccessToken  = "auth_token"
	KeyUser         = "auth_user"
	KeyRefreshToken = "refresh_token"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("keystore: key not found")

// Store persists opaque string values under well-known keys. Implementations
// must commit each write before returning, so that a process restart
// immediately after any call observes the new state.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error

	// ClearAuth removes the access token, refresh token and cached user
	// as a unit. The three keys are only meaningful together; clearing
	// them individually can leave a token without its user record.
	ClearAuth() error

	Close() error
}
