package session

import "errors"

var (
	// ErrSessionLoading means the session has not resolved yet; the caller
	// should show a placeholder instead of evaluating protected content.
	ErrSessionLoading = errors.New("session state not resolved yet")

	// ErrLoginRequired means no user is logged in; the caller should send
	// the user to the login entry point.
	ErrLoginRequired = errors.New("login required")
)

// Gate protects authenticated-only actions. It is a pure function of the
// store's state and holds no state of its own.
type Gate struct {
	store *Store
}

// NewGate creates a gate over the given store.
func NewGate(store *Store) Gate {
	return Gate{store: store}
}

// Guard runs fn only when a user is logged in. While the store is still
// resolving, fn is not evaluated at all, so protected content never flashes
// for a user who turns out to be logged out.
func (g Gate) Guard(fn func() error) error {
	switch g.store.State() {
	case StateAuthenticating:
		return ErrSessionLoading
	case StateUnauthenticated:
		return ErrLoginRequired
	}
	return fn()
}
