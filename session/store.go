// Package session holds the client-side record of who is logged in. The
// Store is the single source of truth for authentication state and writes
// every mutation through to the keystore before returning, so a restart
// immediately after any operation observes the new state.
package session

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/nomanstine/AutoDocs/keystore"
)

// State is the session's tri-state view.
type State int

const (
	// StateAuthenticating means durable storage has not been consulted yet.
	StateAuthenticating State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// Profile is the current user's fields keyed by name. The portal treats the
// profile as an open mapping (identity, role, academic attributes) rather
// than a fixed schema.
type Profile map[string]any

// Store is an injectable session service; create one per application (or per
// test) instead of sharing a process-wide singleton.
type Store struct {
	keys keystore.Store
	log  zerolog.Logger

	lock     sync.RWMutex
	state    State
	profile  Profile
	loading  bool
	initOnce sync.Once
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) { s.log = log }
}

// NewStore creates a session store backed by the given keystore. The store
// starts in StateAuthenticating until Initialize is called.
func NewStore(keys keystore.Store, options ...StoreOption) (*Store, error) {
	if keys == nil {
		return nil, errors.New("[session.NewStore] keystore is required")
	}
	store := &Store{
		keys:    keys,
		log:     zerolog.Nop(),
		state:   StateAuthenticating,
		loading: true,
	}
	for _, opt := range options {
		opt(store)
	}
	return store, nil
}

// Initialize consults durable storage once and resolves the session to
// authenticated or unauthenticated. It always terminates in one of the two
// resolved states and clears the loading flag exactly once; calling it again
// is a no-op.
func (s *Store) Initialize() error {
	s.initOnce.Do(s.initialize)
	return nil
}

func (s *Store) initialize() {
	s.lock.Lock()
	defer s.lock.Unlock()
	defer func() { s.loading = false }()

	token, tokenErr := s.keys.Get(keystore.KeyAccessToken)
	rawUser, userErr := s.keys.Get(keystore.KeyUser)

	if tokenErr != nil || userErr != nil || token == "" {
		s.resetLocked()
		return
	}

	var profile Profile
	if err := json.Unmarshal([]byte(rawUser), &profile); err != nil {
		// A corrupt snapshot must not stay authoritative: drop all three
		// keys rather than resurrecting half a session on the next run.
		s.log.Warn().Err(err).Msg("corrupt stored profile, clearing session")
		s.resetLocked()
		return
	}

	s.state = StateAuthenticated
	s.profile = profile
	s.log.Debug().Msg("session restored from keystore")
}

// Login records an authenticated user and persists both the profile snapshot
// and the access token. The refresh token is stored by the login flow before
// this is called.
func (s *Store) Login(profile Profile, accessToken string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	snapshot, err := json.Marshal(profile)
	if err != nil {
		return errors.Wrap(err, "[Store.Login] marshalling profile")
	}
	if err := s.keys.Set(keystore.KeyUser, string(snapshot)); err != nil {
		return errors.Wrap(err, "[Store.Login] persisting profile")
	}
	if err := s.keys.Set(keystore.KeyAccessToken, accessToken); err != nil {
		return errors.Wrap(err, "[Store.Login] persisting access token")
	}

	s.state = StateAuthenticated
	s.profile = cloneProfile(profile)
	return nil
}

// Logout clears the in-memory user and deletes all three durable keys.
// Idempotent: a second call leaves state and storage unchanged.
func (s *Store) Logout() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.keys.ClearAuth(); err != nil {
		return errors.Wrap(err, "[Store.Logout] clearing stored credentials")
	}
	s.state = StateUnauthenticated
	s.profile = nil
	return nil
}

// UpdateProfile shallow-merges partial fields into the current profile and
// re-persists the merged snapshot. A store that is not authenticated ignores
// the call rather than constructing a user from nothing.
func (s *Store) UpdateProfile(partial Profile) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.state != StateAuthenticated {
		s.log.Debug().Msg("UpdateProfile ignored: not authenticated")
		return nil
	}

	merged := cloneProfile(s.profile)
	for field, value := range partial {
		merged[field] = value
	}

	snapshot, err := json.Marshal(merged)
	if err != nil {
		return errors.Wrap(err, "[Store.UpdateProfile] marshalling profile")
	}
	if err := s.keys.Set(keystore.KeyUser, string(snapshot)); err != nil {
		return errors.Wrap(err, "[Store.UpdateProfile] persisting profile")
	}

	s.profile = merged
	return nil
}

// User returns a copy of the current profile, or nil when not authenticated.
func (s *Store) User() Profile {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.state != StateAuthenticated {
		return nil
	}
	return cloneProfile(s.profile)
}

// State reports the current session state.
func (s *Store) State() State {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state
}

// Loading reports whether Initialize has resolved yet.
func (s *Store) Loading() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.loading
}

// Authenticated reports whether a user is currently logged in.
func (s *Store) Authenticated() bool {
	return s.State() == StateAuthenticated
}

// Terminated is the api.TerminatedFunc hook: it drops the in-memory session
// when the gateway destroys the stored one, keeping the two views consistent.
func (s *Store) Terminated() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state = StateUnauthenticated
	s.profile = nil
}

func (s *Store) resetLocked() {
	if err := s.keys.ClearAuth(); err != nil {
		s.log.Error().Err(err).Msg("failed to clear stored credentials")
	}
	s.state = StateUnauthenticated
	s.profile = nil
}

func cloneProfile(p Profile) Profile {
	clone := make(Profile, len(p))
	for field, value := range p {
		clone[field] = value
	}
	return clone
}
