// Package auth implements the login, registration and logout flows that tie
// the API gateway and the session store together.
package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/nomanstine/AutoDocs/api"
	"github.com/nomanstine/AutoDocs/keystore"
	"github.com/nomanstine/AutoDocs/session"
)

// TokenResponse is the credential pair returned by the login and refresh
// endpoints.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// Service drives the authentication flows.
type Service struct {
	api     *api.Client
	session *session.Store
	keys    keystore.Store
}

// NewService initialises the auth service with its required dependencies.
func NewService(apiClient *api.Client, sessionStore *session.Store, keys keystore.Store) (*Service, error) {
	if apiClient == nil {
		return nil, errors.New("[auth.NewService] api client is required")
	}
	if sessionStore == nil {
		return nil, errors.New("[auth.NewService] session store is required")
	}
	if keys == nil {
		return nil, errors.New("[auth.NewService] keystore is required")
	}
	return &Service{api: apiClient, session: sessionStore, keys: keys}, nil
}

// Login exchanges credentials for a token pair, fetches the profile and
// establishes the session. The refresh token is persisted before the access
// token so a crash in between never leaves an access token that cannot
// recover from expiry.
func (s *Service) Login(ctx context.Context, email, password string) (session.Profile, error) {
	var tokens TokenResponse
	if err := s.api.Post(ctx, "/auth/login", loginRequest{Email: email, Password: password}, &tokens); err != nil {
		return nil, errors.Wrap(err, "[Service.Login] /auth/login")
	}
	if tokens.AccessToken == "" {
		return nil, errors.New("[Service.Login] login response missing access token")
	}

	if tokens.RefreshToken != "" {
		if err := s.keys.Set(keystore.KeyRefreshToken, tokens.RefreshToken); err != nil {
			return nil, errors.Wrap(err, "[Service.Login] persisting refresh token")
		}
	}
	if err := s.keys.Set(keystore.KeyAccessToken, tokens.AccessToken); err != nil {
		return nil, errors.Wrap(err, "[Service.Login] persisting access token")
	}

	var profile session.Profile
	if err := s.api.Get(ctx, "/users/me", &profile); err != nil {
		// Tokens without a user record would be a torn session; drop them.
		_ = s.keys.ClearAuth()
		return nil, errors.Wrap(err, "[Service.Login] fetching profile")
	}

	if err := s.session.Login(profile, tokens.AccessToken); err != nil {
		return nil, errors.Wrap(err, "[Service.Login] establishing session")
	}
	return profile, nil
}

// Register creates a new account. It does not log the user in; the portal
// sends new users through the login flow afterwards.
func (s *Service) Register(ctx context.Context, fullName, email, password string) error {
	err := s.api.Post(ctx, "/auth/register", registerRequest{
		Email:    email,
		FullName: fullName,
		Password: password,
	}, nil)
	return errors.Wrap(err, "[Service.Register] /auth/register")
}

// Logout destroys the local session. The portal API keeps no server-side
// session to invalidate.
func (s *Service) Logout() error {
	return errors.Wrap(s.session.Logout(), "[Service.Logout] session logout")
}
