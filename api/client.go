// Package api is the single transport used for every portal call. It
// attaches the stored bearer token to outgoing requests, silently refreshes
// an expired access token exactly once per request, and normalises every
// failure into the package's error taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/nomanstine/AutoDocs/keystore"
)

const (
	defaultTimeout = 10 * time.Second
	refreshPath    = "/auth/refresh"
)

// errNoRefreshToken distinguishes "nothing to refresh with" from a failed
// refresh call; the caller propagates the original 401 in that case.
var errNoRefreshToken = errors.New("no refresh token stored")

// TerminatedFunc is invoked when the session is destroyed (missing or
// rejected refresh token). The application decides how to react, typically
// by sending the user back to the login entry point; the client itself
// never navigates.
type TerminatedFunc func()

// Client is the portal API gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
	keys       keystore.Store
	log        zerolog.Logger
	terminated TerminatedFunc

	refreshLock sync.Mutex
	refreshing  *refreshCall
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (primarily for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTerminatedFunc registers the session-terminated callback.
func WithTerminatedFunc(fn TerminatedFunc) Option {
	return func(c *Client) { c.terminated = fn }
}

// New creates a portal API client rooted at baseURL.
func New(baseURL string, keys keystore.Store, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[api.New] baseURL is required")
	}
	if keys == nil {
		return nil, errors.New("[api.New] keystore is required")
	}

	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		keys:       keys,
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(client)
	}
	return client, nil
}

// Get issues an authenticated GET and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

// Post issues an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, body, out)
}

// Put issues an authenticated PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPut, path, body, out)
}

// Delete issues an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodDelete, path, nil, out)
}

// call buffers the body once so a replay after refresh sends identical bytes.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.call] marshalling request body")
		}
	}
	return c.do(ctx, method, path, payload, out, false)
}

// do dispatches one request. retried marks a replay after a token refresh;
// a replayed 401 propagates as a failure instead of refreshing again.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any, retried bool) error {
	req, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("transport failure")
		return &NetworkError{Err: err}
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return &NetworkError{Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return errors.Wrapf(err, "[Client.do] decoding %s %s response", method, path)
		}
		return nil
	}

	if resp.StatusCode == http.StatusUnauthorized && !retried {
		return c.refreshAndReplay(ctx, method, path, payload, out, newAPIError(resp.StatusCode, body))
	}

	return newAPIError(resp.StatusCode, body)
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload []byte) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrapf(err, "[Client.newRequest] %s %s", method, path)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Only the access token is ever attached as a bearer credential. A
	// missing token is not an error; the request goes out unauthenticated
	// and the server decides whether to reject it.
	token, err := c.keys.Get(keystore.KeyAccessToken)
	if err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// refreshAndReplay handles the first 401 of a logical request: refresh the
// access token, then replay the original request once with the new token.
func (c *Client) refreshAndReplay(ctx context.Context, method, path string, payload []byte, out any, original *APIError) error {
	if _, err := c.refreshAccessToken(ctx); err != nil {
		if errors.Is(err, errNoRefreshToken) {
			// Nothing to refresh with: the original 401 is the failure.
			return &AuthExpiredError{Err: original}
		}
		// A cancelled or timed-out caller is a transport failure, not a dead
		// session: a shared in-flight refresh it was waiting on may still
		// succeed for everyone else.
		var netErr *NetworkError
		if errors.As(err, &netErr) && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return err
		}
		return &AuthExpiredError{Err: err}
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("replaying request with refreshed token")
	if err := c.do(ctx, method, path, payload, out, true); err != nil {
		return &RefreshedRetryError{Err: err}
	}
	return nil
}

type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// refreshAccessToken mints a new access token from the stored refresh token.
// Concurrent callers share a single in-flight refresh so two simultaneous
// 401s cannot race each other into invalidating the refresh token.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	c.refreshLock.Lock()
	if call := c.refreshing; call != nil {
		c.refreshLock.Unlock()
		select {
		case <-call.done:
			return call.token, call.err
		case <-ctx.Done():
			return "", &NetworkError{Err: ctx.Err()}
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	c.refreshing = call
	c.refreshLock.Unlock()

	call.token, call.err = c.doRefresh(ctx)

	c.refreshLock.Lock()
	c.refreshing = nil
	c.refreshLock.Unlock()
	close(call.done)

	return call.token, call.err
}

// doRefresh performs the actual refresh call. Any failure destroys the
// session: the stored credentials are cleared as a unit and the terminated
// callback fires.
func (c *Client) doRefresh(ctx context.Context) (string, error) {
	refreshToken, err := c.keys.Get(keystore.KeyRefreshToken)
	if err != nil || refreshToken == "" {
		c.destroySession()
		if err != nil && !errors.Is(err, keystore.ErrNotFound) {
			return "", errors.Wrap(err, "[Client.doRefresh] reading refresh token")
		}
		return "", errNoRefreshToken
	}

	payload, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", errors.Wrap(err, "[Client.doRefresh] marshalling refresh request")
	}

	// The refresh call bypasses the interceptor path: no bearer header
	// (a refresh token is never a bearer credential) and no retry.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "[Client.doRefresh] building refresh request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.destroySession()
		return "", &NetworkError{Err: err}
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		c.destroySession()
		return "", &NetworkError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.destroySession()
		return "", newAPIError(resp.StatusCode, body)
	}

	var tokens refreshResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		c.destroySession()
		return "", errors.Wrap(err, "[Client.doRefresh] decoding refresh response")
	}
	if tokens.AccessToken == "" {
		c.destroySession()
		return "", errors.New("[Client.doRefresh] refresh response missing access token")
	}

	if err := c.keys.Set(keystore.KeyAccessToken, tokens.AccessToken); err != nil {
		return "", errors.Wrap(err, "[Client.doRefresh] persisting access token")
	}
	// Some backends rotate the refresh token on use; keep the newest one.
	if tokens.RefreshToken != "" {
		if err := c.keys.Set(keystore.KeyRefreshToken, tokens.RefreshToken); err != nil {
			return "", errors.Wrap(err, "[Client.doRefresh] persisting rotated refresh token")
		}
	}

	c.log.Debug().Msg("access token refreshed")
	return tokens.AccessToken, nil
}

func (c *Client) destroySession() {
	if err := c.keys.ClearAuth(); err != nil {
		c.log.Error().Err(err).Msg("failed to clear stored credentials")
	}
	c.log.Info().Msg("session terminated")
	if c.terminated != nil {
		c.terminated()
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
