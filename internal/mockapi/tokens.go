package mockapi

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const refreshTokenLength = 32 // bytes of entropy, hex encoded

// tokenIssuer mints and validates the mock backend's JWT access tokens.
type tokenIssuer struct {
	secret    []byte
	accessTTL time.Duration
	nowTime   func() time.Time
}

func (t *tokenIssuer) mintAccessToken(account *Account) (string, error) {
	now := t.nowTime()
	claims := jwtlib.MapClaims{
		"iss":   "autodocs-mock",
		"sub":   account.ID,
		"email": account.Email,
		"name":  account.Name,
		"role":  account.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(t.accessTTL).Unix(),
		"jti":   uuid.New().String(),
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "[tokenIssuer.mintAccessToken] signing token")
	}
	return signed, nil
}

// parseAccessToken validates a bearer token and returns the account id it
// was minted for. Expiry is checked against the server's injectable clock.
func (t *tokenIssuer) parseAccessToken(raw string) (int, error) {
	parsed, err := jwtlib.Parse(raw, func(token *jwtlib.Token) (any, error) {
		if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwtlib.WithTimeFunc(t.nowTime), jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return 0, errors.Wrap(err, "[tokenIssuer.parseAccessToken] parsing token")
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return 0, errors.New("[tokenIssuer.parseAccessToken] unexpected claims type")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, errors.New("[tokenIssuer.parseAccessToken] missing sub claim")
	}
	return int(sub), nil
}

// storedRefreshToken is the server-side record for an opaque refresh token.
type storedRefreshToken struct {
	Token     string
	AccountID int
	Iat       time.Time
}

// refreshManager stores one refresh token per account and rotates it on use,
// so a stolen older token stops working as soon as the real client refreshes.
type refreshManager struct {
	nowTime    func() time.Time
	refreshTTL time.Duration

	lock    sync.Mutex
	byToken map[string]*storedRefreshToken
	byUser  map[int]string
}

func newRefreshManager(nowTime func() time.Time, refreshTTL time.Duration) *refreshManager {
	return &refreshManager{
		nowTime:    nowTime,
		refreshTTL: refreshTTL,
		byToken:    make(map[string]*storedRefreshToken),
		byUser:     make(map[int]string),
	}
}

// Create generates a new refresh token for the account, replacing any
// existing one.
func (m *refreshManager) Create(accountID int) (string, error) {
	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "[refreshManager.Create] rand.Read")
	}
	tokenStr := hex.EncodeToString(tokenBytes)

	m.lock.Lock()
	defer m.lock.Unlock()
	if old, ok := m.byUser[accountID]; ok {
		delete(m.byToken, old)
	}
	m.byToken[tokenStr] = &storedRefreshToken{
		Token:     tokenStr,
		AccountID: accountID,
		Iat:       m.nowTime(),
	}
	m.byUser[accountID] = tokenStr
	return tokenStr, nil
}

// Redeem validates a refresh token and consumes it. The caller mints a new
// pair for the returned account.
func (m *refreshManager) Redeem(token string) (int, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	stored, ok := m.byToken[token]
	if !ok {
		return 0, errors.New("[refreshManager.Redeem] unknown refresh token")
	}
	delete(m.byToken, token)
	delete(m.byUser, stored.AccountID)

	if m.nowTime().Sub(stored.Iat) > m.refreshTTL {
		return 0, errors.New("[refreshManager.Redeem] refresh token expired")
	}
	return stored.AccountID, nil
}

// Revoke drops the account's refresh token if one exists.
func (m *refreshManager) Revoke(accountID int) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if token, ok := m.byUser[accountID]; ok {
		delete(m.byToken, token)
		delete(m.byUser, accountID)
	}
}
