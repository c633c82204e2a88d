package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ragchat-client/internal/constant"
	"ragchat-client/internal/entity"
	"ragchat-client/internal/pkg/logger"
	"ragchat-client/internal/repository/contract"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// AuthSessionManager owns the persisted credential pair and the identity
// decoded from it. It is the only component that touches credential storage.
//
// Tokens are decoded without signature verification: the identity is display
// metadata, and the backend stays the sole authority on every request.
type AuthSessionManager struct {
	repo   contract.ICredentialRepository
	logger logger.ILogger
	parser *jwt.Parser

	mu       sync.RWMutex
	identity *entity.Identity
}

func NewAuthSessionManager(repo contract.ICredentialRepository, log logger.ILogger) *AuthSessionManager {
	return &AuthSessionManager{
		repo:   repo,
		logger: log,
		parser: jwt.NewParser(),
	}
}

// Restore reads the persisted access token and derives the identity from it.
// Any failure, including a malformed token, ends in the unauthenticated state.
func (m *AuthSessionManager) Restore(ctx context.Context) *entity.Identity {
	token, found, err := m.repo.Get(ctx, constant.AccessTokenKey)
	if err != nil {
		m.logger.Warn("AuthSession", "Failed to read stored credential", map[string]interface{}{"error": err.Error()})
		m.setIdentity(nil)
		return nil
	}
	if !found || token == "" {
		m.setIdentity(nil)
		return nil
	}

	identity, err := m.decode(token)
	if err != nil {
		m.logger.Warn("AuthSession", "Stored credential is not a readable token", map[string]interface{}{"error": err.Error()})
		m.setIdentity(nil)
		return nil
	}

	m.setIdentity(identity)
	m.logger.Info("AuthSession", "Session restored", map[string]interface{}{"username": identity.Username})
	return cloneIdentity(identity)
}

// Login persists a credential pair issued by the external login flow. A token
// that cannot be decoded is rejected before anything is written.
func (m *AuthSessionManager) Login(ctx context.Context, tok *oauth2.Token) (*entity.Identity, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, &DecodeError{Err: errors.New("access token is empty")}
	}

	identity, err := m.decode(tok.AccessToken)
	if err != nil {
		return nil, err
	}

	if err := m.repo.Set(ctx, constant.AccessTokenKey, tok.AccessToken); err != nil {
		return nil, fmt.Errorf("store access token: %w", err)
	}
	if tok.RefreshToken != "" {
		err = m.repo.Set(ctx, constant.RefreshTokenKey, tok.RefreshToken)
	} else {
		// a refresh token from an earlier session must not pair with this one
		err = m.repo.Delete(ctx, constant.RefreshTokenKey)
	}
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	m.setIdentity(identity)
	m.logger.Info("AuthSession", "Logged in", map[string]interface{}{"username": identity.Username})
	return cloneIdentity(identity), nil
}

// AuthHeaders returns the headers for one outbound request: empty without a
// credential, otherwise a single bearer Authorization entry.
func (m *AuthSessionManager) AuthHeaders(ctx context.Context) map[string]string {
	token, found, err := m.repo.Get(ctx, constant.AccessTokenKey)
	if err != nil {
		m.logger.Warn("AuthSession", "Failed to read stored credential", map[string]interface{}{"error": err.Error()})
		return map[string]string{}
	}
	if !found || token == "" {
		return map[string]string{}
	}

	bearer := &oauth2.Token{AccessToken: token, TokenType: constant.BearerTokenType}
	return map[string]string{
		constant.AuthHeaderName: bearer.Type() + " " + bearer.AccessToken,
	}
}

// Logout removes both credentials in one repository call and forgets the
// identity. The identity is cleared even if storage fails.
func (m *AuthSessionManager) Logout(ctx context.Context) error {
	m.setIdentity(nil)
	if err := m.repo.Delete(ctx, constant.AccessTokenKey, constant.RefreshTokenKey); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	m.logger.Info("AuthSession", "Logged out", nil)
	return nil
}

// Forget drops the in-memory identity without touching storage. Used when
// another process has already cleared the shared credentials.
func (m *AuthSessionManager) Forget() {
	m.setIdentity(nil)
}

func (m *AuthSessionManager) State() entity.AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.identity == nil {
		return entity.AuthStateUnauthenticated
	}
	return entity.AuthStateAuthenticated
}

func (m *AuthSessionManager) Identity() *entity.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneIdentity(m.identity)
}

// decode reads only the payload segment. The header is never inspected, so a
// token with a missing or unknown alg still yields its identity.
func (m *AuthSessionManager) decode(token string) (*entity.Identity, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil, &DecodeError{Err: errors.New("token has no payload segment")}
	}
	payload, err := m.parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("decode payload: %w", err)}
	}

	claims := jwt.MapClaims{}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&claims); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("parse claims: %w", err)}
	}
	return &entity.Identity{Username: identityLabel(claims)}, nil
}

// identityLabel takes the first claim holding a usable value: a non-empty
// string, a non-zero number or true. Objects, arrays, null, zero and false are
// skipped.
func identityLabel(claims jwt.MapClaims) string {
	for _, key := range constant.IdentityClaimKeys {
		if label, ok := claimLabel(claims[key]); ok {
			return label
		}
	}
	return constant.FallbackUsername
}

func claimLabel(v interface{}) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, v != ""
	case json.Number:
		if f, err := v.Float64(); err != nil || f == 0 {
			return "", false
		}
		return v.String(), true
	case bool:
		return "true", v
	}
	return "", false
}

func (m *AuthSessionManager) setIdentity(identity *entity.Identity) {
	m.mu.Lock()
	m.identity = identity
	m.mu.Unlock()
}

func cloneIdentity(identity *entity.Identity) *entity.Identity {
	if identity == nil {
		return nil
	}
	out := *identity
	return &out
}
