package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

const tokenKeyPrefix = "session:auth:"

// TokenStore holds the bearer token and cached user per session
type TokenStore struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

// NewTokenStore creates a token store; ttl bounds tokens without an exp claim
func NewTokenStore(backend Backend, ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenStore{backend: backend, ttl: ttl, now: time.Now}
}

// Save stores the auth session. The entry never outlives the token's exp claim.
func (s *TokenStore) Save(ctx context.Context, sessionID string, auth *domain.AuthSession) error {
	if auth == nil || auth.Token == "" {
		return errors.New("auth session has no token")
	}

	ttl := s.ttl
	if exp, ok := TokenExpiry(auth.Token); ok {
		remaining := exp.Sub(s.now())
		if remaining <= 0 {
			return domain.ErrUnauthorized
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	data, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("failed to marshal auth session: %w", err)
	}
	return s.backend.Set(ctx, tokenKeyPrefix+sessionID, data, ttl)
}

// Load returns the stored auth session or ErrUnauthorized when absent or expired
func (s *TokenStore) Load(ctx context.Context, sessionID string) (*domain.AuthSession, error) {
	data, err := s.backend.Get(ctx, tokenKeyPrefix+sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	var auth domain.AuthSession
	if err := json.Unmarshal(data, &auth); err != nil {
		_ = s.backend.Delete(ctx, tokenKeyPrefix+sessionID)
		return nil, domain.ErrUnauthorized
	}

	if exp, ok := TokenExpiry(auth.Token); ok && !s.now().Before(exp) {
		_ = s.backend.Delete(ctx, tokenKeyPrefix+sessionID)
		return nil, domain.ErrUnauthorized
	}
	return &auth, nil
}

// Clear drops token and cached user together
func (s *TokenStore) Clear(ctx context.Context, sessionID string) error {
	return s.backend.Delete(ctx, tokenKeyPrefix+sessionID)
}

// TokenExpiry reads the exp claim without verifying the signature.
// The remote API verifies; this only avoids sending a token known to be dead.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
