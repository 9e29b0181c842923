package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/client"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/session"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/logger"
)

// Authenticator binds a session to its stored bearer token
type Authenticator struct {
	tokens *session.TokenStore
}

// NewAuthenticator creates an Authenticator over the token store
func NewAuthenticator(tokens *session.TokenStore) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Resolve loads the session's token and refreshes the session user.
// It returns domain.ErrUnauthorized when there is no usable token.
func (a *Authenticator) Resolve(ctx context.Context, sess *Session) (*domain.AuthSession, error) {
	auth, err := a.tokens.Load(ctx, sess.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			sess.SetUser(nil)
		}
		return nil, err
	}
	if auth.User != nil {
		sess.SetUser(auth.User)
	}
	return auth, nil
}

// Optional is Resolve for anonymous-friendly paths: a missing token is not an error
func (a *Authenticator) Optional(ctx context.Context, sess *Session) *domain.AuthSession {
	auth, err := a.Resolve(ctx, sess)
	if err != nil {
		if !errors.Is(err, domain.ErrUnauthorized) {
			logger.Get().WarnContext(ctx, "failed to load session token",
				zap.String("session_id", sess.ID),
				zap.Error(err),
			)
		}
		return nil
	}
	return auth
}

// Store saves a fresh login for the session
func (a *Authenticator) Store(ctx context.Context, sess *Session, auth *domain.AuthSession) error {
	if err := a.tokens.Save(ctx, sess.ID, auth); err != nil {
		return err
	}
	sess.SetUser(auth.User)
	return nil
}

// Forget drops the session's token and user
func (a *Authenticator) Forget(ctx context.Context, sess *Session) error {
	sess.SetUser(nil)
	return a.tokens.Clear(ctx, sess.ID)
}

// APIContext attaches the bearer token to ctx. Any 401 from the API
// clears the stored token so the next request starts anonymous.
func (a *Authenticator) APIContext(ctx context.Context, sess *Session, auth *domain.AuthSession) context.Context {
	ctx = client.ContextWithToken(ctx, auth.Token)
	return client.ContextWithUnauthorizedHook(ctx, func() {
		sess.SetUser(nil)
		if err := a.tokens.Clear(context.WithoutCancel(ctx), sess.ID); err != nil {
			logger.Get().WarnContext(ctx, "failed to clear rejected token",
				zap.String("session_id", sess.ID),
				zap.Error(err),
			)
		}
	})
}
