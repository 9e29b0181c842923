package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/checkout"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/metrics"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/session"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/logger"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/telemetry"
)

// AuthResult is the outcome of a login, plus the resumed checkout if a draft was parked
type AuthResult struct {
	User        *domain.User       `json:"user"`
	Resumed     bool               `json:"resumed"`
	Checkout    *checkout.Snapshot `json:"checkout,omitempty"`
	ResumeError string             `json:"resumeError,omitempty"`
}

// AuthService handles login state of a session
type AuthService interface {
	// Login authenticates and resumes any parked draft
	Login(ctx context.Context, sessionID string, creds domain.Credentials) (*AuthResult, error)

	// Signup registers, logs in and resumes any parked draft
	Signup(ctx context.Context, sessionID string, signup domain.Signup) (*AuthResult, error)

	// Resume picks up a parked draft for an already logged-in session
	Resume(ctx context.Context, sessionID string) (*AuthResult, error)

	// Logout drops the token and any running checkout
	Logout(ctx context.Context, sessionID string) error

	// Me returns the logged-in user
	Me(ctx context.Context, sessionID string) (*domain.User, error)
}

type authService struct {
	sessions *SessionRegistry
	auth     *Authenticator
	pending  *session.PendingDraftStore
	api      RemoteAPI
	checkout CheckoutService
}

// NewAuthService creates a new auth service
func NewAuthService(
	sessions *SessionRegistry,
	auth *Authenticator,
	pending *session.PendingDraftStore,
	api RemoteAPI,
	checkoutService CheckoutService,
) AuthService {
	return &authService{
		sessions: sessions,
		auth:     auth,
		pending:  pending,
		api:      api,
		checkout: checkoutService,
	}
}

// Login authenticates and resumes any parked draft
func (s *authService) Login(ctx context.Context, sessionID string, creds domain.Credentials) (*AuthResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.login")
	defer span.End()

	authSession, err := s.api.Login(ctx, creds)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return s.establish(ctx, sessionID, authSession)
}

// Signup registers, logs in and resumes any parked draft
func (s *authService) Signup(ctx context.Context, sessionID string, signup domain.Signup) (*AuthResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.signup")
	defer span.End()

	authSession, err := s.api.Register(ctx, signup)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return s.establish(ctx, sessionID, authSession)
}

func (s *authService) establish(ctx context.Context, sessionID string, authSession *domain.AuthSession) (*AuthResult, error) {
	if authSession == nil || authSession.Token == "" {
		return nil, domain.ErrUnauthorized
	}

	sess := s.sessions.Get(ctx, sessionID)
	if err := s.auth.Store(ctx, sess, authSession); err != nil {
		return nil, fmt.Errorf("failed to store session token: %w", err)
	}

	res := s.resume(ctx, sess, authSession)
	res.User = sess.CurrentUser()
	return res, nil
}

// Resume picks up a parked draft for an already logged-in session
func (s *authService) Resume(ctx context.Context, sessionID string) (*AuthResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.resume")
	defer span.End()

	sess := s.sessions.Get(ctx, sessionID)
	authSession, err := s.auth.Resolve(ctx, sess)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res := s.resume(ctx, sess, authSession)
	res.User = sess.CurrentUser()
	return res, nil
}

// resume restores a parked draft into the wizard and starts its checkout.
// The login itself has succeeded, so resume problems are reported, not returned.
func (s *authService) resume(ctx context.Context, sess *Session, authSession *domain.AuthSession) *AuthResult {
	log := logger.Get().With(zap.String("session_id", sess.ID))

	pending, err := s.pending.Take(ctx, sess.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrPendingDraftNotFound) {
			log.WarnContext(ctx, "failed to load pending draft", zap.Error(err))
		}
		return &AuthResult{}
	}

	ctx, span := telemetry.StartSpan(ctx, "service.auth.resume_draft")
	defer span.End()
	span.SetAttributes(
		attribute.String("tour_id", pending.TourID),
		attribute.String("draft_id", pending.Draft.DraftID),
	)

	tourRef := pending.TourID
	if tourRef == "" {
		tourRef = pending.TourSlug
	}
	tour, err := s.api.GetTour(ctx, tourRef)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WarnContext(ctx, "failed to reload tour for pending draft", zap.String("tour", tourRef), zap.Error(err))
		return &AuthResult{ResumeError: err.Error()}
	}

	if err := sess.Composer.Restore(tour, pending.Draft); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WarnContext(ctx, "failed to restore pending draft", zap.Error(err))
		return &AuthResult{ResumeError: err.Error()}
	}
	metrics.RecordDraftResumed(ctx)

	snap, err := s.checkout.Begin(ctx, sess, pending.Draft, authSession)
	res := &AuthResult{Resumed: true, Checkout: &snap}
	if err != nil {
		log.WarnContext(ctx, "resumed checkout did not start cleanly", zap.Error(err))
		res.ResumeError = err.Error()
	}
	return res
}

// Logout drops the token and any running checkout
func (s *authService) Logout(ctx context.Context, sessionID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.logout")
	defer span.End()

	sess, ok := s.sessions.Lookup(sessionID)
	if !ok {
		return nil
	}

	if authSession := s.auth.Optional(ctx, sess); authSession != nil {
		if err := s.api.Logout(s.auth.APIContext(ctx, sess, authSession)); err != nil {
			logger.Get().WarnContext(ctx, "remote logout failed", zap.Error(err))
		}
	}

	sess.close()
	if err := s.pending.Clear(ctx, sessionID); err != nil {
		logger.Get().WarnContext(ctx, "failed to clear pending draft", zap.Error(err))
	}
	if err := s.auth.Forget(ctx, sess); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Me returns the logged-in user, refreshed from the API
func (s *authService) Me(ctx context.Context, sessionID string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.me")
	defer span.End()

	sess, ok := s.sessions.Lookup(sessionID)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	authSession, err := s.auth.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}

	user, err := s.api.Me(s.auth.APIContext(ctx, sess, authSession))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	sess.SetUser(user)
	return sess.CurrentUser(), nil
}
