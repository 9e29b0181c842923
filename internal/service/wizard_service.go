package service

import (
	"context"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/checkout"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/composer"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/metrics"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/session"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/logger"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/telemetry"
)

// SubmitResult is either a login redirect or the started checkout
type SubmitResult struct {
	RequiresLogin bool               `json:"requiresLogin"`
	RedirectTo    string             `json:"redirectTo,omitempty"`
	Checkout      *checkout.Snapshot `json:"checkout,omitempty"`
}

// TravelerUpdate is a single traveler edit
type TravelerUpdate struct {
	Key   string
	Patch domain.TravelerPatch
}

// WizardOptions are the optional toggles on the information step
type WizardOptions struct {
	TermsAccepted    *bool
	IsDepositPayment *bool
}

// WizardService exposes the booking composer of each session
type WizardService interface {
	// Load fetches a tour and resets the session's wizard onto it
	Load(ctx context.Context, sessionID, tourIDOrSlug string) (*composer.PricingContext, composer.Snapshot, error)

	// SelectDate picks a departure
	SelectDate(ctx context.Context, sessionID, dateID string) (composer.Snapshot, error)

	// SetFlightOption switches land-only and flight-inclusive pricing
	SetFlightOption(ctx context.Context, sessionID string, opt domain.FlightOption) (composer.Snapshot, error)

	// SetHeadcount sets adults, children and infants
	SetHeadcount(ctx context.Context, sessionID string, adults, children, infants int) (composer.Snapshot, error)

	// ToggleAddOn selects or deselects an add-on
	ToggleAddOn(ctx context.Context, sessionID, addOnID string) (composer.Snapshot, error)

	// UpdateTravelers applies traveler edits in order
	UpdateTravelers(ctx context.Context, sessionID string, updates []TravelerUpdate) (composer.Snapshot, error)

	// SetOptions records the terms and deposit toggles
	SetOptions(ctx context.Context, sessionID string, opts WizardOptions) (composer.Snapshot, error)

	// Validate checks every traveler
	Validate(ctx context.Context, sessionID string) (composer.ValidationResult, error)

	// Advance moves to the next step
	Advance(ctx context.Context, sessionID string) (composer.Snapshot, error)

	// Back returns to the previous step
	Back(ctx context.Context, sessionID string) (composer.Snapshot, error)

	// Snapshot returns the wizard state
	Snapshot(ctx context.Context, sessionID string) (composer.Snapshot, error)

	// Submit assembles the draft and starts checkout, or parks it behind a login redirect
	Submit(ctx context.Context, sessionID string) (*SubmitResult, error)
}

// WizardServiceConfig contains configuration for wizard service
type WizardServiceConfig struct {
	LoginPath  string
	ResumePath string
}

type wizardService struct {
	sessions *SessionRegistry
	auth     *Authenticator
	pending  *session.PendingDraftStore
	checkout CheckoutService
	cfg      WizardServiceConfig
}

// NewWizardService creates a new wizard service
func NewWizardService(
	sessions *SessionRegistry,
	auth *Authenticator,
	pending *session.PendingDraftStore,
	checkoutService CheckoutService,
	cfg *WizardServiceConfig,
) WizardService {
	c := WizardServiceConfig{LoginPath: "/login", ResumePath: "/checkout"}
	if cfg != nil {
		if cfg.LoginPath != "" {
			c.LoginPath = cfg.LoginPath
		}
		if cfg.ResumePath != "" {
			c.ResumePath = cfg.ResumePath
		}
	}
	return &wizardService{
		sessions: sessions,
		auth:     auth,
		pending:  pending,
		checkout: checkoutService,
		cfg:      c,
	}
}

// Load fetches a tour and resets the wizard onto it
func (s *wizardService) Load(ctx context.Context, sessionID, tourIDOrSlug string) (*composer.PricingContext, composer.Snapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.wizard.load")
	defer span.End()

	span.SetAttributes(attribute.String("tour", tourIDOrSlug))

	sess := s.sessions.Get(ctx, sessionID)
	// refresh the user so the lead traveler is prefilled
	s.auth.Optional(ctx, sess)

	pc, err := sess.Composer.LoadPricingContext(ctx, tourIDOrSlug)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, composer.Snapshot{}, err
	}

	metrics.RecordPricingContextLoaded(ctx, pc.Tour.ID)
	return pc, sess.Composer.Snapshot(), nil
}

// SelectDate picks a departure
func (s *wizardService) SelectDate(ctx context.Context, sessionID, dateID string) (composer.Snapshot, error) {
	return s.mutate(ctx, sessionID, func(c *composer.Composer) error {
		return c.SelectDate(dateID)
	})
}

// SetFlightOption switches flight pricing
func (s *wizardService) SetFlightOption(ctx context.Context, sessionID string, opt domain.FlightOption) (composer.Snapshot, error) {
	return s.mutate(ctx, sessionID, func(c *composer.Composer) error {
		return c.SetFlightOption(opt)
	})
}

// SetHeadcount sets the traveler counts
func (s *wizardService) SetHeadcount(ctx context.Context, sessionID string, adults, children, infants int) (composer.Snapshot, error) {
	sess := s.sessions.Get(ctx, sessionID)
	s.auth.Optional(ctx, sess)
	return s.mutate(ctx, sessionID, func(c *composer.Composer) error {
		c.SetHeadcount(adults, children, infants)
		return nil
	})
}

// ToggleAddOn selects or deselects an add-on
func (s *wizardService) ToggleAddOn(ctx context.Context, sessionID, addOnID string) (composer.Snapshot, error) {
	return s.mutate(ctx, sessionID, func(c *composer.Composer) error {
		return c.ToggleAddOn(addOnID)
	})
}

// UpdateTravelers applies edits; the first unknown key stops the batch
func (s *wizardService) UpdateTravelers(ctx context.Context, sessionID string, updates []TravelerUpdate) (composer.Snapshot, error) {
	return s.mutate(ctx, sessionID, func(c *composer.Composer) error {
		for _, u := range updates {
			if err := c.UpdateTraveler(u.Key, u.Patch); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetOptions records the terms and deposit toggles
func (s *wizardService) SetOptions(ctx context.Context, sessionID string, opts WizardOptions) (composer.Snapshot, error) {
	return s.mutate(ctx, sessionID, func(c *composer.Composer) error {
		if opts.TermsAccepted != nil {
			c.SetTermsAccepted(*opts.TermsAccepted)
		}
		if opts.IsDepositPayment != nil {
			c.SetDepositPayment(*opts.IsDepositPayment)
		}
		return nil
	})
}

// Validate checks every traveler
func (s *wizardService) Validate(ctx context.Context, sessionID string) (composer.ValidationResult, error) {
	sess := s.sessions.Get(ctx, sessionID)
	return sess.Composer.ValidateTravelers(), nil
}

// Advance moves to the next step
func (s *wizardService) Advance(ctx context.Context, sessionID string) (composer.Snapshot, error) {
	return s.mutate(ctx, sessionID, func(c *composer.Composer) error {
		_, err := c.Advance()
		return err
	})
}

// Back returns to the previous step
func (s *wizardService) Back(ctx context.Context, sessionID string) (composer.Snapshot, error) {
	return s.mutate(ctx, sessionID, func(c *composer.Composer) error {
		c.Back()
		return nil
	})
}

// Snapshot returns the wizard state
func (s *wizardService) Snapshot(ctx context.Context, sessionID string) (composer.Snapshot, error) {
	return s.sessions.Get(ctx, sessionID).Composer.Snapshot(), nil
}

// Submit assembles the draft. An anonymous user's draft is parked in the
// pending-draft store and the caller is sent to login; it resumes after login.
func (s *wizardService) Submit(ctx context.Context, sessionID string) (*SubmitResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.wizard.submit")
	defer span.End()

	sess := s.sessions.Get(ctx, sessionID)

	if res := sess.Composer.ValidateTravelers(); !res.Valid {
		err := &domain.ValidationError{Errors: res.Errors}
		span.SetStatus(codes.Error, "invalid travelers")
		return nil, err
	}
	draft, err := sess.Composer.AssembleDraft()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("draft_id", draft.DraftID))

	auth := s.auth.Optional(ctx, sess)
	if auth == nil {
		tour := sess.Composer.Tour()
		pending := &domain.PendingDraft{TourID: tour.ID, TourSlug: tour.Slug, Draft: draft}
		if err := s.pending.Save(ctx, sessionID, pending); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		metrics.RecordDraftSubmitted(ctx, true)
		logger.Get().InfoContext(ctx, "draft parked for login",
			zap.String("session_id", sessionID),
			zap.String("draft_id", draft.DraftID),
		)
		return &SubmitResult{RequiresLogin: true, RedirectTo: s.loginRedirect()}, nil
	}

	snap, err := s.checkout.Begin(ctx, sess, draft, auth)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return &SubmitResult{Checkout: &snap}, err
}

func (s *wizardService) loginRedirect() string {
	return s.cfg.LoginPath + "?" + url.Values{"redirect": {s.cfg.ResumePath}}.Encode()
}

func (s *wizardService) mutate(ctx context.Context, sessionID string, fn func(c *composer.Composer) error) (composer.Snapshot, error) {
	sess := s.sessions.Get(ctx, sessionID)
	if err := fn(sess.Composer); err != nil {
		return sess.Composer.Snapshot(), err
	}
	return sess.Composer.Snapshot(), nil
}
