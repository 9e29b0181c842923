package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/checkout"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/gateway"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/metrics"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/logger"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/telemetry"
)

// CheckoutService drives the session's checkout
type CheckoutService interface {
	// Begin hands a draft to checkout. Submitting the same draft again joins the running checkout.
	Begin(ctx context.Context, sess *Session, draft *domain.BookingDraft, auth *domain.AuthSession) (checkout.Snapshot, error)

	// Start (re)enters the payment screen: ensures the booking and initializes the current method
	Start(ctx context.Context, sessionID string) (checkout.Snapshot, error)

	// RetryBooking retries a failed booking creation with the same idempotency key
	RetryBooking(ctx context.Context, sessionID string) (checkout.Snapshot, error)

	// SelectMethod switches between card and bank transfer
	SelectMethod(ctx context.Context, sessionID string, method domain.PaymentMethod) (checkout.Snapshot, error)

	// ConfirmCard reports the card provider's client-side confirmation
	ConfirmCard(ctx context.Context, sessionID, paymentIntentID string) (checkout.Snapshot, error)

	// SubmitReceipt uploads the bank-transfer receipt
	SubmitReceipt(ctx context.Context, sessionID string, receipt domain.Receipt) (checkout.Snapshot, error)

	// Snapshot returns the current checkout state
	Snapshot(ctx context.Context, sessionID string) (checkout.Snapshot, error)
}

// CheckoutServiceConfig contains configuration for checkout service
type CheckoutServiceConfig struct {
	SupportEmail string
}

type checkoutService struct {
	sessions *SessionRegistry
	auth     *Authenticator
	api      RemoteAPI
	cards    gateway.CardGateway
	events   EventPublisher
	cfg      CheckoutServiceConfig
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	sessions *SessionRegistry,
	auth *Authenticator,
	api RemoteAPI,
	cards gateway.CardGateway,
	events EventPublisher,
	cfg *CheckoutServiceConfig,
) CheckoutService {
	if events == nil {
		events = NewNoOpEventPublisher()
	}
	c := CheckoutServiceConfig{SupportEmail: "support@jsbworld-travel.com"}
	if cfg != nil && cfg.SupportEmail != "" {
		c.SupportEmail = cfg.SupportEmail
	}
	return &checkoutService{
		sessions: sessions,
		auth:     auth,
		api:      api,
		cards:    cards,
		events:   events,
		cfg:      c,
	}
}

// Begin hands a draft to checkout
func (s *checkoutService) Begin(ctx context.Context, sess *Session, draft *domain.BookingDraft, auth *domain.AuthSession) (checkout.Snapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.begin")
	defer span.End()

	span.SetAttributes(
		attribute.String("session_id", sess.ID),
		attribute.String("draft_id", draft.DraftID),
	)

	apiCtx := s.auth.APIContext(ctx, sess, auth)

	if o := sess.Orchestrator(); o != nil && o.Draft().DraftID == draft.DraftID {
		return s.start(apiCtx, o)
	}

	userID := ""
	if auth.User != nil {
		userID = auth.User.ID
	}

	o := checkout.New(draft, s.api, s.api, s.cards,
		checkout.Config{
			SessionID:    sess.ID,
			UserID:       userID,
			SupportEmail: s.cfg.SupportEmail,
		},
		checkout.WithEventSink(s.events),
		checkout.WithOnSettled(func(ctx context.Context, snap checkout.Snapshot) {
			s.onSettled(ctx, sess, snap)
		}),
	)
	sess.replaceOrchestrator(o, time.Now())
	metrics.RecordDraftSubmitted(ctx, false)

	snap, err := s.start(apiCtx, o)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return snap, err
}

func (s *checkoutService) start(ctx context.Context, o *checkout.Orchestrator) (checkout.Snapshot, error) {
	hadBooking := o.Snapshot().BookingID != ""
	snap, err := o.Start(ctx)
	if !hadBooking {
		if snap.BookingID != "" {
			metrics.RecordBookingCreated(ctx, true)
		} else if snap.Failure != nil && snap.Failure.Kind == checkout.FailureBookingCreation {
			metrics.RecordBookingCreated(ctx, false)
		}
	}
	return snap, err
}

// Start re-enters the payment screen
func (s *checkoutService) Start(ctx context.Context, sessionID string) (checkout.Snapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.start")
	defer span.End()

	apiCtx, o, err := s.active(ctx, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return checkout.Snapshot{}, err
	}
	return s.start(apiCtx, o)
}

// RetryBooking retries a failed booking creation
func (s *checkoutService) RetryBooking(ctx context.Context, sessionID string) (checkout.Snapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.retry_booking")
	defer span.End()

	apiCtx, o, err := s.active(ctx, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return checkout.Snapshot{}, err
	}

	_, err = o.RetryBookingCreation(apiCtx)
	metrics.RecordBookingCreated(ctx, err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return o.Snapshot(), err
	}
	return s.start(apiCtx, o)
}

// SelectMethod switches the payment method
func (s *checkoutService) SelectMethod(ctx context.Context, sessionID string, method domain.PaymentMethod) (checkout.Snapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.select_method")
	defer span.End()

	span.SetAttributes(attribute.String("method", string(method)))

	apiCtx, o, err := s.active(ctx, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return checkout.Snapshot{}, err
	}

	if err := o.SelectMethod(apiCtx, method); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return s.observeFailure(ctx, o), err
	}
	return o.Snapshot(), nil
}

// ConfirmCard reports the provider's confirmation of the card payment
func (s *checkoutService) ConfirmCard(ctx context.Context, sessionID, paymentIntentID string) (checkout.Snapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.confirm_card")
	defer span.End()

	span.SetAttributes(attribute.String("payment_intent_id", paymentIntentID))

	apiCtx, o, err := s.active(ctx, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return checkout.Snapshot{}, err
	}

	if err := o.ConfirmCardPayment(apiCtx, paymentIntentID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, domain.ErrCapturedNotConfirmed) {
			logger.Get().ErrorContext(ctx, "payment captured but booking not confirmed",
				zap.String("session_id", sessionID),
				zap.String("booking_id", o.Snapshot().BookingID),
				zap.String("payment_intent_id", paymentIntentID),
				zap.Error(err),
			)
		}
		return s.observeFailure(ctx, o), err
	}
	return o.Snapshot(), nil
}

// SubmitReceipt uploads the bank-transfer receipt
func (s *checkoutService) SubmitReceipt(ctx context.Context, sessionID string, receipt domain.Receipt) (checkout.Snapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.submit_receipt")
	defer span.End()

	span.SetAttributes(
		attribute.String("filename", receipt.Filename),
		attribute.Int("size", len(receipt.Data)),
	)

	apiCtx, o, err := s.active(ctx, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return checkout.Snapshot{}, err
	}

	if err := o.SubmitBankReceipt(apiCtx, receipt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if domain.IsReceiptError(err) {
			metrics.RecordReceiptRejected(ctx, err.Error())
			return o.Snapshot(), err
		}
		return s.observeFailure(ctx, o), err
	}
	return o.Snapshot(), nil
}

// Snapshot returns the current checkout state
func (s *checkoutService) Snapshot(ctx context.Context, sessionID string) (checkout.Snapshot, error) {
	_, o, err := s.active(ctx, sessionID)
	if err != nil {
		return checkout.Snapshot{}, err
	}
	return o.Snapshot(), nil
}

// active resolves the session's login and running checkout
func (s *checkoutService) active(ctx context.Context, sessionID string) (context.Context, *checkout.Orchestrator, error) {
	sess, ok := s.sessions.Lookup(sessionID)
	if !ok {
		return nil, nil, domain.ErrNoActiveCheckout
	}
	auth, err := s.auth.Resolve(ctx, sess)
	if err != nil {
		return nil, nil, err
	}
	o := sess.Orchestrator()
	if o == nil {
		return nil, nil, domain.ErrNoActiveCheckout
	}
	return s.auth.APIContext(ctx, sess, auth), o, nil
}

func (s *checkoutService) observeFailure(ctx context.Context, o *checkout.Orchestrator) checkout.Snapshot {
	snap := o.Snapshot()
	if snap.State == checkout.StateFailed && snap.Failure != nil {
		metrics.RecordPaymentFailed(ctx, string(snap.Method), string(snap.Failure.Kind))
	}
	return snap
}

func (s *checkoutService) onSettled(ctx context.Context, sess *Session, snap checkout.Snapshot) {
	sess.InvalidateBookings()
	// the settled draft is spent; the next submission starts a new booking
	sess.Composer.Discard()
	metrics.RecordPaymentSettled(ctx, string(snap.Method), string(snap.Outcome), sess.checkoutStartedAt())

	logger.Get().InfoContext(ctx, "checkout settled",
		zap.String("session_id", sess.ID),
		zap.String("booking_id", snap.BookingID),
		zap.String("method", string(snap.Method)),
		zap.String("outcome", string(snap.Outcome)),
	)
}
