package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/gateway"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/pricing"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/logger"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/telemetry"
)

// BookingAPI creates the server-side booking
type BookingAPI interface {
	CreateBooking(ctx context.Context, req *domain.BookingRequest, idempotencyKey string) (*domain.Booking, error)
}

// PaymentAPI is the remote payment surface
type PaymentAPI interface {
	CreatePaymentIntent(ctx context.Context, bookingID string, method domain.PaymentMethod) (*domain.PaymentIntent, error)
	ConfirmPayment(ctx context.Context, paymentIntentID, bookingID string) error
	SubmitBankTransfer(ctx context.Context, bookingID string, receipt domain.Receipt) error
}

// EventSink receives checkout milestones
type EventSink interface {
	PublishCheckoutEvent(ctx context.Context, event *domain.CheckoutEvent) error
}

// Config holds per-checkout identity and wording
type Config struct {
	SessionID    string
	UserID       string
	SupportEmail string
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithEventSink publishes checkout events
func WithEventSink(sink EventSink) Option {
	return func(o *Orchestrator) { o.sink = sink }
}

// WithOnSettled registers a listener run once the checkout succeeds
func WithOnSettled(fn func(ctx context.Context, snap Snapshot)) Option {
	return func(o *Orchestrator) { o.onSettled = fn }
}

// WithClock overrides time.Now for event timestamps
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

const createBookingKey = "create-booking"

// Orchestrator drives one draft through booking creation and exactly one settlement path.
// All transitions happen under mu; network calls run with mu released.
type Orchestrator struct {
	bookings BookingAPI
	payments PaymentAPI
	cards    gateway.CardGateway
	draft    *domain.BookingDraft
	cfg      Config

	sink      EventSink
	onSettled func(ctx context.Context, snap Snapshot)
	now       func() time.Time
	log       *logger.Logger

	sfGroup singleflight.Group

	mu              sync.Mutex
	state           State
	outcome         Outcome
	booking         *domain.Booking
	method          domain.PaymentMethod
	fees            domain.FeeBreakdown
	clientSecret    string
	paymentIntentID string
	failure         *Failure
	// generation increments on every method change or card init; late responses
	// from an older generation are discarded
	generation uint64
	cancelInit context.CancelFunc
}

// New creates an orchestrator for a submitted draft
func New(draft *domain.BookingDraft, bookings BookingAPI, payments PaymentAPI, cards gateway.CardGateway, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		bookings: bookings,
		payments: payments,
		cards:    cards,
		draft:    draft,
		cfg:      cfg,
		now:      time.Now,
		log:      logger.Get().With(zap.String("session_id", cfg.SessionID), zap.String("draft_id", draft.DraftID)),
		state:    StateUninitialized,
		method:   domain.PaymentCard,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.fees = pricing.ProvisionalFees(pricing.AmountDue(draft.Quote), o.method)
	return o
}

// Draft returns the draft this checkout settles
func (o *Orchestrator) Draft() *domain.BookingDraft {
	return o.draft
}

// Start creates the booking if needed, then opens the default card path
func (o *Orchestrator) Start(ctx context.Context) (Snapshot, error) {
	if _, err := o.EnsureBooking(ctx); err != nil {
		return o.Snapshot(), err
	}

	o.mu.Lock()
	ready := o.state == StateBookingReady
	method := o.method
	o.mu.Unlock()

	if ready {
		if err := o.SelectMethod(ctx, method); err != nil {
			return o.Snapshot(), err
		}
	}
	return o.Snapshot(), nil
}

// EnsureBooking creates the booking exactly once. Concurrent callers share one
// in-flight request; once a booking id is held the call returns immediately.
func (o *Orchestrator) EnsureBooking(ctx context.Context) (*domain.Booking, error) {
	o.mu.Lock()
	if o.booking != nil {
		b := o.booking
		o.mu.Unlock()
		return b, nil
	}
	switch o.state {
	case StateUninitialized:
		o.state = StateCreatingBooking
	case StateCreatingBooking:
	default:
		o.mu.Unlock()
		return nil, domain.ErrInvalidTransition
	}
	o.mu.Unlock()

	v, err, _ := o.sfGroup.Do(createBookingKey, func() (interface{}, error) {
		return o.createBooking(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Booking), nil
}

func (o *Orchestrator) createBooking(ctx context.Context) (*domain.Booking, error) {
	o.mu.Lock()
	if o.booking != nil {
		// a caller that raced past the state check after the flight landed
		b := o.booking
		o.mu.Unlock()
		return b, nil
	}
	if o.state != StateCreatingBooking {
		o.mu.Unlock()
		return nil, domain.ErrInvalidTransition
	}
	o.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "checkout.create_booking")
	defer span.End()
	span.SetAttributes(attribute.String("draft_id", o.draft.DraftID))

	req := domain.NewBookingRequest(o.draft, o.cfg.UserID)
	booking, err := o.bookings.CreateBooking(ctx, req, o.draft.DraftID)

	o.mu.Lock()
	if err != nil {
		o.state = StateFailed
		o.failure = &Failure{
			Kind:      FailureBookingCreation,
			Message:   "We could not create your booking. Please try again.",
			Retryable: true,
		}
		o.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.log.ErrorContext(ctx, "booking creation failed", zap.Error(err))
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	if booking.ID == "" {
		o.state = StateFailed
		o.failure = &Failure{Kind: FailureBookingCreation, Message: "The booking service returned no booking id.", Retryable: true}
		o.mu.Unlock()
		return nil, errors.New("booking response missing id")
	}
	o.booking = booking
	o.state = StateBookingReady
	o.failure = nil
	o.mu.Unlock()

	span.SetAttributes(attribute.String("booking_id", booking.ID))
	o.publish(ctx, domain.EventBookingCreated, func(e *domain.CheckoutEvent) {
		e.Amount = o.draft.Quote.Total
	})
	return booking, nil
}

// RetryBookingCreation re-enters CreatingBooking after a BOOKING_CREATION failure.
// The draft id is resent as the idempotency key so a booking the server already
// made for a lost response is returned rather than duplicated.
func (o *Orchestrator) RetryBookingCreation(ctx context.Context) (*domain.Booking, error) {
	o.mu.Lock()
	if o.state != StateFailed || o.failure == nil || o.failure.Kind != FailureBookingCreation {
		o.mu.Unlock()
		return nil, domain.ErrInvalidTransition
	}
	o.state = StateUninitialized
	o.failure = nil
	o.mu.Unlock()

	return o.EnsureBooking(ctx)
}

// SelectMethod switches settlement path on the existing booking. Any in-flight card
// initialization is cancelled and its client secret dropped.
func (o *Orchestrator) SelectMethod(ctx context.Context, method domain.PaymentMethod) error {
	if !method.Valid() {
		return domain.ErrInvalidPaymentMethod
	}

	o.mu.Lock()
	if o.booking == nil || !o.state.canSelectMethod(o.failure) {
		o.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	o.abandonCardSessionLocked()
	o.method = method
	o.failure = nil
	o.fees = pricing.ProvisionalFees(pricing.AmountDue(o.draft.Quote), method)

	if method == domain.PaymentBankTransfer {
		o.state = StateAwaitingBankReceipt
		o.mu.Unlock()
		return nil
	}

	gen, initCtx, bookingID := o.beginCardInitLocked(ctx)
	o.mu.Unlock()

	return o.runCardInit(initCtx, gen, bookingID)
}

// InitializeCard requests a client secret for the booking. Allowed from
// BookingReady or after a failed or declined card attempt.
func (o *Orchestrator) InitializeCard(ctx context.Context) error {
	o.mu.Lock()
	if o.booking == nil || o.method != domain.PaymentCard {
		o.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	switch {
	case o.state == StateBookingReady:
	case o.state == StateFailed && o.failure != nil &&
		(o.failure.Kind == FailurePaymentInit || o.failure.Kind == FailurePaymentDeclined):
	default:
		o.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	o.abandonCardSessionLocked()
	o.failure = nil
	gen, initCtx, bookingID := o.beginCardInitLocked(ctx)
	o.mu.Unlock()

	return o.runCardInit(initCtx, gen, bookingID)
}

func (o *Orchestrator) abandonCardSessionLocked() {
	o.generation++
	if o.cancelInit != nil {
		o.cancelInit()
		o.cancelInit = nil
	}
	o.clientSecret = ""
	o.paymentIntentID = ""
}

func (o *Orchestrator) beginCardInitLocked(ctx context.Context) (uint64, context.Context, string) {
	o.generation++
	initCtx, cancel := context.WithCancel(ctx)
	o.cancelInit = cancel
	o.state = StateInitializingCard
	return o.generation, initCtx, o.booking.ID
}

func (o *Orchestrator) runCardInit(ctx context.Context, gen uint64, bookingID string) error {
	ctx, span := telemetry.StartSpan(ctx, "checkout.initialize_card")
	defer span.End()
	span.SetAttributes(attribute.String("booking_id", bookingID))

	intent, err := o.payments.CreatePaymentIntent(ctx, bookingID, domain.PaymentCard)

	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.generation {
		// the user moved on; this response belongs to an abandoned attempt
		span.AddEvent("stale card init discarded")
		return domain.ErrStaleResponse
	}
	if o.cancelInit != nil {
		o.cancelInit()
		o.cancelInit = nil
	}

	if err != nil {
		o.state = StateFailed
		o.failure = &Failure{
			Kind:      FailurePaymentInit,
			Message:   "We could not start the card payment. Please try again.",
			Retryable: true,
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to initialize card payment: %w", err)
	}

	o.clientSecret = intent.ClientSecret
	o.paymentIntentID = intent.PaymentIntentID
	fees := intent.Fees
	fees.Provisional = false
	o.fees = fees
	o.state = StateAwaitingCardPayment
	return nil
}

// ConfirmCardPayment runs after the hosted card element reports completion.
// Provider success followed by a failed reconciliation is reported as
// CAPTURED_NOT_CONFIRMED and is never retried.
func (o *Orchestrator) ConfirmCardPayment(ctx context.Context, paymentIntentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "checkout.confirm_card")
	defer span.End()

	o.mu.Lock()
	if o.state != StateAwaitingCardPayment || o.method != domain.PaymentCard {
		o.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	if paymentIntentID != "" && paymentIntentID != o.paymentIntentID {
		o.mu.Unlock()
		return domain.ErrPaymentIntentMismatch
	}
	intentID := o.paymentIntentID
	secret := o.clientSecret
	bookingID := o.booking.ID
	o.state = StateCardProcessing
	o.mu.Unlock()

	span.SetAttributes(attribute.String("booking_id", bookingID), attribute.String("payment_intent_id", intentID))

	status, err := o.cards.VerifyPayment(ctx, intentID, secret)
	if err != nil {
		// verification is a read; the user may confirm again
		o.mu.Lock()
		o.state = StateAwaitingCardPayment
		o.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to verify card payment: %w", err)
	}

	if !status.Captured() {
		o.fail(&Failure{
			Kind:      FailurePaymentDeclined,
			Message:   fmt.Sprintf("Your payment was not completed (%s). Please try again or choose another method.", status),
			Retryable: true,
		})
		o.publish(ctx, domain.EventPaymentFailed, func(e *domain.CheckoutEvent) {
			e.PaymentIntentID = intentID
			e.Message = string(status)
		})
		span.SetStatus(codes.Error, "payment declined")
		return domain.ErrPaymentDeclined
	}

	// reconciliation must run to completion once the provider has captured
	if err := o.payments.ConfirmPayment(context.WithoutCancel(ctx), intentID, bookingID); err != nil {
		o.fail(&Failure{
			Kind:      FailureCapturedNotConfirmed,
			Message:   o.capturedNotConfirmedMessage(),
			Retryable: false,
		})
		o.publish(ctx, domain.EventCapturedNotConfirmed, func(e *domain.CheckoutEvent) {
			e.PaymentIntentID = intentID
			e.Message = err.Error()
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.log.ErrorContext(ctx, "payment captured but booking not confirmed",
			zap.String("booking_id", bookingID),
			zap.String("payment_intent_id", intentID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", domain.ErrCapturedNotConfirmed, err)
	}

	o.settle(ctx, OutcomePaid, domain.EventPaymentSucceeded, intentID)
	return nil
}

func (o *Orchestrator) capturedNotConfirmedMessage() string {
	msg := "Your payment was received but we could not update your booking. Please do not pay again; contact support"
	if o.cfg.SupportEmail != "" {
		msg += " at " + o.cfg.SupportEmail
	}
	if o.booking != nil && o.booking.BookingNumber != "" {
		msg += " quoting booking " + o.booking.BookingNumber
	}
	return msg + "."
}

// SubmitBankReceipt validates the receipt locally, then uploads it exactly once.
// A rejected receipt leaves the state unchanged and issues no request.
func (o *Orchestrator) SubmitBankReceipt(ctx context.Context, receipt domain.Receipt) error {
	ctx, span := telemetry.StartSpan(ctx, "checkout.submit_bank_receipt")
	defer span.End()

	o.mu.Lock()
	allowed := o.state == StateAwaitingBankReceipt ||
		(o.state == StateFailed && o.failure != nil && o.failure.Kind == FailureBankSubmission)
	if !allowed || o.method != domain.PaymentBankTransfer {
		o.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	if err := ValidateReceipt(&receipt); err != nil {
		o.mu.Unlock()
		return err
	}
	bookingID := o.booking.ID
	o.state = StateBankSubmitting
	o.failure = nil
	o.mu.Unlock()

	span.SetAttributes(attribute.String("booking_id", bookingID), attribute.Int("receipt_bytes", len(receipt.Data)))

	if err := o.payments.SubmitBankTransfer(ctx, bookingID, receipt); err != nil {
		o.fail(&Failure{
			Kind:      FailureBankSubmission,
			Message:   "We could not upload your receipt. Please try again.",
			Retryable: true,
		})
		o.publish(ctx, domain.EventPaymentFailed, func(e *domain.CheckoutEvent) {
			e.Message = err.Error()
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to submit bank transfer: %w", err)
	}

	o.settle(ctx, OutcomeAwaitingApproval, domain.EventBankReceiptSubmitted, "")
	return nil
}

func (o *Orchestrator) fail(f *Failure) {
	o.mu.Lock()
	o.state = StateFailed
	o.failure = f
	o.mu.Unlock()
}

func (o *Orchestrator) settle(ctx context.Context, outcome Outcome, event domain.CheckoutEventType, intentID string) {
	o.mu.Lock()
	o.state = StateSucceeded
	o.outcome = outcome
	o.failure = nil
	o.mu.Unlock()

	o.publish(ctx, event, func(e *domain.CheckoutEvent) {
		e.PaymentIntentID = intentID
	})
	if o.onSettled != nil {
		o.onSettled(ctx, o.Snapshot())
	}
}

func (o *Orchestrator) publish(ctx context.Context, typ domain.CheckoutEventType, fill func(*domain.CheckoutEvent)) {
	if o.sink == nil {
		return
	}

	o.mu.Lock()
	event := &domain.CheckoutEvent{
		EventID:    uuid.New().String(),
		Type:       typ,
		SessionID:  o.cfg.SessionID,
		UserID:     o.cfg.UserID,
		Method:     o.method,
		Amount:     o.fees.TotalAmount,
		OccurredAt: o.now().UTC(),
	}
	if o.booking != nil {
		event.BookingID = o.booking.ID
		event.BookingNumber = o.booking.BookingNumber
	}
	o.mu.Unlock()

	if fill != nil {
		fill(event)
	}
	if err := o.sink.PublishCheckoutEvent(context.WithoutCancel(ctx), event); err != nil {
		o.log.WarnContext(ctx, "failed to publish checkout event",
			zap.String("event_type", string(typ)),
			zap.Error(err),
		)
	}
}

// Snapshot returns a copy of the current state
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		State:           o.state,
		Outcome:         o.outcome,
		DraftID:         o.draft.DraftID,
		TourID:          o.draft.TourID,
		Method:          o.method,
		Fees:            o.fees,
		ClientSecret:    o.clientSecret,
		PaymentIntentID: o.paymentIntentID,
	}
	if o.booking != nil {
		snap.BookingID = o.booking.ID
		snap.BookingNumber = o.booking.BookingNumber
	}
	if o.failure != nil {
		f := *o.failure
		snap.Failure = &f
	}
	return snap
}

// Settled reports whether the checkout reached Succeeded
func (o *Orchestrator) Settled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.settled()
}

// Close cancels any in-flight card initialization
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelInit != nil {
		o.cancelInit()
		o.cancelInit = nil
	}
}
