package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/telemetry"
)

var (
	// Wizard counters
	PricingContextsLoaded *telemetry.Counter
	DraftsSubmitted       *telemetry.Counter
	DraftsParkedForLogin  *telemetry.Counter
	DraftsResumed         *telemetry.Counter

	// Checkout counters
	BookingsCreated        *telemetry.Counter
	BookingCreationsFailed *telemetry.Counter
	PaymentsSucceeded      *telemetry.Counter
	PaymentsFailed         *telemetry.Counter
	CapturedNotConfirmed   *telemetry.Counter
	ReceiptsRejected       *telemetry.Counter

	// Incident worker counters
	IncidentsRecorded  *telemetry.Counter
	EventsDeadLettered *telemetry.Counter

	// Histograms
	CheckoutDuration *telemetry.Histogram
	RequestDuration  *telemetry.Histogram

	// Gauges
	ActiveSessions *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all checkout metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	counters := []struct {
		target **telemetry.Counter
		opts   telemetry.MetricOpts
	}{
		{&PricingContextsLoaded, telemetry.MetricOpts{Name: "wizard_pricing_context_loaded_total", Description: "Pricing contexts loaded", Unit: "1"}},
		{&DraftsSubmitted, telemetry.MetricOpts{Name: "wizard_drafts_submitted_total", Description: "Drafts handed to checkout", Unit: "1"}},
		{&DraftsParkedForLogin, telemetry.MetricOpts{Name: "wizard_drafts_parked_total", Description: "Drafts saved across a login redirect", Unit: "1"}},
		{&DraftsResumed, telemetry.MetricOpts{Name: "wizard_drafts_resumed_total", Description: "Parked drafts resumed after login", Unit: "1"}},
		{&BookingsCreated, telemetry.MetricOpts{Name: "checkout_bookings_created_total", Description: "Bookings created", Unit: "1"}},
		{&BookingCreationsFailed, telemetry.MetricOpts{Name: "checkout_booking_creation_failed_total", Description: "Failed booking creations", Unit: "1"}},
		{&PaymentsSucceeded, telemetry.MetricOpts{Name: "checkout_payments_succeeded_total", Description: "Settled checkouts by outcome", Unit: "1"}},
		{&PaymentsFailed, telemetry.MetricOpts{Name: "checkout_payments_failed_total", Description: "Failed payment attempts by kind", Unit: "1"}},
		{&CapturedNotConfirmed, telemetry.MetricOpts{Name: "checkout_captured_not_confirmed_total", Description: "Payments captured without booking reconciliation", Unit: "1"}},
		{&ReceiptsRejected, telemetry.MetricOpts{Name: "checkout_receipts_rejected_total", Description: "Bank receipts rejected before upload", Unit: "1"}},
		{&IncidentsRecorded, telemetry.MetricOpts{Name: "incident_recorded_total", Description: "Payment incidents written to the ledger", Unit: "1"}},
		{&EventsDeadLettered, telemetry.MetricOpts{Name: "incident_events_dead_lettered_total", Description: "Checkout events sent to the DLQ", Unit: "1"}},
	}
	for _, c := range counters {
		counter, err := telemetry.NewCounter(c.opts)
		if err != nil {
			return err
		}
		*c.target = counter
	}

	var err error
	CheckoutDuration, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "checkout_duration_seconds",
		Description: "Time from booking creation to settlement",
		Unit:        "s",
	})
	if err != nil {
		return err
	}

	RequestDuration, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "bff_request_duration_seconds",
		Description: "HTTP request duration in seconds",
		Unit:        "s",
	})
	if err != nil {
		return err
	}

	ActiveSessions, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "bff_active_sessions",
		Description: "Browser sessions currently held in memory",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordPricingContextLoaded records a loaded tour
func RecordPricingContextLoaded(ctx context.Context, tourID string) {
	PricingContextsLoaded.Inc(ctx, attribute.String("tour_id", tourID))
}

// RecordDraftSubmitted records a submission, parked when the user was anonymous
func RecordDraftSubmitted(ctx context.Context, parked bool) {
	if parked {
		DraftsParkedForLogin.Inc(ctx)
		return
	}
	DraftsSubmitted.Inc(ctx)
}

// RecordDraftResumed records a draft resumed after login
func RecordDraftResumed(ctx context.Context) {
	DraftsResumed.Inc(ctx)
}

// RecordBookingCreated records booking creation outcome
func RecordBookingCreated(ctx context.Context, ok bool) {
	if ok {
		BookingsCreated.Inc(ctx)
		return
	}
	BookingCreationsFailed.Inc(ctx)
}

// RecordPaymentSettled records a successful checkout
func RecordPaymentSettled(ctx context.Context, method, outcome string, startedAt time.Time) {
	PaymentsSucceeded.Inc(ctx,
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	)
	if !startedAt.IsZero() {
		CheckoutDuration.Record(ctx, time.Since(startedAt).Seconds(), attribute.String("method", method))
	}
}

// RecordPaymentFailed records a failed attempt by failure kind
func RecordPaymentFailed(ctx context.Context, method, kind string) {
	PaymentsFailed.Inc(ctx,
		attribute.String("method", method),
		attribute.String("kind", kind),
	)
	if kind == "CAPTURED_NOT_CONFIRMED" {
		CapturedNotConfirmed.Inc(ctx)
	}
}

// RecordReceiptRejected records a receipt refused before upload
func RecordReceiptRejected(ctx context.Context, reason string) {
	ReceiptsRejected.Inc(ctx, attribute.String("reason", reason))
}

// RecordIncident records an incident written by the worker
func RecordIncident(ctx context.Context, inserted bool) {
	IncidentsRecorded.Inc(ctx, attribute.Bool("inserted", inserted))
}

// RecordDeadLetter records an event sent to the DLQ
func RecordDeadLetter(ctx context.Context, eventType string) {
	EventsDeadLettered.Inc(ctx, attribute.String("event_type", eventType))
}

// RecordRequestDuration records an HTTP request latency
func RecordRequestDuration(ctx context.Context, route, method string, status int, d time.Duration) {
	RequestDuration.Record(ctx, d.Seconds(),
		attribute.String("route", route),
		attribute.String("method", method),
		attribute.Int("status", status),
	)
}

// SessionOpened and SessionClosed track the in-memory session gauge
func SessionOpened(ctx context.Context) { ActiveSessions.Add(ctx, 1) }

func SessionClosed(ctx context.Context) { ActiveSessions.Add(ctx, -1) }
