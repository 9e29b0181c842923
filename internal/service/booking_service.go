package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/telemetry"
)

// BookingService lists and cancels the logged-in user's bookings
type BookingService interface {
	// ListMine returns the user's bookings, optionally filtered by status
	ListMine(ctx context.Context, sessionID string, filter domain.BookingFilter) ([]domain.Booking, error)

	// Cancel cancels a booking that is still cancellable
	Cancel(ctx context.Context, sessionID, bookingID, reason string) (*domain.Booking, error)
}

type bookingService struct {
	sessions *SessionRegistry
	auth     *Authenticator
	api      BookingsAPI
	now      func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(sessions *SessionRegistry, auth *Authenticator, api BookingsAPI) BookingService {
	return &bookingService{
		sessions: sessions,
		auth:     auth,
		api:      api,
		now:      time.Now,
	}
}

// ListMine returns the user's bookings. The unfiltered list is cached per
// session until a checkout settles or a booking is cancelled.
func (s *bookingService) ListMine(ctx context.Context, sessionID string, filter domain.BookingFilter) ([]domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.list_mine")
	defer span.End()

	sess := s.sessions.Get(ctx, sessionID)
	auth, err := s.auth.Resolve(ctx, sess)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if filter.Status != "" {
		return s.api.ListMyBookings(s.auth.APIContext(ctx, sess, auth), filter)
	}
	if cached, ok := sess.cachedBookings(); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}

	bookings, err := s.api.ListMyBookings(s.auth.APIContext(ctx, sess, auth), filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	sess.cacheBookings(bookings)
	return bookings, nil
}

// Cancel cancels a booking the user owns
func (s *bookingService) Cancel(ctx context.Context, sessionID, bookingID, reason string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.cancel")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	bookings, err := s.ListMine(ctx, sessionID, domain.BookingFilter{})
	if err != nil {
		return nil, err
	}

	var target *domain.Booking
	for i := range bookings {
		if bookings[i].ID == bookingID {
			target = &bookings[i]
			break
		}
	}
	if target == nil {
		span.SetStatus(codes.Error, "booking not found")
		return nil, domain.ErrBookingNotFound
	}
	if !target.CanCancel(s.now()) {
		span.SetStatus(codes.Error, "booking not cancellable")
		return nil, domain.ErrBookingNotCancellable
	}

	sess := s.sessions.Get(ctx, sessionID)
	auth, err := s.auth.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}

	cancelled, err := s.api.CancelBooking(s.auth.APIContext(ctx, sess, auth), bookingID, reason)
	sess.InvalidateBookings()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return cancelled, nil
}
