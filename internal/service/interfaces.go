package service

import (
	"context"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/checkout"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/composer"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

// AuthAPI is the remote account surface
type AuthAPI interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.AuthSession, error)
	Register(ctx context.Context, signup domain.Signup) (*domain.AuthSession, error)
	Me(ctx context.Context) (*domain.User, error)
	Logout(ctx context.Context) error
}

// BookingsAPI lists and cancels the user's bookings
type BookingsAPI interface {
	ListMyBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID, reason string) (*domain.Booking, error)
}

// RemoteAPI is everything the BFF calls on the booking REST API.
// *client.Client implements it.
type RemoteAPI interface {
	composer.TourReader
	checkout.BookingAPI
	checkout.PaymentAPI
	AuthAPI
	BookingsAPI
}
