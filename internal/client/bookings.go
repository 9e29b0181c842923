package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

// CreateBooking creates a PENDING booking. The idempotency key lets the
// server resolve a retried creation to the booking it already made.
func (c *Client) CreateBooking(ctx context.Context, req *domain.BookingRequest, idempotencyKey string) (*domain.Booking, error) {
	r, err := jsonRequest(http.MethodPost, "/bookings", req)
	if err != nil {
		return nil, err
	}
	if idempotencyKey != "" {
		r.headers = map[string]string{IdempotencyKeyHeader: idempotencyKey}
	}

	var booking domain.Booking
	if err := c.do(ctx, r, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// CancelBooking cancels a booking with a reason
func (c *Client) CancelBooking(ctx context.Context, bookingID, reason string) (*domain.Booking, error) {
	r, err := jsonRequest(http.MethodPut, "/bookings/"+url.PathEscape(bookingID)+"/cancel",
		map[string]string{"cancellationReason": reason})
	if err != nil {
		return nil, err
	}

	var booking domain.Booking
	if err := c.do(ctx, r, &booking); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// ListMyBookings lists the authenticated user's bookings
func (c *Client) ListMyBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	path := "/bookings/my-bookings"
	if filter.Status != "" {
		path += "?" + url.Values{"status": {string(filter.Status)}}.Encode()
	}

	var out struct {
		Bookings []domain.Booking `json:"bookings"`
	}
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Bookings, nil
}
