package dto

import (
	"time"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

// CancelBookingRequest represents request to cancel a booking
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// BookingResponse represents a booking in API response
type BookingResponse struct {
	domain.Booking
	IsUpcoming bool `json:"isUpcoming"`
	CanCancel  bool `json:"canCancel"`
}

// BookingListResponse represents the user's bookings
type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Count    int               `json:"count"`
}

// FromBooking converts domain.Booking to BookingResponse
func FromBooking(b domain.Booking, now time.Time) BookingResponse {
	return BookingResponse{
		Booking:    b,
		IsUpcoming: b.IsUpcoming(now),
		CanCancel:  b.CanCancel(now),
	}
}

// FromBookings converts a list
func FromBookings(bookings []domain.Booking, now time.Time) *BookingListResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, FromBooking(b, now))
	}
	return &BookingListResponse{Bookings: out, Count: len(out)}
}
