package domain

import "time"

// BookingStatus is the server-side booking lifecycle
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

// Booking is the server-persisted reservation
type Booking struct {
	ID                 string          `json:"id"`
	BookingNumber      string          `json:"bookingNumber"`
	TourID             string          `json:"tourId"`
	TourDateID         string          `json:"tourDateId"`
	UserID             string          `json:"userId"`
	TourTitle          string          `json:"tourTitle,omitempty"`
	StartDate          *time.Time      `json:"startDate,omitempty"`
	FlightOption       FlightOption    `json:"flightOption"`
	Adults             int             `json:"adults"`
	Children           int             `json:"children"`
	Infants            int             `json:"infants"`
	SelectedAddOns     []SelectedAddOn `json:"selectedAddOns,omitempty"`
	Travelers          []Traveler      `json:"travelers,omitempty"`
	IsDepositPayment   bool            `json:"isDepositPayment"`
	TotalPrice         float64         `json:"totalPrice"`
	DepositAmount      *float64        `json:"depositAmount,omitempty"`
	RemainingBalance   *float64        `json:"remainingBalance,omitempty"`
	Status             BookingStatus   `json:"status"`
	CancellationReason string          `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// IsUpcoming reports whether the trip has not started yet
func (b *Booking) IsUpcoming(now time.Time) bool {
	return b.StartDate != nil && b.StartDate.After(now)
}

// CanCancel reports whether the user may still cancel
func (b *Booking) CanCancel(now time.Time) bool {
	if b.Status != BookingPending && b.Status != BookingConfirmed {
		return false
	}
	return b.IsUpcoming(now)
}

// BookingRequest is the POST /bookings payload
type BookingRequest struct {
	TourID           string          `json:"tourId"`
	TourDateID       string          `json:"tourDateId"`
	UserID           string          `json:"userId"`
	FlightOption     FlightOption    `json:"flightOption"`
	Adults           int             `json:"adults"`
	Children         int             `json:"children"`
	Infants          int             `json:"infants"`
	SelectedAddOns   []SelectedAddOn `json:"selectedAddOns"`
	Travelers        []Traveler      `json:"travelers"`
	TermsAccepted    bool            `json:"termsAccepted"`
	IsDepositPayment bool            `json:"isDepositPayment"`
	BasePrice        float64         `json:"basePrice"`
	AddOnsTotal      float64         `json:"addOnsTotal"`
	TotalPrice       float64         `json:"totalPrice"`
	Status           BookingStatus   `json:"status"`
}

// NewBookingRequest builds a PENDING booking request from a draft
func NewBookingRequest(d *BookingDraft, userID string) *BookingRequest {
	return &BookingRequest{
		TourID:           d.TourID,
		TourDateID:       d.TourDateID,
		UserID:           userID,
		FlightOption:     d.FlightOption,
		Adults:           d.Adults,
		Children:         d.Children,
		Infants:          d.Infants,
		SelectedAddOns:   d.SelectedAddOns,
		Travelers:        d.Travelers,
		TermsAccepted:    d.TermsAccepted,
		IsDepositPayment: d.IsDepositPayment,
		BasePrice:        d.Quote.BasePrice,
		AddOnsTotal:      d.Quote.AddOnsTotal,
		TotalPrice:       d.Quote.Total,
		Status:           BookingPending,
	}
}

// BookingFilter narrows "my bookings"
type BookingFilter struct {
	Status BookingStatus
}
