package domain

import "time"

// PaymentMethod is the settlement path
type PaymentMethod string

const (
	PaymentCard         PaymentMethod = "CARD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// Valid reports whether the method is known
func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentBankTransfer
}

// MaxReceiptBytes caps bank-transfer receipt uploads
const MaxReceiptBytes = 5 << 20

// FeeBreakdown is the amount due for a method
type FeeBreakdown struct {
	BaseAmount    float64 `json:"baseAmount"`
	CardFeeAmount float64 `json:"cardFee"`
	TotalAmount   float64 `json:"totalAmount"`
	// Provisional is true until the payment API has answered
	Provisional bool `json:"provisional"`
}

// PaymentIntent is the create-intent response
type PaymentIntent struct {
	ClientSecret    string       `json:"clientSecret"`
	PaymentIntentID string       `json:"paymentIntentId"`
	Fees            FeeBreakdown `json:"fees"`
}

// Receipt is an uploaded bank-transfer receipt
type Receipt struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProviderStatus is the card provider's view of a payment intent
type ProviderStatus string

const (
	ProviderSucceeded       ProviderStatus = "succeeded"
	ProviderProcessing      ProviderStatus = "processing"
	ProviderRequiresCapture ProviderStatus = "requires_capture"
	ProviderRequiresAction  ProviderStatus = "requires_action"
	ProviderFailed          ProviderStatus = "failed"
	ProviderCanceled        ProviderStatus = "canceled"
)

// Captured reports whether funds are secured at the provider
func (s ProviderStatus) Captured() bool {
	return s == ProviderSucceeded || s == ProviderProcessing || s == ProviderRequiresCapture
}

// CheckoutEventType names published checkout events
type CheckoutEventType string

const (
	EventBookingCreated       CheckoutEventType = "checkout.booking_created"
	EventPaymentSucceeded     CheckoutEventType = "checkout.payment_succeeded"
	EventBankReceiptSubmitted CheckoutEventType = "checkout.bank_receipt_submitted"
	EventPaymentFailed        CheckoutEventType = "checkout.payment_failed"
	EventCapturedNotConfirmed CheckoutEventType = "checkout.captured_not_confirmed"
)

// CheckoutEvent is published on checkout milestones
type CheckoutEvent struct {
	EventID         string            `json:"event_id"`
	Type            CheckoutEventType `json:"type"`
	SessionID       string            `json:"session_id"`
	UserID          string            `json:"user_id,omitempty"`
	BookingID       string            `json:"booking_id"`
	BookingNumber   string            `json:"booking_number,omitempty"`
	Method          PaymentMethod     `json:"method,omitempty"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty"`
	Amount          float64           `json:"amount,omitempty"`
	Message         string            `json:"message,omitempty"`
	OccurredAt      time.Time         `json:"occurred_at"`
}

// PaymentIncident is a captured-but-unconfirmed payment awaiting support
type PaymentIncident struct {
	ID              string    `json:"id"`
	EventID         string    `json:"event_id"`
	BookingID       string    `json:"booking_id"`
	BookingNumber   string    `json:"booking_number,omitempty"`
	UserID          string    `json:"user_id,omitempty"`
	PaymentIntentID string    `json:"payment_intent_id"`
	Amount          float64   `json:"amount"`
	Message         string    `json:"message"`
	Status          string    `json:"status"`
	OccurredAt      time.Time `json:"occurred_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// Incident statuses
const (
	IncidentOpen     = "OPEN"
	IncidentResolved = "RESOLVED"
)
