package checkout

import "github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"

// State is the single authoritative checkout state
type State string

const (
	StateUninitialized       State = "UNINITIALIZED"
	StateCreatingBooking     State = "CREATING_BOOKING"
	StateBookingReady        State = "BOOKING_READY"
	StateInitializingCard    State = "INITIALIZING_CARD"
	StateAwaitingCardPayment State = "AWAITING_CARD_PAYMENT"
	StateCardProcessing      State = "CARD_PROCESSING"
	StateAwaitingBankReceipt State = "AWAITING_BANK_RECEIPT"
	StateBankSubmitting      State = "BANK_SUBMITTING"
	StateSucceeded           State = "SUCCEEDED"
	StateFailed              State = "FAILED"
)

// Outcome distinguishes a paid booking from one awaiting manual approval
type Outcome string

const (
	OutcomePaid             Outcome = "PAID"
	OutcomeAwaitingApproval Outcome = "AWAITING_APPROVAL"
)

// FailureKind tells the client which recovery applies
type FailureKind string

const (
	FailureBookingCreation      FailureKind = "BOOKING_CREATION"
	FailurePaymentInit          FailureKind = "PAYMENT_INIT"
	FailurePaymentDeclined      FailureKind = "PAYMENT_DECLINED"
	FailureCapturedNotConfirmed FailureKind = "CAPTURED_NOT_CONFIRMED"
	FailureBankSubmission       FailureKind = "BANK_SUBMISSION"
)

// Failure is the human-readable reason for StateFailed.
// Retryable is false only for CAPTURED_NOT_CONFIRMED: paying again would double charge.
type Failure struct {
	Kind      FailureKind `json:"kind"`
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable"`
}

// Snapshot is a read-only view of the orchestrator
type Snapshot struct {
	State           State                `json:"state"`
	Outcome         Outcome              `json:"outcome,omitempty"`
	DraftID         string               `json:"draftId"`
	TourID          string               `json:"tourId"`
	BookingID       string               `json:"bookingId,omitempty"`
	BookingNumber   string               `json:"bookingNumber,omitempty"`
	Method          domain.PaymentMethod `json:"method,omitempty"`
	Fees            domain.FeeBreakdown  `json:"fees"`
	ClientSecret    string               `json:"clientSecret,omitempty"`
	PaymentIntentID string               `json:"paymentIntentId,omitempty"`
	Failure         *Failure             `json:"failure,omitempty"`
}

// canSelectMethod lists states where the payment method may change
func (s State) canSelectMethod(f *Failure) bool {
	switch s {
	case StateBookingReady, StateInitializingCard, StateAwaitingCardPayment, StateAwaitingBankReceipt:
		return true
	case StateFailed:
		return f != nil && f.Kind != FailureBookingCreation && f.Kind != FailureCapturedNotConfirmed
	}
	return false
}

func (s State) settled() bool {
	return s == StateSucceeded
}
