package domain

import "time"

// WizardStep is a booking wizard page
type WizardStep string

const (
	StepTrip        WizardStep = "trip"
	StepDetails     WizardStep = "details"
	StepInformation WizardStep = "information"
)

// Quote is the derived price of a draft. Card surcharges are not included.
type Quote struct {
	AdultPrice       float64 `json:"adultPrice"`
	ChildPrice       float64 `json:"childPrice"`
	BasePrice        float64 `json:"basePrice"`
	AddOnsTotal      float64 `json:"addOnsTotal"`
	Total            float64 `json:"total"`
	IsEarlyBird      bool    `json:"isEarlyBird"`
	DepositAmount    float64 `json:"depositAmount,omitempty"`
	RemainingBalance float64 `json:"remainingBalance,omitempty"`
}

// BookingDraft is the client-held aggregate submitted for payment.
// DraftID is a local identity used only as an idempotency key.
type BookingDraft struct {
	DraftID          string          `json:"draftId"`
	TourID           string          `json:"tourId"`
	TourDateID       string          `json:"tourDateId"`
	FlightOption     FlightOption    `json:"flightOption"`
	Adults           int             `json:"adults"`
	Children         int             `json:"children"`
	Infants          int             `json:"infants"`
	SelectedAddOns   []SelectedAddOn `json:"selectedAddOns"`
	Travelers        []Traveler      `json:"travelers"`
	TermsAccepted    bool            `json:"termsAccepted"`
	IsDepositPayment bool            `json:"isDepositPayment"`
	Quote            Quote           `json:"quote"`
}

// PendingDraft survives the login redirect
type PendingDraft struct {
	TourID   string        `json:"tourId"`
	TourSlug string        `json:"tourSlug,omitempty"`
	Draft    *BookingDraft `json:"draft"`
	SavedAt  time.Time     `json:"savedAt"`
}
