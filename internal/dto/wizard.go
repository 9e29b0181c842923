package dto

import (
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/composer"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

// SelectDateRequest represents request to pick a departure
type SelectDateRequest struct {
	TourDateID string `json:"tourDateId" binding:"required"`
}

// FlightOptionRequest represents request to switch flight pricing
type FlightOptionRequest struct {
	FlightOption domain.FlightOption `json:"flightOption" binding:"required,oneof=WITHOUT WITH"`
}

// HeadcountRequest represents request to set traveler counts.
// Counts below the minimum are clamped, not rejected.
type HeadcountRequest struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

// TravelerEdit is one traveler's editable fields keyed by "<TYPE>-<index>"
type TravelerEdit struct {
	Key string `json:"key" binding:"required"`
	domain.TravelerPatch
}

// UpdateTravelersRequest represents request to edit travelers
type UpdateTravelersRequest struct {
	Travelers []TravelerEdit `json:"travelers" binding:"required,min=1,dive"`
}

// WizardOptionsRequest represents request to set the information-step toggles
type WizardOptionsRequest struct {
	TermsAccepted    *bool `json:"termsAccepted,omitempty"`
	IsDepositPayment *bool `json:"isDepositPayment,omitempty"`
}

// WizardResponse represents the wizard state, plus the pricing context after a load
type WizardResponse struct {
	Wizard         composer.Snapshot        `json:"wizard"`
	PricingContext *composer.PricingContext `json:"pricingContext,omitempty"`
}
