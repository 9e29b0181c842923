package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain errors
var (
	// Tour errors
	ErrTourNotFound  = errors.New("tour not found")
	ErrDateNotFound  = errors.New("tour date not found")
	ErrDateSoldOut   = errors.New("tour date is sold out")
	ErrAddOnNotFound = errors.New("add-on not found")

	// Wizard errors
	ErrNoTourLoaded        = errors.New("no tour loaded")
	ErrNoDateSelected      = errors.New("no tour date selected")
	ErrTermsNotAccepted    = errors.New("terms and conditions not accepted")
	ErrTravelerNotFound    = errors.New("traveler not found")
	ErrInvalidFlightOption = errors.New("invalid flight option")
	ErrInvalidStep         = errors.New("invalid wizard step")

	// Auth errors
	ErrUnauthorized         = errors.New("authentication required")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrPendingDraftNotFound = errors.New("pending draft not found")
	ErrIncidentNotFound     = errors.New("payment incident not found")

	// Booking errors
	ErrBookingNotFound       = errors.New("booking not found")
	ErrBookingNotCancellable = errors.New("booking can no longer be cancelled")

	// Payment errors
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrNoActiveCheckout      = errors.New("no active checkout")
	ErrInvalidTransition     = errors.New("operation not allowed in current checkout state")
	ErrStaleResponse         = errors.New("response belongs to an abandoned payment method")
	ErrPaymentDeclined       = errors.New("payment was not completed by the provider")
	ErrCapturedNotConfirmed  = errors.New("payment captured but booking not updated, contact support")
	ErrPaymentIntentMismatch = errors.New("payment intent does not belong to this checkout")

	// Receipt errors
	ErrReceiptEmpty    = errors.New("receipt file is empty")
	ErrReceiptTooLarge = errors.New("receipt file exceeds 5MB")
	ErrReceiptNotImage = errors.New("receipt must be an image")
)

// ValidationError carries field-scoped errors keyed by traveler key, then field
type ValidationError struct {
	Errors map[string]map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		fields := make([]string, 0, len(e.Errors[k]))
		for f := range e.Errors[k] {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(fields, ",")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTourNotFound) ||
		errors.Is(err, ErrDateNotFound) ||
		errors.Is(err, ErrAddOnNotFound) ||
		errors.Is(err, ErrTravelerNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrPendingDraftNotFound) ||
		errors.Is(err, ErrIncidentNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrNoDateSelected) ||
		errors.Is(err, ErrTermsNotAccepted) ||
		errors.Is(err, ErrInvalidFlightOption) ||
		errors.Is(err, ErrInvalidPaymentMethod) ||
		IsReceiptError(err)
}

// IsReceiptError checks if the error is an upload rejection
func IsReceiptError(err error) bool {
	return errors.Is(err, ErrReceiptEmpty) ||
		errors.Is(err, ErrReceiptTooLarge) ||
		errors.Is(err, ErrReceiptNotImage)
}

// IsConflictError checks if the error is a state conflict
func IsConflictError(err error) bool {
	return errors.Is(err, ErrDateSoldOut) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrStaleResponse) ||
		errors.Is(err, ErrBookingNotCancellable) ||
		errors.Is(err, ErrPaymentIntentMismatch)
}
