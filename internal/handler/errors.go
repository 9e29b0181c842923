package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/client"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/middleware"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/response"
)

// sessionID returns the session resolved by middleware.Session
func sessionID(c *gin.Context) (string, bool) {
	id := middleware.GetSessionID(c)
	if id == "" {
		response.Error(c, http.StatusBadRequest, "MISSING_SESSION", "session is required", nil)
		return "", false
	}
	return id, true
}

// handleError maps service errors to HTTP responses
func handleError(c *gin.Context, err error) {
	writeError(c, err, nil)
}

// writeError is handleError with extra details, e.g. the checkout snapshot
// so the client can render the failure and its recovery
func writeError(c *gin.Context, err error, details interface{}) {
	var ve *domain.ValidationError
	var apiErr *client.APIError

	switch {
	case errors.As(err, &ve):
		response.Error(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Please fix the highlighted traveler fields", ve.Errors)
	case errors.Is(err, domain.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), details)
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error(), nil)
	case errors.Is(err, domain.ErrTourNotFound):
		response.Error(c, http.StatusNotFound, "TOUR_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, domain.ErrBookingNotFound):
		response.Error(c, http.StatusNotFound, "BOOKING_NOT_FOUND", err.Error(), nil)
	case domain.IsNotFoundError(err):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, domain.ErrNoActiveCheckout):
		response.Error(c, http.StatusConflict, "NO_ACTIVE_CHECKOUT", err.Error(), nil)
	case errors.Is(err, domain.ErrNoTourLoaded):
		response.Error(c, http.StatusConflict, "NO_TOUR_LOADED", err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidStep):
		response.Error(c, http.StatusConflict, "INVALID_STEP", err.Error(), nil)

	// Receipt rejections
	case errors.Is(err, domain.ErrReceiptEmpty):
		response.Error(c, http.StatusBadRequest, "RECEIPT_EMPTY", err.Error(), details)
	case errors.Is(err, domain.ErrReceiptTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, "RECEIPT_TOO_LARGE", err.Error(), details)
	case errors.Is(err, domain.ErrReceiptNotImage):
		response.Error(c, http.StatusUnsupportedMediaType, "RECEIPT_NOT_IMAGE", err.Error(), details)

	// Payment outcomes
	case errors.Is(err, domain.ErrCapturedNotConfirmed):
		response.Error(c, http.StatusBadGateway, "CAPTURED_NOT_CONFIRMED", err.Error(), details)
	case errors.Is(err, domain.ErrPaymentDeclined):
		response.Error(c, http.StatusPaymentRequired, "PAYMENT_DECLINED", err.Error(), details)

	// State conflicts
	case errors.Is(err, domain.ErrDateSoldOut):
		response.Error(c, http.StatusConflict, "DATE_SOLD_OUT", err.Error(), nil)
	case errors.Is(err, domain.ErrBookingNotCancellable):
		response.Error(c, http.StatusConflict, "BOOKING_NOT_CANCELLABLE", err.Error(), nil)
	case errors.Is(err, domain.ErrStaleResponse):
		response.Error(c, http.StatusConflict, "STALE_RESPONSE", err.Error(), details)
	case errors.Is(err, domain.ErrPaymentIntentMismatch):
		response.Error(c, http.StatusConflict, "PAYMENT_INTENT_MISMATCH", err.Error(), details)
	case errors.Is(err, domain.ErrInvalidTransition):
		response.Error(c, http.StatusConflict, "INVALID_TRANSITION", err.Error(), details)

	case domain.IsValidationError(err):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.As(err, &apiErr):
		response.Error(c, http.StatusBadGateway, "UPSTREAM_ERROR", apiErr.Message, details)
	case errors.Is(err, context.DeadlineExceeded):
		response.Error(c, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "The booking service did not respond in time", details)
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error", details)
	}
}
