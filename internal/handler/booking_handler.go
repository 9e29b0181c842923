package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/dto"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/service"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/response"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/telemetry"
)

// BookingHandler handles the user's booking list
type BookingHandler struct {
	bookings service.BookingService
	now      func() time.Time
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings, now: time.Now}
}

// ListMine handles GET /bookings?status=
func (h *BookingHandler) ListMine(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.list_mine")
	defer span.End()

	sid, ok := sessionID(c)
	if !ok {
		return
	}

	filter := domain.BookingFilter{Status: domain.BookingStatus(c.Query("status"))}
	switch filter.Status {
	case "", domain.BookingPending, domain.BookingConfirmed, domain.BookingCancelled, domain.BookingCompleted:
	default:
		response.BadRequest(c, "invalid status filter")
		return
	}

	bookings, err := h.bookings.ListMine(ctx, sid, filter)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}
	span.SetAttributes(attribute.Int("count", len(bookings)))
	response.Success(c, dto.FromBookings(bookings, h.now()))
}

// Cancel handles POST /bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.cancel")
	defer span.End()

	sid, ok := sessionID(c)
	if !ok {
		return
	}
	bookingID := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", bookingID))

	var req dto.CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	booking, err := h.bookings.Cancel(ctx, sid, bookingID, req.Reason)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}
	response.Success(c, dto.FromBooking(*booking, h.now()))
}
