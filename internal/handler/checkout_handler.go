package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/checkout"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/dto"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/service"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/response"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/telemetry"
)

// CheckoutHandler handles the payment screen
type CheckoutHandler struct {
	checkout service.CheckoutService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkoutService}
}

// Get handles GET /checkout
func (h *CheckoutHandler) Get(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	snap, err := h.checkout.Snapshot(c.Request.Context(), sid)
	h.respond(c, snap, err)
}

// Start handles POST /checkout/start
func (h *CheckoutHandler) Start(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.checkout.start")
	defer span.End()

	sid, ok := sessionID(c)
	if !ok {
		return
	}
	snap, err := h.checkout.Start(ctx, sid)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	h.respond(c, snap, err)
}

// RetryBooking handles POST /checkout/retry
func (h *CheckoutHandler) RetryBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.checkout.retry")
	defer span.End()

	sid, ok := sessionID(c)
	if !ok {
		return
	}
	snap, err := h.checkout.RetryBooking(ctx, sid)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	h.respond(c, snap, err)
}

// SelectMethod handles PUT /checkout/method
func (h *CheckoutHandler) SelectMethod(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.checkout.select_method")
	defer span.End()

	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req dto.SelectMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	span.SetAttributes(attribute.String("method", string(req.Method)))

	snap, err := h.checkout.SelectMethod(ctx, sid, req.Method)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	h.respond(c, snap, err)
}

// ConfirmCard handles POST /checkout/card/confirm
func (h *CheckoutHandler) ConfirmCard(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.checkout.confirm_card")
	defer span.End()

	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req dto.ConfirmCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	span.SetAttributes(attribute.String("payment_intent_id", req.PaymentIntentID))

	snap, err := h.checkout.ConfirmCard(ctx, sid, req.PaymentIntentID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	h.respond(c, snap, err)
}

// SubmitReceipt handles POST /checkout/bank-receipt (multipart, field "receipt")
func (h *CheckoutHandler) SubmitReceipt(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.checkout.submit_receipt")
	defer span.End()

	sid, ok := sessionID(c)
	if !ok {
		return
	}

	// room for the multipart framing around a maximum-size file
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, domain.MaxReceiptBytes+1<<20)

	fh, err := c.FormFile(dto.ReceiptFormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handleError(c, domain.ErrReceiptTooLarge)
			return
		}
		handleError(c, domain.ErrReceiptEmpty)
		return
	}
	if fh.Size > domain.MaxReceiptBytes {
		handleError(c, domain.ErrReceiptTooLarge)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, domain.MaxReceiptBytes+1))
	if err != nil {
		response.InternalError(c, err)
		return
	}

	span.SetAttributes(attribute.String("filename", fh.Filename), attribute.Int64("size", fh.Size))

	snap, err := h.checkout.SubmitReceipt(ctx, sid, domain.Receipt{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	h.respond(c, snap, err)
}

func (h *CheckoutHandler) respond(c *gin.Context, snap checkout.Snapshot, err error) {
	if err != nil {
		var details interface{}
		if snap.State != "" {
			details = snap
		}
		writeError(c, err, details)
		return
	}
	response.Success(c, snap)
}
