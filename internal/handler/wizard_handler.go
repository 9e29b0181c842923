package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/composer"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/dto"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/service"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/response"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/telemetry"
)

// WizardHandler handles the booking wizard of the caller's session
type WizardHandler struct {
	wizard service.WizardService
}

// NewWizardHandler creates a new wizard handler
func NewWizardHandler(wizard service.WizardService) *WizardHandler {
	return &WizardHandler{wizard: wizard}
}

// Load handles GET /wizard/tours/:tour
func (h *WizardHandler) Load(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.wizard.load")
	defer span.End()

	sid, ok := sessionID(c)
	if !ok {
		return
	}
	tour := c.Param("tour")
	span.SetAttributes(attribute.String("tour", tour))

	pc, snap, err := h.wizard.Load(ctx, sid, tour)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.WizardResponse{Wizard: snap, PricingContext: pc})
}

// Get handles GET /wizard
func (h *WizardHandler) Get(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	snap, err := h.wizard.Snapshot(c.Request.Context(), sid)
	h.respond(c, snap, err)
}

// SelectDate handles PUT /wizard/date
func (h *WizardHandler) SelectDate(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req dto.SelectDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	snap, err := h.wizard.SelectDate(c.Request.Context(), sid, req.TourDateID)
	h.respond(c, snap, err)
}

// SetFlightOption handles PUT /wizard/flight
func (h *WizardHandler) SetFlightOption(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req dto.FlightOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	snap, err := h.wizard.SetFlightOption(c.Request.Context(), sid, req.FlightOption)
	h.respond(c, snap, err)
}

// SetHeadcount handles PUT /wizard/headcount
func (h *WizardHandler) SetHeadcount(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req dto.HeadcountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	snap, err := h.wizard.SetHeadcount(c.Request.Context(), sid, req.Adults, req.Children, req.Infants)
	h.respond(c, snap, err)
}

// ToggleAddOn handles POST /wizard/add-ons/:id/toggle
func (h *WizardHandler) ToggleAddOn(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	snap, err := h.wizard.ToggleAddOn(c.Request.Context(), sid, c.Param("id"))
	h.respond(c, snap, err)
}

// UpdateTravelers handles PUT /wizard/travelers
func (h *WizardHandler) UpdateTravelers(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req dto.UpdateTravelersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	updates := make([]service.TravelerUpdate, 0, len(req.Travelers))
	for _, t := range req.Travelers {
		updates = append(updates, service.TravelerUpdate{Key: t.Key, Patch: t.TravelerPatch})
	}
	snap, err := h.wizard.UpdateTravelers(c.Request.Context(), sid, updates)
	h.respond(c, snap, err)
}

// SetOptions handles PUT /wizard/options
func (h *WizardHandler) SetOptions(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req dto.WizardOptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	snap, err := h.wizard.SetOptions(c.Request.Context(), sid, service.WizardOptions{
		TermsAccepted:    req.TermsAccepted,
		IsDepositPayment: req.IsDepositPayment,
	})
	h.respond(c, snap, err)
}

// Validate handles GET /wizard/validation
func (h *WizardHandler) Validate(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	res, err := h.wizard.Validate(c.Request.Context(), sid)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

// Advance handles POST /wizard/advance
func (h *WizardHandler) Advance(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	snap, err := h.wizard.Advance(c.Request.Context(), sid)
	h.respond(c, snap, err)
}

// Back handles POST /wizard/back
func (h *WizardHandler) Back(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	snap, err := h.wizard.Back(c.Request.Context(), sid)
	h.respond(c, snap, err)
}

// Submit handles POST /wizard/submit.
// An anonymous caller gets 202 with the login redirect; the draft resumes after login.
func (h *WizardHandler) Submit(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.wizard.submit")
	defer span.End()

	sid, ok := sessionID(c)
	if !ok {
		return
	}

	res, err := h.wizard.Submit(ctx, sid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var details interface{}
		if res != nil && res.Checkout != nil {
			details = res.Checkout
		}
		writeError(c, err, details)
		return
	}

	if res.RequiresLogin {
		span.SetAttributes(attribute.Bool("requires_login", true))
		response.WithStatus(c, http.StatusAccepted, res)
		return
	}
	span.SetStatus(codes.Ok, "")
	response.Created(c, res)
}

func (h *WizardHandler) respond(c *gin.Context, snap composer.Snapshot, err error) {
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.WizardResponse{Wizard: snap})
}
