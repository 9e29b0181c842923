package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/dto"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/service"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/response"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/telemetry"
)

// AuthHandler handles login state of the caller's session
type AuthHandler struct {
	auth service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.auth.login")
	defer span.End()

	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	res, err := h.auth.Login(ctx, sid, domain.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}
	span.SetAttributes(attribute.Bool("resumed", res.Resumed))
	response.Success(c, res)
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.auth.signup")
	defer span.End()

	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	res, err := h.auth.Signup(ctx, sid, domain.Signup{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}
	response.Created(c, res)
}

// Resume handles POST /auth/resume, the landing page after a login redirect
func (h *AuthHandler) Resume(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	res, err := h.auth.Resume(c.Request.Context(), sid)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.auth.Logout(c.Request.Context(), sid); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"loggedOut": true})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	user, err := h.auth.Me(c.Request.Context(), sid)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}
