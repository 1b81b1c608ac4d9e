package handlers

import (
	"errors"
	"expvar"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-management/internal/application"
	"github.com/oksasatya/go-user-management/internal/interface/middleware"
	"github.com/oksasatya/go-user-management/pkg/response"
	"github.com/oksasatya/go-user-management/pkg/validation"
)

// authCounters is published on /api/debug/vars.
var authCounters = expvar.NewMap("auth")

type AuthHandler struct {
	Svc    *application.AuthService
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

// authRequest accepts the login name as identifier or, for older clients, as email.
type authRequest struct {
	Identifier string `json:"identifier" binding:"required_without=Email"`
	Email      string `json:"email" binding:"required_without=Identifier"`
	Password   string `json:"password" binding:"required,max=72"`
}

type registerRequest struct {
	FirstName   string `json:"first_name" binding:"max=100"`
	LastName    string `json:"last_name" binding:"max=100"`
	BirthDate   string `json:"birth_date" binding:"omitempty,birthdate"`
	City        string `json:"city" binding:"max=100"`
	Country     string `json:"country" binding:"max=100"`
	Avatar      string `json:"avatar" binding:"omitempty,url"`
	Company     string `json:"company" binding:"max=200"`
	JobPosition string `json:"job_position" binding:"max=200"`
	Mobile      string `json:"mobile" binding:"max=50"`
	Username    string `json:"username" binding:"required,handle"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6,max=72"`
	Role        string `json:"role" binding:"omitempty,role"`
}

func (r registerRequest) toInput() application.ProfileInput {
	return application.ProfileInput{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		BirthDate:   r.BirthDate,
		City:        r.City,
		Country:     r.Country,
		Avatar:      r.Avatar,
		Company:     r.Company,
		JobPosition: r.JobPosition,
		Mobile:      r.Mobile,
		Username:    r.Username,
		Email:       r.Email,
		Password:    r.Password,
		Role:        r.Role,
	}
}

// Login POST /api/auth
func (h *AuthHandler) Login(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}

	tok, err := h.Svc.Authenticate(c.Request.Context(), identifier, req.Password)
	if err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) || errors.Is(err, application.ErrPrincipalNotFound) {
			authCounters.Add("login_failed", 1)
			response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}
		h.logError(c, err, "login failed")
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	authCounters.Add("login_ok", 1)
	response.Success(c, http.StatusOK, gin.H{
		"access_token": tok.Token,
		"token_type":   tok.Type,
		"expires_at":   tok.ExpiresAt,
	}, "authenticated", nil)
}

// Register POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.Register(c.Request.Context(), req.toInput())
	switch {
	case errors.Is(err, application.ErrDuplicateIdentifier):
		response.Error[any](c, http.StatusBadRequest, "email or username already registered", nil)
		return
	case errors.Is(err, application.ErrInvalidRole), errors.Is(err, application.ErrInvalidProfile):
		response.Error[any](c, http.StatusBadRequest, "invalid payload", err.Error())
		return
	case err != nil:
		h.logError(c, err, "register failed")
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	authCounters.Add("registered", 1)
	response.Success(c, http.StatusCreated, toUserDTO(u), "registered", nil)
}

// Logout POST /api/logout (auth required)
func (h *AuthHandler) Logout(c *gin.Context) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	n, err := h.Svc.Logout(c.Request.Context(), p.ID)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"logged_out": true, "revoked": n}, "logged out", nil)
}

func (h *AuthHandler) logError(c *gin.Context, err error, msg string) {
	if h.Logger == nil {
		return
	}
	h.Logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"path":       c.FullPath(),
	}).Error(msg)
}
