package handler

import (
	"net/http"

	"github.com/Jawfish/klink/internal/apperr"
	"github.com/Jawfish/klink/internal/middleware"
	"github.com/Jawfish/klink/internal/models"
	"github.com/Jawfish/klink/internal/response"
	"github.com/Jawfish/klink/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler interface {
	Token(c *gin.Context)
	UserIdentity(c *gin.Context)
	Refresh(c *gin.Context)
	Register(c *gin.Context)
}

type authHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, logger *zap.Logger) AuthHandler {
	return &authHandler{authService: authService, logger: logger}
}

// Token handles POST /token and POST /login with form-encoded credentials.
func (h *authHandler) Token(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBind(&creds); err != nil {
		response.Error(c, h.logger, apperr.E(apperr.Validation, "handler.Token", err))
		return
	}

	tok, err := h.authService.IssueTokenFor(c.Request.Context(), creds.Username, creds.Password)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, tok)
}

// UserIdentity handles GET /user-identity. Requires middleware.BearerAuth.
func (h *authHandler) UserIdentity(c *gin.Context) {
	identity, err := h.authService.Identify(c.Request.Context(), c.GetString(middleware.TokenKey))
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, identity)
}

// Refresh handles POST /refresh. Requires middleware.BearerAuth.
func (h *authHandler) Refresh(c *gin.Context) {
	tok, err := h.authService.Refresh(c.Request.Context(), c.GetString(middleware.TokenKey))
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, tok)
}

// Register handles POST /register with form-encoded credentials.
func (h *authHandler) Register(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBind(&creds); err != nil {
		response.Error(c, h.logger, apperr.E(apperr.Validation, "handler.Register", err))
		return
	}

	tok, err := h.authService.Register(c.Request.Context(), creds)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, tok)
}
