package handler

import (
	"errors"
	"net/http"

	"github.com/Jawfish/klink/internal/apperr"
	"github.com/Jawfish/klink/internal/models"
	"github.com/Jawfish/klink/internal/response"
	"github.com/Jawfish/klink/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserHandler interface {
	CreateUser(c *gin.Context)
	GetUser(c *gin.Context)
	GetAuthData(c *gin.Context)
}

type userHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService service.UserService, logger *zap.Logger) UserHandler {
	return &userHandler{userService: userService, logger: logger}
}

// CreateUser handles POST /users.
func (h *userHandler) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, h.logger, apperr.E(apperr.Validation, "handler.CreateUser", err))
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), req.Username, req.HashedPassword)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreateUserResponse{UUID: user.UUID})
}

// GetUser handles GET /users/:uuid.
func (h *userHandler) GetUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		response.Error(c, h.logger, apperr.E(apperr.Validation, "handler.GetUser", err))
		return
	}

	user, err := h.userService.GetByUUID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.PublicUser{UUID: user.UUID, Username: user.Username})
}

// GetAuthData handles GET /auth/:username. It is meant for the auth service only.
func (h *userHandler) GetAuthData(c *gin.Context) {
	username := c.Param("username")
	if username == "" {
		response.Error(c, h.logger, apperr.E(apperr.EmptyField, "handler.GetAuthData", errors.New("username is empty")))
		return
	}

	user, err := h.userService.GetByUsername(c.Request.Context(), username)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.UserAuthData{UUID: user.UUID, HashedPassword: user.HashedPassword})
}
