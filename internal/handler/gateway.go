package handler

import (
	"context"
	"net/http"

	"github.com/Jawfish/klink/internal/apperr"
	"github.com/Jawfish/klink/internal/middleware"
	"github.com/Jawfish/klink/internal/models"
	"github.com/Jawfish/klink/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.PublicUser, error)
}

type GatewayHandler struct {
	users  UserLookup
	logger *zap.Logger
}

func NewGatewayHandler(users UserLookup, logger *zap.Logger) *GatewayHandler {
	return &GatewayHandler{users: users, logger: logger}
}

// Me handles GET /me. Requires middleware.IdentityAuth.
func (h *GatewayHandler) Me(c *gin.Context) {
	id, err := uuid.Parse(c.GetString(middleware.UUIDKey))
	if err != nil {
		response.Error(c, h.logger, apperr.E(apperr.MalformedToken, "handler.Me", err))
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			// token outlived its user
			err = apperr.E(apperr.Unauthorized, "handler.Me", err)
		}
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
