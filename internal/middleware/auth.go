package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/Jawfish/klink/internal/apperr"
	"github.com/Jawfish/klink/internal/models"
	"github.com/Jawfish/klink/internal/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	TokenKey = "token"
	UUIDKey  = "uuid"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// BearerAuth requires a bearer token and stores it under TokenKey. It does not
// validate the token.
func BearerAuth(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, logger, apperr.E(apperr.Unauthorized, "middleware.BearerAuth", errors.New("missing or malformed Authorization header")))
			return
		}

		c.Set(TokenKey, tok)
		c.Next()
	}
}

// Identifier resolves an Authorization header to a user identity.
type Identifier interface {
	Identify(ctx context.Context, authorization string) (*models.InternalUserIdentity, error)
}

// IdentityAuth guards gateway routes by asking the auth service who the
// bearer is. The resolved uuid is stored under UUIDKey.
func IdentityAuth(identifier Identifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if _, ok := BearerToken(header); !ok {
			response.Error(c, logger, apperr.E(apperr.Unauthorized, "middleware.IdentityAuth", errors.New("missing or malformed Authorization header")))
			return
		}

		identity, err := identifier.Identify(c.Request.Context(), header)
		if err != nil {
			response.Error(c, logger, err)
			return
		}

		logger.Debug("User authenticated", zap.String("uuid", identity.UUID))
		c.Set(UUIDKey, identity.UUID)
		c.Next()
	}
}
