package auth_client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Jawfish/klink/internal/apperr"
	"github.com/Jawfish/klink/internal/models"

	"go.uber.org/zap"
)

// Client asks the auth service to resolve bearer tokens.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Identify forwards authorization to GET /user-identity.
func (c *Client) Identify(ctx context.Context, authorization string) (*models.InternalUserIdentity, error) {
	const op = "auth_client.Identify"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user-identity", nil)
	if err != nil {
		return nil, apperr.E(apperr.Internal, op, err)
	}
	req.Header.Set("Authorization", authorization)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to make request to auth service", zap.Error(err))
		return nil, apperr.E(apperr.Unavailable, op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, apperr.E(apperr.Unauthorized, op, fmt.Errorf("auth service returned status: %d", resp.StatusCode))
	default:
		c.logger.Error("Auth service returned unexpected status", zap.Int("status", resp.StatusCode))
		return nil, apperr.E(apperr.Internal, op, fmt.Errorf("auth service returned status: %d", resp.StatusCode))
	}

	var identity models.InternalUserIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		c.logger.Error("Failed to decode auth service response", zap.Error(err))
		return nil, apperr.E(apperr.Internal, op, err)
	}
	if identity.UUID == "" {
		return nil, apperr.E(apperr.Internal, op, errors.New("auth service returned empty uuid"))
	}
	return &identity, nil
}
