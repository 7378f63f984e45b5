package user_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Jawfish/klink/internal/apperr"
	"github.com/Jawfish/klink/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultTimeout = 5 * time.Second

// Client talks to the user service on behalf of the auth service.
//
// Remote 404 on lookup becomes apperr.Unauthorized so callers cannot tell
// unknown users from wrong passwords. Any other unexpected status becomes
// apperr.Internal. Transport failures become apperr.Unavailable.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a user service client. timeout <= 0 selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// RetrieveHashedPassword fetches the uuid and stored hash for username.
func (c *Client) RetrieveHashedPassword(ctx context.Context, username string) (*models.UserAuthData, error) {
	const op = "user_client.RetrieveHashedPassword"

	if username == "" {
		return nil, apperr.E(apperr.BadRequest, op, errors.New("username is empty"))
	}

	endpoint := fmt.Sprintf("%s/auth/%s", c.baseURL, url.PathEscape(username))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Error("Failed to create request to user service", zap.Error(err))
		return nil, apperr.E(apperr.Internal, op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to make request to user service", zap.String("url", endpoint), zap.Error(err))
		return nil, apperr.E(apperr.Unavailable, op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, apperr.E(apperr.Unauthorized, op, errors.New("user not found"))
	default:
		c.logger.Error("User service returned unexpected status", zap.Int("status", resp.StatusCode))
		return nil, apperr.E(apperr.Internal, op, fmt.Errorf("user service returned status: %d", resp.StatusCode))
	}

	var data models.UserAuthData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		c.logger.Error("Failed to decode user service response", zap.Error(err))
		return nil, apperr.E(apperr.Internal, op, fmt.Errorf("failed to decode user service response: %w", err))
	}
	if data.UUID == uuid.Nil || data.HashedPassword == "" {
		c.logger.Error("User service response is missing fields")
		return nil, apperr.E(apperr.Internal, op, errors.New("incomplete user service response"))
	}

	return &data, nil
}

// GetUser fetches the public profile for id. A remote 404 is apperr.NotFound.
func (c *Client) GetUser(ctx context.Context, id uuid.UUID) (*models.PublicUser, error) {
	const op = "user_client.GetUser"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/"+id.String(), nil)
	if err != nil {
		return nil, apperr.E(apperr.Internal, op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to make request to user service", zap.Error(err))
		return nil, apperr.E(apperr.Unavailable, op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, apperr.E(apperr.NotFound, op, nil)
	default:
		c.logger.Error("User service returned unexpected status", zap.Int("status", resp.StatusCode))
		return nil, apperr.E(apperr.Internal, op, fmt.Errorf("user service returned status: %d", resp.StatusCode))
	}

	var user models.PublicUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		c.logger.Error("Failed to decode user service response", zap.Error(err))
		return nil, apperr.E(apperr.Internal, op, err)
	}
	return &user, nil
}

// CreateUser posts a pre-hashed user to the user service and returns its uuid.
func (c *Client) CreateUser(ctx context.Context, username, hashedPassword string) (uuid.UUID, error) {
	const op = "user_client.CreateUser"

	body, err := json.Marshal(models.CreateUserRequest{Username: username, HashedPassword: hashedPassword})
	if err != nil {
		return uuid.Nil, apperr.E(apperr.Internal, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users", bytes.NewReader(body))
	if err != nil {
		c.logger.Error("Failed to create request to user service", zap.Error(err))
		return uuid.Nil, apperr.E(apperr.Internal, op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to make request to user service", zap.Error(err))
		return uuid.Nil, apperr.E(apperr.Unavailable, op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusConflict:
		return uuid.Nil, apperr.E(apperr.UserAlreadyExists, op, nil)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return uuid.Nil, apperr.E(apperr.BadRequest, op, fmt.Errorf("user service rejected input: %d", resp.StatusCode))
	default:
		c.logger.Error("User service returned unexpected status", zap.Int("status", resp.StatusCode))
		return uuid.Nil, apperr.E(apperr.Internal, op, fmt.Errorf("user service returned status: %d", resp.StatusCode))
	}

	var created models.CreateUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		c.logger.Error("Failed to decode user service response", zap.Error(err))
		return uuid.Nil, apperr.E(apperr.Internal, op, err)
	}
	return created.UUID, nil
}
