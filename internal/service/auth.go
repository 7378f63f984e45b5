package service

import (
	"context"
	"errors"
	"time"

	"github.com/Jawfish/klink/internal/apperr"
	"github.com/Jawfish/klink/internal/crypto"
	"github.com/Jawfish/klink/internal/models"
	"github.com/Jawfish/klink/internal/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CredentialSource returns the stored hash for a username. An unknown user
// must be reported as apperr.Unauthorized or apperr.NotFound.
type CredentialSource interface {
	RetrieveHashedPassword(ctx context.Context, username string) (*models.UserAuthData, error)
}

// UserCreator persists a user whose password is already hashed.
type UserCreator interface {
	CreateUser(ctx context.Context, username, hashedPassword string) (uuid.UUID, error)
}

type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (string, error)
	IssueTokenFor(ctx context.Context, username, password string) (*models.AuthToken, error)
	Identify(ctx context.Context, tokenString string) (*models.InternalUserIdentity, error)
	Refresh(ctx context.Context, tokenString string) (*models.AuthToken, error)
	Register(ctx context.Context, creds models.Credentials) (*models.AuthToken, error)
}

type authService struct {
	source     CredentialSource
	creator    UserCreator
	hasher     crypto.PasswordHasher
	issuer     *token.Issuer
	refreshTTL time.Duration
	logger     *zap.Logger
}

func NewAuthService(source CredentialSource, creator UserCreator, hasher crypto.PasswordHasher, issuer *token.Issuer, refreshTTL time.Duration, logger *zap.Logger) AuthService {
	return &authService{
		source:     source,
		creator:    creator,
		hasher:     hasher,
		issuer:     issuer,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// Authenticate returns the user's UUID if password matches. Unknown users and
// wrong passwords both yield apperr.Unauthorized.
func (s *authService) Authenticate(ctx context.Context, username, password string) (string, error) {
	const op = "service.Authenticate"

	data, err := s.source.RetrieveHashedPassword(ctx, username)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.Unauthorized, apperr.NotFound:
			s.logger.Info("Authentication failed: unknown user", zap.String("username", username))
			return "", apperr.E(apperr.Unauthorized, op, err)
		}
		return "", err
	}

	ok, err := s.hasher.Verify(data.HashedPassword, password)
	if err != nil {
		s.logger.Error("Stored password hash is unusable", zap.String("username", username), zap.Error(err))
		return "", apperr.E(apperr.Internal, op, err)
	}
	if !ok {
		s.logger.Info("Authentication failed: wrong password", zap.String("username", username))
		return "", apperr.E(apperr.Unauthorized, op, errors.New("password mismatch"))
	}

	return data.UUID.String(), nil
}

func (s *authService) IssueTokenFor(ctx context.Context, username, password string) (*models.AuthToken, error) {
	subject, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	signed, err := s.issuer.Issue(subject)
	if err != nil {
		s.logger.Error("Failed to generate JWT token", zap.Error(err))
		return nil, err
	}

	s.logger.Info("User logged in successfully.", zap.String("username", username))
	return &models.AuthToken{Token: signed, TokenType: models.TokenTypeBearer}, nil
}

func (s *authService) Identify(ctx context.Context, tokenString string) (*models.InternalUserIdentity, error) {
	subject, err := s.issuer.Verify(tokenString)
	if err != nil {
		s.logTokenFailure(err)
		return nil, err
	}
	return &models.InternalUserIdentity{UUID: subject}, nil
}

// Refresh re-issues a short-lived token for the holder of a valid one.
func (s *authService) Refresh(ctx context.Context, tokenString string) (*models.AuthToken, error) {
	subject, err := s.issuer.Verify(tokenString)
	if err != nil {
		s.logTokenFailure(err)
		return nil, err
	}

	signed, err := s.issuer.IssueWithTTL(subject, s.refreshTTL)
	if err != nil {
		s.logger.Error("Failed to generate refresh token", zap.Error(err))
		return nil, err
	}
	return &models.AuthToken{Token: signed, TokenType: models.TokenTypeBearer}, nil
}

// Register hashes the password, creates the user and logs them in.
func (s *authService) Register(ctx context.Context, creds models.Credentials) (*models.AuthToken, error) {
	const op = "service.Register"

	if !creds.ValidateStrict() {
		return nil, apperr.E(apperr.Validation, op, errors.New("credentials do not meet registration rules"))
	}

	hashed, err := s.hasher.Hash(creds.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, apperr.E(apperr.Internal, op, err)
	}

	id, err := s.creator.CreateUser(ctx, creds.Username, hashed)
	if err != nil {
		return nil, err
	}

	signed, err := s.issuer.Issue(id.String())
	if err != nil {
		s.logger.Error("Failed to generate JWT token", zap.Error(err))
		return nil, err
	}

	s.logger.Info("User registered", zap.String("username", creds.Username), zap.String("uuid", id.String()))
	return &models.AuthToken{Token: signed, TokenType: models.TokenTypeBearer}, nil
}

func (s *authService) logTokenFailure(err error) {
	if apperr.Is(err, apperr.MalformedToken) {
		s.logger.Warn("Validly signed token without subject; check issuer configuration", zap.Error(err))
		return
	}
	s.logger.Debug("Rejected token", zap.Error(err))
}

// LocalCredentials serves CredentialSource and UserCreator straight from the
// user store, for deployments where the auth service shares the database.
type LocalCredentials struct {
	users UserService
}

func NewLocalCredentials(users UserService) *LocalCredentials {
	return &LocalCredentials{users: users}
}

func (l *LocalCredentials) RetrieveHashedPassword(ctx context.Context, username string) (*models.UserAuthData, error) {
	user, err := l.users.GetByUsername(ctx, username)
	if err != nil {
		if apperr.Is(err, apperr.EmptyField) {
			return nil, apperr.E(apperr.BadRequest, "service.RetrieveHashedPassword", err)
		}
		return nil, err
	}
	return &models.UserAuthData{UUID: user.UUID, HashedPassword: user.HashedPassword}, nil
}

func (l *LocalCredentials) CreateUser(ctx context.Context, username, hashedPassword string) (uuid.UUID, error) {
	user, err := l.users.CreateUser(ctx, username, hashedPassword)
	if err != nil {
		return uuid.Nil, err
	}
	return user.UUID, nil
}
