package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/Jawfish/klink/internal/apperr"
	"github.com/Jawfish/klink/internal/crypto"
	"github.com/Jawfish/klink/internal/events"
	"github.com/Jawfish/klink/internal/models"
	"github.com/Jawfish/klink/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const publishTimeout = 3 * time.Second

type UserService interface {
	CreateUser(ctx context.Context, username, hashedPassword string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type userService struct {
	repo      repository.UserRepository
	hasher    crypto.PasswordHasher
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewUserService(repo repository.UserRepository, hasher crypto.PasswordHasher, publisher events.Publisher, logger *zap.Logger) UserService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &userService{
		repo:      repo,
		hasher:    hasher,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateUser stores a new user. hashedPassword must already be an Argon2id
// hash. A duplicate username yields apperr.UserAlreadyExists whether it is
// caught by the pre-check or by the storage constraint.
func (s *userService) CreateUser(ctx context.Context, username, hashedPassword string) (*models.User, error) {
	const op = "service.CreateUser"

	if username == "" {
		return nil, apperr.E(apperr.EmptyField, op, errors.New("username is empty"))
	}
	if utf8.RuneCountInString(username) > models.MaxUsernameLength {
		return nil, apperr.E(apperr.Validation, op, fmt.Errorf("username longer than %d characters", models.MaxUsernameLength))
	}
	if !s.hasher.IsHash(hashedPassword) {
		return nil, apperr.E(apperr.PasswordNotHashed, op, errors.New("hashed_password is not an argon2id hash"))
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		s.logger.Error("Failed to check existing user", zap.String("username", username), zap.Error(err))
		return nil, apperr.E(apperr.UserCreation, op, err)
	}
	if existing != nil {
		return nil, apperr.E(apperr.UserAlreadyExists, op, nil)
	}

	user := &models.User{
		UUID:           uuid.New(),
		Username:       username,
		HashedPassword: hashedPassword,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			s.logger.Info("Lost username race to a concurrent create", zap.String("username", username))
			return nil, apperr.E(apperr.UserAlreadyExists, op, err)
		case errors.Is(err, repository.ErrCheckViolation):
			return nil, apperr.E(apperr.PasswordNotHashed, op, err)
		}
		s.logger.Error("Failed to create user", zap.String("username", username), zap.Error(err))
		return nil, apperr.E(apperr.UserCreation, op, err)
	}

	s.publishCreated(ctx, user)

	s.logger.Info("User created", zap.String("username", username), zap.String("uuid", user.UUID.String()))
	return user, nil
}

func (s *userService) publishCreated(ctx context.Context, user *models.User) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := models.UserCreatedEvent{UUID: user.UUID, Username: user.Username, CreatedAt: user.CreatedAt}
	if err := s.publisher.PublishUserCreated(ctx, event); err != nil {
		s.logger.Warn("Failed to publish user.created event", zap.String("uuid", user.UUID.String()), zap.Error(err))
	}
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "service.GetByUsername"

	if username == "" {
		return nil, apperr.E(apperr.EmptyField, op, errors.New("username is empty"))
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		s.logger.Error("Failed to get user by username", zap.Error(err))
		return nil, apperr.E(apperr.Internal, op, err)
	}
	if user == nil {
		return nil, apperr.E(apperr.NotFound, op, nil)
	}
	return user, nil
}

func (s *userService) GetByUUID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "service.GetByUUID"

	user, err := s.repo.GetByUUID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get user by uuid", zap.Error(err))
		return nil, apperr.E(apperr.Internal, op, err)
	}
	if user == nil {
		return nil, apperr.E(apperr.NotFound, op, nil)
	}
	return user, nil
}
