package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Jawfish/klink/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrCheckViolation    = errors.New("check constraint violated")
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type UserRepository interface {
	// GetByUsername returns nil, nil when no user has that username.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewUserRepository(db *sqlx.DB, logger *zap.Logger) UserRepository {
	return &userRepository{db: db, logger: logger}
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := r.db.Rebind(`SELECT uuid, username, hashed_password, created_at, updated_at FROM users WHERE username = ?`)
	return r.getOne(ctx, query, username)
}

func (r *userRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := r.db.Rebind(`SELECT uuid, username, hashed_password, created_at, updated_at FROM users WHERE uuid = ?`)
	return r.getOne(ctx, query, id.String())
}

func (r *userRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

// Create inserts user in its own transaction. A username collision, whether it
// surfaces at insert or at commit, is reported as ErrDuplicateUsername.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := tx.Rebind(`INSERT INTO users (uuid, username, hashed_password, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, query, user.UUID.String(), user.Username, user.HashedPassword, user.CreatedAt); err != nil {
		return r.classify("insert", err)
	}

	if err := tx.Commit(); err != nil {
		return r.classify("commit", err)
	}
	return nil
}

func (r *userRepository) classify(stage string, err error) error {
	err = classify(err)
	if errors.Is(err, ErrDuplicateUsername) || errors.Is(err, ErrCheckViolation) {
		r.logger.Warn("Constraint violation while creating user", zap.String("stage", stage), zap.Error(err))
	}
	return err
}

func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %v", ErrDuplicateUsername, err)
		case "23514": // check_violation
			return fmt.Errorf("%w: %v", ErrCheckViolation, err)
		}
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrDuplicateUsername, err)
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return fmt.Errorf("%w: %v", ErrCheckViolation, err)
		}
	}

	return fmt.Errorf("db error: %w", err)
}
