package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	UUID           uuid.UUID  `db:"uuid"`
	Username       string     `db:"username"`
	HashedPassword string     `db:"hashed_password"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      *time.Time `db:"updated_at"`
}

// MaxUsernameLength matches the users.username column.
const MaxUsernameLength = 64

// CreateUserRequest is the body of POST /users. The password must already be hashed.
type CreateUserRequest struct {
	Username       string `json:"username" binding:"required,max=64"`
	HashedPassword string `json:"hashed_password" binding:"required"`
}

type CreateUserResponse struct {
	UUID uuid.UUID `json:"uuid"`
}

// UserAuthData is what the user service hands to the auth service for a username.
type UserAuthData struct {
	UUID           uuid.UUID `json:"uuid"`
	HashedPassword string    `json:"hashed_password"`
}

type PublicUser struct {
	UUID     uuid.UUID `json:"uuid"`
	Username string    `json:"username"`
}

// UserCreatedEvent is published after a user record is committed.
type UserCreatedEvent struct {
	UUID      uuid.UUID `json:"uuid"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
