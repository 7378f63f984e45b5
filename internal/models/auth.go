package models

import (
	"regexp"
	"unicode/utf8"
)

const TokenTypeBearer = "bearer"

// Credentials is the form body of /token, /login and /register.
type Credentials struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 32
	PasswordMinLength = 8
	PasswordMaxLength = 128
)

// ValidateStrict applies the registration rules: bounded lengths and a
// restricted username alphabet.
func (c Credentials) ValidateStrict() bool {
	n := utf8.RuneCountInString(c.Username)
	if n < UsernameMinLength || n > UsernameMaxLength || !usernamePattern.MatchString(c.Username) {
		return false
	}
	p := utf8.RuneCountInString(c.Password)
	return p >= PasswordMinLength && p <= PasswordMaxLength
}

type AuthToken struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

type InternalUserIdentity struct {
	UUID string `json:"uuid"`
}
