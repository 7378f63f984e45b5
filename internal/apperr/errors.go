// Package apperr defines the error kinds shared by all services and the single
// table that maps each kind to an HTTP status and a fixed client-facing detail.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind uint8

const (
	Internal Kind = iota
	BadRequest
	EmptyField
	Validation
	PasswordNotHashed
	Unauthorized
	MalformedToken
	NotFound
	UserAlreadyExists
	UserCreation
	Unavailable
)

type response struct {
	status int
	detail string
}

var table = map[Kind]response{
	Internal:          {http.StatusInternalServerError, "Internal error"},
	BadRequest:        {http.StatusBadRequest, "Bad request"},
	EmptyField:        {http.StatusBadRequest, "Field cannot be empty"},
	Validation:        {http.StatusUnprocessableEntity, "Validation error"},
	PasswordNotHashed: {http.StatusBadRequest, "Password not hashed"},
	Unauthorized:      {http.StatusUnauthorized, "Invalid credentials"},
	MalformedToken:    {http.StatusUnauthorized, "Invalid credentials"},
	NotFound:          {http.StatusNotFound, "User does not exist"},
	UserAlreadyExists: {http.StatusConflict, "User already exists"},
	UserCreation:      {http.StatusInternalServerError, "User could not be created"},
	Unavailable:       {http.StatusServiceUnavailable, "Service unavailable"},
}

var names = map[Kind]string{
	Internal:          "internal",
	BadRequest:        "bad_request",
	EmptyField:        "empty_field",
	Validation:        "validation",
	PasswordNotHashed: "password_not_hashed",
	Unauthorized:      "unauthorized",
	MalformedToken:    "malformed_token",
	NotFound:          "not_found",
	UserAlreadyExists: "user_already_exists",
	UserCreation:      "user_creation",
	Unavailable:       "unavailable",
}

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Status returns the HTTP status code and fixed detail for the kind.
// Unknown kinds resolve to Internal.
func (k Kind) Status() (int, string) {
	if r, ok := table[k]; ok {
		return r.status, r.detail
	}
	r := table[Internal]
	return r.status, r.detail
}

// Error carries a Kind, the operation that produced it and the underlying cause.
// The cause is for logs only and never reaches a client.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E builds an *Error. err may be nil.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the outermost *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
