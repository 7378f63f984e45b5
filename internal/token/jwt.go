// Package token issues and verifies HMAC-signed JWTs carrying a user UUID as subject.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/Jawfish/klink/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTTL        = 30 * time.Minute
	DefaultRefreshTTL = 15 * time.Minute
)

var ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// ValidateAlgorithm resolves alg against the HMAC methods registered with
// golang-jwt. Anything else is a configuration error.
func ValidateAlgorithm(alg string) (*jwt.SigningMethodHMAC, error) {
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
	return method, nil
}

// Issuer signs and verifies tokens with a shared secret.
type Issuer struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret, alg string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	method, err := ValidateAlgorithm(alg)
	if err != nil {
		return nil, err
	}
	if ttl < 0 {
		return nil, fmt.Errorf("token ttl must not be negative, got %s", ttl)
	}
	return &Issuer{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for subject with the issuer's default lifetime.
func (i *Issuer) Issue(subject string) (string, error) {
	return i.IssueWithTTL(subject, i.ttl)
}

func (i *Issuer) IssueWithTTL(subject string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return "", apperr.E(apperr.Internal, "token.Issue", err)
	}
	return signed, nil
}

// Verify returns the subject of a valid token. Bad signature, wrong algorithm,
// malformed input and expiry all yield apperr.Unauthorized. A correctly signed
// token without a subject yields apperr.MalformedToken.
func (i *Issuer) Verify(tokenString string) (string, error) {
	const op = "token.Verify"

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", apperr.E(apperr.Unauthorized, op, err)
	}

	if claims.Subject == "" {
		return "", apperr.E(apperr.MalformedToken, op, errors.New("token has no subject claim"))
	}

	return claims.Subject, nil
}
