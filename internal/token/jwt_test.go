package token

import (
	"errors"
	"testing"
	"time"

	"github.com/Jawfish/klink/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const subject = "3f1c2a4e-8d3b-4c55-9a1e-0c7a3f4b2d11"

func newIssuer(t *testing.T, secret string) *Issuer {
	t.Helper()
	i, err := NewIssuer(secret, "HS256", DefaultTTL)
	require.NoError(t, err)
	return i
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		i, err := NewIssuer("super-secret", alg, time.Hour)
		require.NoError(t, err)

		tok, err := i.Issue(subject)
		require.NoError(t, err)

		got, err := i.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, subject, got)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := newIssuer(t, "secret-a").Issue(subject)
	require.NoError(t, err)

	_, err = newIssuer(t, "secret-b").Verify(tok)
	assert.True(t, apperr.Is(err, apperr.Unauthorized), "got %v", err)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	i := newIssuer(t, "secret")

	zero, err := i.IssueWithTTL(subject, 0)
	require.NoError(t, err)
	_, err = i.Verify(zero)
	assert.True(t, apperr.Is(err, apperr.Unauthorized), "ttl=0: got %v", err)

	past, err := i.IssueWithTTL(subject, -time.Minute)
	require.NoError(t, err)
	_, err = i.Verify(past)
	assert.True(t, apperr.Is(err, apperr.Unauthorized), "past: got %v", err)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestVerify_ClockAdvance(t *testing.T) {
	t.Parallel()

	i := newIssuer(t, "secret")
	start := time.Now()
	i.now = func() time.Time { return start }

	tok, err := i.Issue(subject)
	require.NoError(t, err)

	i.now = func() time.Time { return start.Add(DefaultTTL - time.Minute) }
	_, err = i.Verify(tok)
	require.NoError(t, err)

	i.now = func() time.Time { return start.Add(DefaultTTL + time.Second) }
	_, err = i.Verify(tok)
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestVerify_Tampered(t *testing.T) {
	t.Parallel()

	i := newIssuer(t, "secret")
	tok, err := i.Issue(subject)
	require.NoError(t, err)

	// flip a character in the signature
	b := []byte(tok)
	last := len(b) - 2
	if b[last] == 'A' {
		b[last] = 'B'
	} else {
		b[last] = 'A'
	}

	_, err = i.Verify(string(b))
	assert.True(t, apperr.Is(err, apperr.Unauthorized))

	_, err = i.Verify("not.a.jwt")
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestVerify_AlgorithmMismatch(t *testing.T) {
	t.Parallel()

	hs512, err := NewIssuer("secret", "HS512", time.Hour)
	require.NoError(t, err)
	tok, err := hs512.Issue(subject)
	require.NoError(t, err)

	_, err = newIssuer(t, "secret").Verify(tok)
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestVerify_MissingSubject(t *testing.T) {
	t.Parallel()

	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = newIssuer(t, "secret").Verify(tok)
	assert.True(t, apperr.Is(err, apperr.MalformedToken), "got %v", err)
}

func TestVerify_MissingExpiry(t *testing.T) {
	t.Parallel()

	claims := jwt.RegisteredClaims{Subject: subject}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = newIssuer(t, "secret").Verify(tok)
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestNewIssuer_Config(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer("", "HS256", time.Minute)
	assert.Error(t, err)

	for _, alg := range []string{"RS256", "none", "HS1024", ""} {
		_, err = NewIssuer("secret", alg, time.Minute)
		assert.True(t, errors.Is(err, ErrUnsupportedAlgorithm), alg)
	}

	_, err = NewIssuer("secret", "HS256", -time.Second)
	assert.Error(t, err)
}
