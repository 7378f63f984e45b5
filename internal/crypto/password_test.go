package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = &Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashVerify_RoundTrip(t *testing.T) {
	h := NewPasswordHasher(fastParams)

	for _, pw := range []string{"secret", "", "пароль", strings.Repeat("x", 200)} {
		encoded, err := h.Hash(pw)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"), encoded)

		ok, err := h.Verify(encoded, pw)
		require.NoError(t, err)
		assert.True(t, ok, "password %q should verify", pw)
	}
}

func TestVerify_Mismatch(t *testing.T) {
	h := NewPasswordHasher(fastParams)

	encoded, err := h.Hash("correct horse")
	require.NoError(t, err)

	ok, err := h.Verify(encoded, "battery staple")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHash_Salted(t *testing.T) {
	h := NewPasswordHasher(fastParams)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

// 65 bytes, one over the salt and key limit
var oversized = base64.RawStdEncoding.EncodeToString(make([]byte, 65))

func TestVerify_CorruptHash(t *testing.T) {
	h := NewPasswordHasher(fastParams)

	cases := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaA",
		"$argon2id$v=16$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaA",
		"$argon2id$v=19$m=1024,t=0,p=1$c2FsdHNhbHRzYWx0$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$",
		// cost factors that would exhaust memory or never finish
		"$argon2id$v=19$m=4294967295,t=4294967295,p=255$c2FsdHNhbHRzYWx0$aGFzaA",
		"$argon2id$v=19$m=1048577,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaA",
		"$argon2id$v=19$m=1024,t=17,p=1$c2FsdHNhbHRzYWx0$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=17$c2FsdHNhbHRzYWx0$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$" + oversized + "$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$" + oversized,
	}
	for _, c := range cases {
		ok, err := h.Verify(c, "pw")
		assert.False(t, ok, c)
		assert.True(t, errors.Is(err, ErrInvalidHash), "want ErrInvalidHash for %q, got %v", c, err)
		assert.False(t, h.IsHash(c), c)
	}
}

func TestIsHash(t *testing.T) {
	h := NewPasswordHasher(fastParams)

	encoded, err := h.Hash("pw")
	require.NoError(t, err)
	assert.True(t, h.IsHash(encoded))

	// hashes produced with other parameters are still recognised
	other, err := NewPasswordHasher(&Params{Memory: 2048, Iterations: 2, Parallelism: 1, SaltLength: 8, KeyLength: 16}).Hash("pw")
	require.NoError(t, err)
	assert.True(t, h.IsHash(other))

	ok, err := h.Verify(other, "pw")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, h.IsHash("$argon2id$v=19$m=1048576,t=16,p=16$c2FsdHNhbHRzYWx0$aGFzaA"))
	assert.False(t, h.IsHash("$argon2id$v=19$m=4294967295,t=4294967295,p=255$c2FsdHNhbHRzYWx0$aGFzaA"))
}
