package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Upper bounds accepted when decoding a stored hash.
const (
	maxMemory      = 1 << 20 // KiB, 1 GiB
	maxIterations  = 16
	maxParallelism = 16
	maxSaltLength  = 64
	maxKeyLength   = 64
)

var (
	ErrHashing     = errors.New("password hashing failed")
	ErrInvalidHash = errors.New("invalid password hash")
)

// Params holds the Argon2id cost factors.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams is used when NewPasswordHasher is given nil.
var DefaultParams = &Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// PasswordHasher hashes and verifies passwords.
//
// Verify returns (false, nil) for a wrong password. A non-nil error means the
// stored hash could not be used at all and must be treated as an internal
// failure, not as bad credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(encodedHash, password string) (bool, error)
	IsHash(s string) bool
}

type argon2Hasher struct {
	params *Params
}

func NewPasswordHasher(p *Params) PasswordHasher {
	if p == nil {
		p = DefaultParams
	}
	return &argon2Hasher{params: p}
}

// Hash returns a PHC string: $argon2id$v=19$m=65536,t=3,p=2$SALT$HASH
func (h *argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Iterations, h.params.Parallelism, encodedSalt, encodedHash), nil
}

func (h *argon2Hasher) Verify(encodedHash, password string) (bool, error) {
	p, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	other := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return subtle.ConstantTimeCompare(hash, other) == 1, nil
}

func (h *argon2Hasher) IsHash(s string) bool {
	_, _, _, err := decodeHash(s)
	return err == nil
}

func decodeHash(encodedHash string) (*Params, []byte, []byte, error) {
	// ["", "argon2id", "v=19", "m=65536,t=3,p=2", salt, hash]
	vals := strings.Split(encodedHash, "$")
	if len(vals) != 6 || vals[0] != "" {
		return nil, nil, nil, fmt.Errorf("%w: wrong number of sections", ErrInvalidHash)
	}
	if vals[1] != "argon2id" {
		return nil, nil, nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidHash, vals[1])
	}

	var version int
	if _, err := fmt.Sscanf(vals[2], "v=%d", &version); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return nil, nil, nil, fmt.Errorf("%w: incompatible version %d", ErrInvalidHash, version)
	}

	p := &Params{}
	if _, err := fmt.Sscanf(vals[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	// argon2.IDKey panics on zero time or threads.
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return nil, nil, nil, fmt.Errorf("%w: zero cost parameter", ErrInvalidHash)
	}
	if p.Memory > maxMemory || p.Iterations > maxIterations || p.Parallelism > maxParallelism {
		return nil, nil, nil, fmt.Errorf("%w: cost parameters out of range (m=%d,t=%d,p=%d)", ErrInvalidHash, p.Memory, p.Iterations, p.Parallelism)
	}

	salt, err := base64.RawStdEncoding.DecodeString(vals[4])
	if err != nil || len(salt) == 0 || len(salt) > maxSaltLength {
		return nil, nil, nil, fmt.Errorf("%w: bad salt", ErrInvalidHash)
	}
	hash, err := base64.RawStdEncoding.DecodeString(vals[5])
	if err != nil || len(hash) == 0 || len(hash) > maxKeyLength {
		return nil, nil, nil, fmt.Errorf("%w: bad digest", ErrInvalidHash)
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(hash))

	return p, salt, hash, nil
}
