package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultPasswordIterations = 100_000
	// MaxPasswordIterations caps both hashing and the count read back from a
	// stored hash, so a corrupt record cannot stall a login.
	MaxPasswordIterations = 10 * DefaultPasswordIterations

	passwordSaltSize = 16
	passwordKeySize  = 32
	tokenSize        = 32
	accessCodeSpace  = 10000
)

var ErrMalformedHash = errors.New("malformed password hash")

// CredentialCodec hashes waiter passwords and draws bearer tokens and access codes.
// The zero value is usable: it reads from crypto/rand and uses DefaultPasswordIterations.
type CredentialCodec struct {
	Rand       io.Reader
	Iterations int
}

// DefaultCodec is shared by callers that do not inject their own. It holds no mutable state.
var DefaultCodec = &CredentialCodec{}

func (cc *CredentialCodec) random() io.Reader {
	if cc == nil || cc.Rand == nil {
		return rand.Reader
	}
	return cc.Rand
}

func (cc *CredentialCodec) iterations() int {
	switch {
	case cc == nil || cc.Iterations <= 0:
		return DefaultPasswordIterations
	case cc.Iterations > MaxPasswordIterations:
		return MaxPasswordIterations
	}
	return cc.Iterations
}

// HashPassword derives a PBKDF2-SHA256 key with a fresh salt and returns
// "{iterations}.{base64(salt)}.{base64(key)}".
func (cc *CredentialCodec) HashPassword(password string) (string, error) {
	salt := make([]byte, passwordSaltSize)
	if _, err := io.ReadFull(cc.random(), salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	iter := cc.iterations()
	key := pbkdf2.Key([]byte(password), salt, iter, passwordKeySize, sha256.New)

	return strconv.Itoa(iter) + "." +
		base64.StdEncoding.EncodeToString(salt) + "." +
		base64.StdEncoding.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches storedHash. A malformed
// storedHash never matches.
func (cc *CredentialCodec) VerifyPassword(password, storedHash string) bool {
	iter, salt, expected, err := parsePasswordHash(storedHash)
	if err != nil {
		return false
	}
	actual := pbkdf2.Key([]byte(password), salt, iter, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

func parsePasswordHash(storedHash string) (int, []byte, []byte, error) {
	parts := strings.Split(storedHash, ".")
	if len(parts) != 3 {
		return 0, nil, nil, ErrMalformedHash
	}

	iter, err := strconv.Atoi(parts[0])
	if err != nil || iter <= 0 || iter > MaxPasswordIterations {
		return 0, nil, nil, ErrMalformedHash
	}
	salt, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(salt) == 0 {
		return 0, nil, nil, ErrMalformedHash
	}
	key, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil || len(key) == 0 {
		return 0, nil, nil, ErrMalformedHash
	}
	return iter, salt, key, nil
}

// GenerateToken returns 256 random bits encoded with the unpadded URL-safe base64 alphabet.
func (cc *CredentialCodec) GenerateToken() (string, error) {
	buf := make([]byte, tokenSize)
	if _, err := io.ReadFull(cc.random(), buf); err != nil {
		return "", fmt.Errorf("read token bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateCode returns a zero-padded 4-digit code drawn uniformly from 0000-9999.
func (cc *CredentialCodec) GenerateCode() (string, error) {
	n, err := rand.Int(cc.random(), big.NewInt(accessCodeSpace))
	if err != nil {
		return "", fmt.Errorf("draw access code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
