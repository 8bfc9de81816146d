// Package security generates one-time numeric codes and hashes them with a
// server-side key so stored values never reveal the plaintext.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	// CodeLength is the number of digits in delivery and action codes.
	CodeLength = 6
	saltBytes  = 16
)

// ErrInvalidKey signals a hash key blake2b cannot accept.
var ErrInvalidKey = errors.New("hash key must be between 1 and 64 bytes")

// GenerateNumericCode returns a uniformly random zero-padded code of the given length.
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", fmt.Errorf("invalid code length %d", digits)
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// GenerateSalt returns a random hex-encoded salt.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsNumericCode reports whether value is exactly digits ASCII digits.
func IsNumericCode(value string, digits int) bool {
	if len(value) != digits {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CodeHasher computes keyed blake2b digests of (salt, code) pairs.
type CodeHasher struct {
	key []byte
}

// NewCodeHasher validates the key once so Hash never fails on it.
func NewCodeHasher(key string) (*CodeHasher, error) {
	if len(key) == 0 || len(key) > blake2b.Size {
		return nil, ErrInvalidKey
	}
	if _, err := blake2b.New256([]byte(key)); err != nil {
		return nil, fmt.Errorf("init blake2b: %w", err)
	}
	return &CodeHasher{key: []byte(key)}, nil
}

// Hash returns the hex digest for the salted code.
func (h *CodeHasher) Hash(salt, code string) string {
	mac, _ := blake2b.New256(h.key)
	mac.Write([]byte(salt))
	mac.Write([]byte{0})
	mac.Write([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Matches compares the candidate's digest against the stored one in constant time.
func (h *CodeHasher) Matches(salt, candidate, storedHash string) bool {
	computed := h.Hash(salt, candidate)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
