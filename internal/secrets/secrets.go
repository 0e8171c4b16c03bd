// Package secrets implements generation, hashing, and verification of
// API key secrets. Hashes are bcrypt; the stored lookup prefix is a
// plain leading substring and carries no security weight on its own.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// Tag marks an issued secret so leaked keys are recognizable in
	// scanning tools and logs.
	Tag = "sk_"

	// entropyBytes is the random payload size before encoding
	entropyBytes = 32

	// PrefixLength is the length of the stored lookup prefix
	PrefixLength = 12
)

// Codec generates and verifies API key secrets with a fixed bcrypt cost
type Codec struct {
	cost int
}

// NewCodec creates a Codec with the given bcrypt cost. The cost must
// already be validated by configuration; bcrypt itself rejects values
// outside [MinCost, 31] at hash time.
func NewCodec(cost int) *Codec {
	return &Codec{cost: cost}
}

// Generate produces a new random secret: the Tag followed by 32 bytes
// of CSPRNG output in URL-safe base64 without padding.
func (c *Codec) Generate() (string, error) {
	buf := make([]byte, entropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return Tag + base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash computes the bcrypt hash of a plaintext secret
func (c *Codec) Hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), c.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether the plaintext secret matches the stored hash.
// bcrypt's own comparison is used; the plaintext never leaves this call.
func (c *Codec) Verify(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// Prefix returns the fixed-length lookup prefix of a secret. The prefix
// is stored unhashed and indexed; it must never be sufficient for
// authentication alone.
func Prefix(secret string) string {
	if len(secret) < PrefixLength {
		return secret
	}
	return secret[:PrefixLength]
}
