package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey represents a stored API key record. Only the bcrypt hash and a
// short lookup prefix are persisted; the plaintext key exists solely at
// issuance and when a caller presents it for validation.
type APIKey struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	ClientID   string     `json:"client_id"`
	KeyHash    string     `json:"-"` // never expose the hash
	KeyPrefix  string     `json:"key_prefix"`
	IsActive   bool       `json:"is_active"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// IsExpired reports whether the key has expired at the given time.
// A key without an expiry never expires. Expiring exactly at now is
// still valid; only a strictly past expiry rejects.
func (k *APIKey) IsExpired(now time.Time) bool {
	if k.ExpiresAt == nil {
		return false
	}
	return now.After(*k.ExpiresAt)
}

// IssuedKey is the result of issuing a new API key. Key holds the
// plaintext secret and is populated exactly once, at creation; it
// cannot be recovered afterward.
type IssuedKey struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	ClientID  string     `json:"client_id"`
	KeyPrefix string     `json:"key_prefix"`
	Key       string     `json:"key"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
