// Package auth implements the API key validation protocol: a single
// transaction that locks the candidate record by prefix, verifies the
// presented secret against its hash, checks expiry, and records usage.
// Every rejection collapses to ErrInvalidKey so callers cannot tell
// which step failed; the differentiated reason goes only to the
// internal log and metrics.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jordancooper-dev/keygate/config"
	"github.com/jordancooper-dev/keygate/internal/secrets"
	"github.com/jordancooper-dev/keygate/models"
	"github.com/jordancooper-dev/keygate/observability"
	"github.com/jordancooper-dev/keygate/repository"
)

var (
	// ErrInvalidKey is the single opaque signal for every validation
	// failure: missing key, too short, unknown prefix, hash mismatch,
	// expired, or revoked.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrStoreUnavailable means the validation could not run at all.
	// It is deliberately distinct from ErrInvalidKey so the surface can
	// answer with a server error instead of an auth rejection.
	ErrStoreUnavailable = errors.New("authentication store unavailable")
)

// Internal rejection reasons, recorded in logs and metrics only
const (
	reasonMissing      = "missing"
	reasonTooShort     = "too_short"
	reasonNotFound     = "not_found"
	reasonHashMismatch = "hash_mismatch"
	reasonExpired      = "expired"
	resultSuccess      = "success"
	resultStoreError   = "store_error"
)

// KeyTx is one validation transaction over the key store. The row lock
// taken by GetAPIKeyForValidation is held until Commit or Rollback.
type KeyTx interface {
	GetAPIKeyForValidation(ctx context.Context, prefix string) (*models.APIKey, error)
	TouchAPIKeyLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxStore starts validation transactions
type TxStore interface {
	Begin(ctx context.Context) (KeyTx, error)
}

// Validator runs the validation protocol
type Validator struct {
	store  TxStore
	codec  *secrets.Codec
	minLen int
	now    func() time.Time
}

// NewValidator creates a Validator. The codec must use the same bcrypt
// parameters the issuing path used.
func NewValidator(store TxStore, codec *secrets.Codec, cfg config.APIKeyConfig) *Validator {
	return &Validator{
		store:  store,
		codec:  codec,
		minLen: cfg.MinLength,
		now:    time.Now,
	}
}

// Validate authenticates a presented plaintext key. On success it
// returns the matching record with last_used_at already refreshed. On
// any rejection it returns ErrInvalidKey; infrastructure failures
// return ErrStoreUnavailable instead.
func (v *Validator) Validate(ctx context.Context, presented string) (*models.APIKey, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	correlationID := observability.CorrelationID(ctx)

	if presented == "" {
		timer.ObserveValidation(reasonMissing)
		observability.Warn("api key validation failed: key missing",
			"correlation_id", correlationID)
		return nil, ErrInvalidKey
	}
	if len(presented) < v.minLen {
		timer.ObserveValidation(reasonTooShort)
		observability.Warn("api key validation failed: key too short",
			"presented_length", len(presented),
			"min_length", v.minLen,
			"correlation_id", correlationID)
		return nil, ErrInvalidKey
	}

	prefix := secrets.Prefix(presented)

	tx, err := v.store.Begin(ctx)
	if err != nil {
		timer.ObserveValidation(resultStoreError)
		observability.Error("api key validation unavailable: begin failed",
			"error", err, "correlation_id", correlationID)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	// Rollback is a no-op after a successful commit
	defer tx.Rollback(context.WithoutCancel(ctx))

	key, err := tx.GetAPIKeyForValidation(ctx, prefix)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Covers unknown prefixes, revoked keys, and rows locked by
			// a concurrent validation (lock-skip fails closed).
			timer.ObserveValidation(reasonNotFound)
			observability.Warn("api key validation failed: key not found or inactive",
				"key_prefix", prefix, "correlation_id", correlationID)
			return nil, ErrInvalidKey
		}
		timer.ObserveValidation(resultStoreError)
		observability.Error("api key validation unavailable: lookup failed",
			"error", err, "correlation_id", correlationID)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if !v.codec.Verify(presented, key.KeyHash) {
		timer.ObserveValidation(reasonHashMismatch)
		observability.Warn("api key validation failed: hash mismatch",
			"key_prefix", prefix, "correlation_id", correlationID)
		return nil, ErrInvalidKey
	}

	now := v.now().UTC()
	if key.IsExpired(now) {
		timer.ObserveValidation(reasonExpired)
		observability.Warn("api key validation failed: key expired",
			"key_prefix", prefix,
			"expires_at", key.ExpiresAt,
			"correlation_id", correlationID)
		return nil, ErrInvalidKey
	}

	// The row is still locked here, so the touch and the lock release
	// commit together and concurrent touches cannot be lost.
	if err := tx.TouchAPIKeyLastUsed(ctx, key.ID, now); err != nil {
		timer.ObserveValidation(resultStoreError)
		observability.Error("api key validation unavailable: touch failed",
			"error", err, "correlation_id", correlationID)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if err := tx.Commit(ctx); err != nil {
		timer.ObserveValidation(resultStoreError)
		observability.Error("api key validation unavailable: commit failed",
			"error", err, "correlation_id", correlationID)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	key.LastUsedAt = &now

	timer.ObserveValidation(resultSuccess)
	observability.Debug("api key validated",
		"key_id", key.ID.String(),
		"key_prefix", prefix,
		"client_id", key.ClientID,
		"correlation_id", correlationID)

	return key, nil
}
